/*
Package resp provides helper functions for constructing and sending HTTP JSON responses.

The chat API's wire contract is intentionally plain: list endpoints return bare
JSON arrays, mutations return {"success": true, ...}, and failures return
{"error": "..."} with an appropriate status code (plus "waitTime" for
throttled posts).
*/
package resp

import (
	"encoding/json"
	"net/http"

	"retrochat/internal/pkg/errs"
	"retrochat/internal/pkg/logx"
)

// RespondJSON sets the Content-Type and sends the JSON payload.
func RespondJSON(w http.ResponseWriter, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(
			err,
			"Error encoding JSON response",
			"http_status", httpStatus,
		)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	w.Write(response)
}

// RespondOK sends an HTTP 200 response with the given payload as-is.
// Used for list endpoints that return bare arrays.
func RespondOK(w http.ResponseWriter, payload any) {
	RespondJSON(w, http.StatusOK, payload)
}

// RespondSuccess sends an HTTP 200 {"success": true} response.
// Extra top-level fields may be merged in via the extra map.
func RespondSuccess(w http.ResponseWriter, extra map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range extra {
		body[k] = v
	}
	RespondJSON(w, http.StatusOK, body)
}

// RespondError sends an {"error": "..."} response using the error's HTTP status.
func RespondError(w http.ResponseWriter, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	RespondJSON(w, customErr.Status, map[string]any{"error": customErr.Message})
}

// RespondThrottled sends an HTTP 429 {"error": "...", "waitTime": n} response,
// where n is the number of whole seconds the client should wait before retrying.
func RespondThrottled(w http.ResponseWriter, customErr *errs.CustomError, waitSeconds int) {
	RespondJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":    customErr.Message,
		"waitTime": waitSeconds,
	})
}
