/*
Package req provides helper functions for HTTP request parsing and data binding.

It encapsulates JSON body decoding with strict field checking so handlers can
bind input structs in one call and reject malformed requests uniformly.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"retrochat/internal/pkg/errs"
)

// MaxBodySize caps the request body at 64 KB. Chat payloads are small;
// anything bigger is hostile.
const MaxBodySize int64 = 64 << 10

// BindJSON binds the JSON request body to the destination struct dst.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
