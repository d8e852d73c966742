/*
Package errs provides custom error types and application-level error code constants.

This file defines the error codes and the map from code to CustomError template
used to standardize HTTP responses and internal error handling.
*/
package errs

import "net/http"

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON is malformed.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate exceeded the transport-level limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Chat Business Logic Errors
const (
	// ErrMissingFields indicates that a required message field (username, message) was absent.
	ErrMissingFields = 2001

	// ErrMissingUsername indicates that the username field or parameter was absent.
	ErrMissingUsername = 2002

	// ErrPostThrottled indicates that the sender must wait before posting again.
	ErrPostThrottled = 2003

	// ErrMessageInsertFailed indicates that no configured backend accepted the message.
	ErrMessageInsertFailed = 2101

	// ErrTypingUpdateFailed indicates that no configured backend accepted the typing heartbeat.
	ErrTypingUpdateFailed = 2102
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified server internal error.
	ErrUnknown = 5000
)

// errorMap stores the CustomError template for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Invalid JSON body", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Chat Business Logic Errors
	ErrMissingFields:       {Code: ErrMissingFields, Message: "Missing required fields", Status: http.StatusBadRequest},
	ErrMissingUsername:     {Code: ErrMissingUsername, Message: "Missing username", Status: http.StatusBadRequest},
	ErrPostThrottled:       {Code: ErrPostThrottled, Message: "Please wait %d seconds before sending another message", Status: http.StatusTooManyRequests},
	ErrMessageInsertFailed: {Code: ErrMessageInsertFailed, Message: "Failed to insert message", Status: http.StatusInternalServerError},
	ErrTypingUpdateFailed:  {Code: ErrTypingUpdateFailed, Message: "Failed to update typing", Status: http.StatusInternalServerError},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
