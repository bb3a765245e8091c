// Package apierror implements the error taxonomy shared by the HTTP and
// WebSocket surfaces: validation, authentication, resource, throttling,
// unavailable, and internal errors, each with a stable code and an HTTP
// status, never leaking raw driver strings to the client.
package apierror

import "net/http"

// Code is one of the stable error codes surfaced to clients.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeNotFound           Code = "not_found"
	CodeRateLimited        Code = "rate_limited"
	CodeServiceUnavailable Code = "service_unavailable"
	CodeInternal           Code = "internal"
)

// Error is the canonical API error: Code drives the HTTP status and the
// `error` field of the response body; Details and Missing are optional
// enrichments.
type Error struct {
	Code    Code
	Details string
	Missing []string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return string(e.Code) + ": " + e.Details
	}
	return string(e.Code)
}

// Status returns the HTTP status code that corresponds to e.Code.
func (e *Error) Status() int {
	switch e.Code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Body is the JSON shape of an error response: {error, details?, missing?}.
type Body struct {
	Error   string   `json:"error"`
	Details string   `json:"details,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// ToBody renders e as the wire body.
func (e *Error) ToBody() Body {
	return Body{Error: string(e.Code), Details: e.Details, Missing: e.Missing}
}

// New constructs an Error with an optional details string.
func New(code Code, details string) *Error {
	return &Error{Code: code, Details: details}
}

// BadRequest is a convenience constructor for CodeBadRequest, optionally
// enumerating missing required fields.
func BadRequest(details string, missing ...string) *Error {
	return &Error{Code: CodeBadRequest, Details: details, Missing: missing}
}

// Unauthorized is a convenience constructor for CodeUnauthorized, where
// reason is a specific cause such as "nonce_missing" or "invalid_signature".
func Unauthorized(reason string) *Error {
	return &Error{Code: CodeUnauthorized, Details: reason}
}

// Internal wraps an unexpected infrastructure error. The caller is
// responsible for logging the original err; only a short cause string
// travels in the response body.
func Internal(cause string) *Error {
	return &Error{Code: CodeInternal, Details: cause}
}

// Unavailable reports a missing or unhealthy dependency.
func Unavailable(cause string) *Error {
	return &Error{Code: CodeServiceUnavailable, Details: cause}
}

// NotFound reports a missing addressable entity.
func NotFound(details string) *Error {
	return &Error{Code: CodeNotFound, Details: details}
}

// RateLimited reports a throttled request. The error carries no retry
// delay; the caller sets the Retry-After header itself.
func RateLimited(details string) *Error {
	return &Error{Code: CodeRateLimited, Details: details}
}
