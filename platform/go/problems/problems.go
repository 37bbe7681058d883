// Package problems holds the error taxonomy shared by every domain and renders it as
// application/problem+json.
package problems

import (
	"errors"
	"net/http"
)

const (
	typeValidation   = "https://gacha.palmyra.pro/problems/validation-error"
	typeUnauthorized = "https://gacha.palmyra.pro/problems/unauthorized"
	typeNotFound     = "https://gacha.palmyra.pro/problems/not-found"
	typeConflict     = "https://gacha.palmyra.pro/problems/conflict"
	typeQuota        = "https://gacha.palmyra.pro/problems/quota-exceeded"
	typeRateLimited  = "https://gacha.palmyra.pro/problems/rate-limited"
	typeInternal     = "https://gacha.palmyra.pro/problems/internal-error"
)

// Machine readable problem codes.
const (
	CodeValidation   = "validation_error"
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeQuota        = "quota_exceeded"
	CodeRateLimited  = "rate_limited"
	CodeInternal     = "internal_error"
)

// Sentinel errors shared across domains.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrConflict      = errors.New("conflict")
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// Add appends a message for field.
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Invalid builds a ValidationError for a single field.
func Invalid(field, message string) error {
	fe := FieldErrors{}
	fe.Add(field, message)
	return &ValidationError{Fields: fe}
}

// Err returns nil when no field failed, otherwise a ValidationError.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

// Problem is the RFC 7807 body returned for every failed request.
type Problem struct {
	Type   string              `json:"type"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Code   string              `json:"code"`
	Errors map[string][]string `json:"errors,omitempty"`
}

// FromError maps err to a Problem. The boolean is false for errors outside the
// taxonomy, which callers report as internal errors.
func FromError(err error) (Problem, bool) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return Problem{
			Type:   typeValidation,
			Title:  "Invalid request",
			Status: http.StatusBadRequest,
			Detail: "request failed validation",
			Code:   CodeValidation,
			Errors: verr.Fields,
		}, true
	case errors.Is(err, ErrUnauthorized):
		return Unauthorized(), true
	case errors.Is(err, ErrQuotaExceeded):
		return Problem{
			Type:   typeQuota,
			Title:  "Quota exceeded",
			Status: http.StatusConflict,
			Detail: err.Error(),
			Code:   CodeQuota,
		}, true
	case errors.Is(err, ErrNotFound):
		return Problem{
			Type:   typeNotFound,
			Title:  "Not found",
			Status: http.StatusNotFound,
			Detail: err.Error(),
			Code:   CodeNotFound,
		}, true
	case errors.Is(err, ErrConflict):
		return Problem{
			Type:   typeConflict,
			Title:  "Conflict",
			Status: http.StatusConflict,
			Detail: err.Error(),
			Code:   CodeConflict,
		}, true
	default:
		return Internal(), false
	}
}

// Unauthorized is the single body used for every authorization failure.
func Unauthorized() Problem {
	return Problem{
		Type:   typeUnauthorized,
		Title:  "Unauthorized",
		Status: http.StatusUnauthorized,
		Detail: "unauthorized",
		Code:   CodeUnauthorized,
	}
}

// BadRequest describes a malformed request outside field validation.
func BadRequest(detail string) Problem {
	return Problem{
		Type:   typeValidation,
		Title:  "Invalid request",
		Status: http.StatusBadRequest,
		Detail: detail,
		Code:   CodeValidation,
	}
}

// NotFound describes a missing resource.
func NotFound(detail string) Problem {
	return Problem{
		Type:   typeNotFound,
		Title:  "Not found",
		Status: http.StatusNotFound,
		Detail: detail,
		Code:   CodeNotFound,
	}
}

// TooManyRequests is returned by rate limiting middleware.
func TooManyRequests() Problem {
	return Problem{
		Type:   typeRateLimited,
		Title:  "Too many requests",
		Status: http.StatusTooManyRequests,
		Detail: "rate limit exceeded",
		Code:   CodeRateLimited,
	}
}

// Internal hides the cause of unexpected failures.
func Internal() Problem {
	return Problem{
		Type:   typeInternal,
		Title:  "Internal error",
		Status: http.StatusInternalServerError,
		Detail: "internal error",
		Code:   CodeInternal,
	}
}
