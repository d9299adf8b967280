// Package errors defines the typed errors returned by portal services and the
// HTTP status each one maps to.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Code identifies a class of failure.
type Code string

const (
	CodeValidation   Code = "VALIDATION_FAILED"
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeInvalidToken Code = "INVALID_TOKEN"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeRateLimited  Code = "RATE_LIMIT_EXCEEDED"
	CodeUpstream     Code = "UPSTREAM_ERROR"
	CodeConfig       Code = "CONFIG_ERROR"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// ServiceError is the error type handlers know how to render.
type ServiceError struct {
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails returns e with an extra detail entry.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newErr(code Code, status int, message string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// FieldErrors maps a form field name to a human readable message.
type FieldErrors map[string]string

// Validation reports per-field problems.
func Validation(fields FieldErrors) *ServiceError {
	e := newErr(CodeValidation, http.StatusUnprocessableEntity, fields.Summary(), nil)
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	e.Details = map[string]interface{}{"fields": out}
	return e
}

// Summary joins the first message; used as the top level error message.
func (f FieldErrors) Summary() string {
	if len(f) == 0 {
		return "validation failed"
	}
	if len(f) == 1 {
		for _, v := range f {
			return v
		}
	}
	return "one or more fields are invalid"
}

func BadRequest(message string) *ServiceError {
	return newErr(CodeBadRequest, http.StatusBadRequest, message, nil)
}

func Unauthorized(message string) *ServiceError {
	if strings.TrimSpace(message) == "" {
		message = "unauthorized"
	}
	return newErr(CodeUnauthorized, http.StatusUnauthorized, message, nil)
}

func InvalidToken(err error) *ServiceError {
	return newErr(CodeInvalidToken, http.StatusUnauthorized, "invalid or expired token", err)
}

func Forbidden(message string) *ServiceError {
	return newErr(CodeForbidden, http.StatusForbidden, message, nil)
}

func NotFound(message string) *ServiceError {
	return newErr(CodeNotFound, http.StatusNotFound, message, nil)
}

func Conflict(message string) *ServiceError {
	return newErr(CodeConflict, http.StatusConflict, message, nil)
}

func RateLimitExceeded(limit int, window string) *ServiceError {
	return newErr(CodeRateLimited, http.StatusTooManyRequests, "too many requests", nil).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

// Upstream wraps a failed call to an external collaborator. message is what
// the caller gets to see.
func Upstream(message string, err error) *ServiceError {
	return newErr(CodeUpstream, http.StatusBadGateway, message, err)
}

// Config reports missing or invalid configuration, raised before any network
// attempt is made.
func Config(message string) *ServiceError {
	return newErr(CodeConfig, http.StatusInternalServerError, message, nil)
}

func Internal(message string, err error) *ServiceError {
	return newErr(CodeInternal, http.StatusInternalServerError, message, err)
}

// GetServiceError returns the ServiceError in err's chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return nil
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	se := GetServiceError(err)
	return se != nil && se.Code == code
}
