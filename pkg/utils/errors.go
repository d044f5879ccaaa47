package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies an error category in API responses
type ErrorCode string

const (
	CodeBadRequest     ErrorCode = "BAD_REQUEST"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeKeyNotFound    ErrorCode = "KEY_NOT_FOUND"
	CodeKeyNotReady    ErrorCode = "KEY_NOT_READY"
	CodeChainRevert    ErrorCode = "CHAIN_REVERT"
	CodeEncoding       ErrorCode = "ENCODING_ERROR"
	CodeAccountBuild   ErrorCode = "ACCOUNT_CONSTRUCTION_ERROR"
	CodeDetailParse    ErrorCode = "DETAIL_PARSE_ERROR"
	CodeUnavailable    ErrorCode = "UNAVAILABLE"
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeMethodNotAllow ErrorCode = "METHOD_NOT_ALLOWED"
)

// Error is the service-wide structured error carried between layers and
// rendered by the API package.
type Error struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the original cause for errors.Is / errors.As chains
func (e *Error) Unwrap() error {
	return e.cause
}

// GetHTTPStatus returns the HTTP status this error maps to
func (e *Error) GetHTTPStatus() int {
	if e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}

// WithDetail attaches a key/value pair to the error's details
func (e *Error) WithDetail(key string, val interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = val
	return e
}

// WithCause records the underlying cause without exposing it to clients
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// Constructors

func NewBadRequestError(message string) *Error {
	return &Error{Code: CodeBadRequest, Message: message, HTTPStatus: http.StatusBadRequest}
}

func NewNotFoundError(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message, HTTPStatus: http.StatusNotFound}
}

func NewUnavailableError(message string) *Error {
	return &Error{Code: CodeUnavailable, Message: message, HTTPStatus: http.StatusServiceUnavailable}
}

func NewInternalError(message string) *Error {
	return &Error{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError}
}

// AsError extracts a *Error from an error chain, or wraps the error as an
// internal error so callers always have a structured error to render.
func AsError(err error) *Error {
	var structured *Error
	if errors.As(err, &structured) {
		return structured
	}
	return NewInternalError("An unexpected error occurred").WithCause(err)
}
