package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/creatist/postfeed/internal/feed"
	"github.com/creatist/postfeed/internal/posts"
)

// Standard JSON-RPC error codes
const (
	ErrParseError     = -32700
	ErrInvalidRequest = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternalError  = -32603

	// Application codes
	ErrServerError  = -32000
	ErrUnauthorized = -32001
)

// Error represents an API error
type Error struct {
	Code    int
	Message string
}

// NewError creates a new API error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

var errUnauthenticated = NewError(ErrUnauthorized, "authentication required")

func invalidParams(err error) *Error {
	return NewError(ErrInvalidParams, fmt.Sprintf("invalid parameters: %v", err))
}

// classify maps an error to its JSON-RPC code, HTTP status and client message.
func classify(err error) (code int, status int, message string) {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code, httpStatus(apiErr.Code), apiErr.Message
	case errors.Is(err, posts.ErrValidation), errors.Is(err, feed.ErrInvalidFilters):
		return ErrInvalidParams, http.StatusBadRequest, err.Error()
	default:
		return ErrServerError, http.StatusInternalServerError, "Server error"
	}
}

func httpStatus(code int) int {
	switch code {
	case ErrParseError, ErrInvalidRequest, ErrInvalidParams:
		return http.StatusBadRequest
	case ErrMethodNotFound:
		return http.StatusNotFound
	case ErrUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
