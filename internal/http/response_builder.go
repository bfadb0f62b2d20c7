// Package http serves the insight engine over a JSON API.
//
// This file implements a small builder for consistent JSON responses.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    interface{}
	headers    map[string]string
}

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body.
func (b *JSONResponseBuilder) Data(v interface{}) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write encodes the response to w.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(b.payload); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// ErrorResponse creates an error response with the given status.
func ErrorResponse(status int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(status).Data(ErrorBody{Error: message, Status: status})
}

// BadRequestError creates a 400 response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// InternalError creates a 500 response with a generic message.
func InternalError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal error")
}

// ServiceUnavailableError creates a 503 response.
func ServiceUnavailableError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message)
}

// TooManyRequestsError creates a 429 response with a Retry-After header.
func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Header("Retry-After", "60")
}

// FromError maps client input errors to 400 and everything else to 500.
func FromError(err error) *JSONResponseBuilder {
	if errors.Is(err, ErrBadRequest) {
		return BadRequestError(err.Error())
	}
	return InternalError()
}
