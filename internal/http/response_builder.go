// Package http provides the JSON API server and its handlers.
//
// This file implements a small builder for JSON responses and the mapping
// from domain errors to HTTP status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"payoff/internal/core"
	applog "payoff/internal/log"
	"payoff/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value to encode. A nil body writes no content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write marshals the body before sending the header, so an encoding failure
// still produces a clean 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	data, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"internal_error","message":"response encoding failed"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(data, '\n'))
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type errorBody struct {
	Error   apiError `json:"error"`
	Preview any      `json:"preview,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorBody{Error: apiError{Code: code, Message: message}})
}

// MethodNotAllowedError creates a 405 response listing the allowed methods.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed").
		Header("Allow", allowedMethods)
}

// classifyError maps a domain error to a status code and error type.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest, applog.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, applog.ErrorTypeNotFound
	case errors.Is(err, core.ErrConfirmationRequired), errors.Is(err, services.ErrNoSelection):
		return http.StatusConflict, applog.ErrorTypeConflict
	case errors.Is(err, services.ErrExportUnavailable):
		return http.StatusServiceUnavailable, applog.ErrorTypeUnavailable
	default:
		return http.StatusInternalServerError, applog.ErrorTypeInternal
	}
}

// errorResponseFor builds the response for err. preview is attached to
// confirmation-required conflicts so callers can show what would be removed.
func errorResponseFor(err error, preview any) *JSONResponseBuilder {
	status, errorType := classifyError(err)
	body := errorBody{Error: apiError{Code: errorType, Message: err.Error()}}

	var ve *core.ValidationError
	if errors.As(err, &ve) {
		body.Error.Field = ve.Field
	}
	switch {
	case status == http.StatusInternalServerError:
		// Storage and transport details stay in the logs.
		body.Error.Message = "internal error"
	case errors.Is(err, core.ErrConfirmationRequired):
		body.Preview = preview
	}
	return NewJSONResponse().Status(status).Body(body)
}
