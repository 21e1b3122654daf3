// Package http exposes the donation services as a JSON REST API.
//
// This file implements a small builder for JSON responses and the mapping
// from domain errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"donations/internal/core"
	"donations/internal/log"
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

// JSON sets the value encoded as the body.
func (b *JSONResponseBuilder) JSON(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type messageBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type validationBody struct {
	Message string                `json:"message"`
	Errors  core.ValidationErrors `json:"errors"`
}

// ErrorResponse creates a {message} response with the given status.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).JSON(messageBody{Message: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnauthorizedError creates a 401 response.
func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message).Header("WWW-Authenticate", `Bearer realm="donations"`)
}

// ForbiddenError creates a 403 response.
func ForbiddenError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusForbidden, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// ValidationError creates a 400 response listing every field error.
func ValidationError(errs core.ValidationErrors) *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusBadRequest).
		JSON(validationBody{Message: "Validation failed", Errors: errs})
}

// writeError maps err onto a response. Unclassified errors are logged and
// answered with 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if verrs, ok := core.IsValidation(err); ok {
		ValidationError(verrs).Write(w)
		return
	}

	switch {
	case errors.Is(err, core.ErrInvalidIdentifier):
		BadRequestError(messageOr(err, "Invalid identifier")).Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError(messageOr(err, "Not found")).Write(w)
	case errors.Is(err, core.ErrConflict):
		ErrorResponse(http.StatusConflict, messageOr(err, "Conflict")).Write(w)
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		body := messageBody{Message: "Internal server error"}
		if !s.opts.Production {
			body.Detail = err.Error()
		}
		NewJSONResponse().Status(http.StatusInternalServerError).JSON(body).Write(w)
	}
}

func messageOr(err error, fallback string) string {
	if msg := core.Message(err); msg != "" {
		return msg
	}
	return fallback
}
