package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Error codes carried in the envelope's error.code field.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeMissingCredentials = "MISSING_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeInvalidActionToken = "INVALID_ACTION_TOKEN"
	CodeAccountUnavailable = "ACCOUNT_UNAVAILABLE"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeForbidden          = "FORBIDDEN"
	CodeAccountInactive    = "ACCOUNT_INACTIVE"
	CodeNotFound           = "NOT_FOUND"
	CodeDuplicate          = "DUPLICATE"
	CodeBusinessRule       = "BUSINESS_RULE"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
)

// Envelope is the uniform body of every API response.
type Envelope struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Message   string     `json:"message,omitempty"`
	Error     *ErrorBody `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// Error is an HTTP-facing failure. Handlers build one and call Write.
type Error struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// Write renders e as an envelope.
func (e *Error) Write(w http.ResponseWriter) {
	WriteJSON(w, e.Status, Envelope{
		Success:   false,
		Message:   e.Message,
		Error:     &ErrorBody{Code: e.Code, Details: e.Details},
		Timestamp: time.Now().UTC(),
	})
}

// NewError builds an Error with the given status, code and message.
func NewError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func ErrMissingCredentials() *Error {
	return NewError(http.StatusUnauthorized, CodeMissingCredentials, "Token de acceso requerido")
}

func ErrInvalidToken(kind string) *Error {
	return NewError(http.StatusUnauthorized, CodeInvalidToken, "Token inválido").WithDetails(kind)
}

func ErrAccountUnavailable() *Error {
	return NewError(http.StatusUnauthorized, CodeAccountUnavailable, "Cuenta no disponible")
}

func ErrAccountInactive() *Error {
	return NewError(http.StatusForbidden, CodeAccountInactive, "Cuenta inactiva")
}

func ErrForbidden() *Error {
	return NewError(http.StatusForbidden, CodeForbidden, "Permisos insuficientes")
}

func ErrNotFound(resource string) *Error {
	return NewError(http.StatusNotFound, CodeNotFound, resource+" no encontrado")
}

func ErrInternal() *Error {
	return NewError(http.StatusInternalServerError, CodeInternal, "Error interno del servidor")
}

// WriteData writes a successful envelope.
func WriteData(w http.ResponseWriter, status int, data any, message string) {
	WriteJSON(w, status, Envelope{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// This is commonly required for sensitive responses like tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
