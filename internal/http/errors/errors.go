// Package errors define el tipo de error estándar de la capa HTTP y la
// lista de errores predefinidos del API.
package errors

import (
	"fmt"
	"net/http"
)

// AppError define la estructura estándar para errores de la aplicación.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"` // No se serializa, usado para el header
	Err        error  `json:"-"` // Causa original, útil para logs, no se expone al cliente
}

// Error implementa la interfaz error.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap permite acceder al error original.
func (e *AppError) Unwrap() error { return e.Err }

// New crea un nuevo AppError.
func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// FromError intenta convertir un error genérico en un AppError.
// Si no es un AppError, devuelve un error interno genérico conservando la causa.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternalServerError.WithCause(err)
}

// WithDetail agrega detalle al error. Devuelve una COPIA para no mutar
// las variables globales base.
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause agrega la causa original. Devuelve una COPIA.
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// =================================================================================
// LISTA DE ERRORES PREDEFINIDOS
// =================================================================================

var (
	// 400
	ErrBadRequest        = &AppError{HTTPStatus: http.StatusBadRequest, Code: "bad_request", Message: "invalid request"}
	ErrValidation        = &AppError{HTTPStatus: http.StatusBadRequest, Code: "validation_failed", Message: "request validation failed"}
	ErrInvalidJSON       = &AppError{HTTPStatus: http.StatusBadRequest, Code: "invalid_json", Message: "request body is not valid JSON"}
	ErrUnknownFramework  = &AppError{HTTPStatus: http.StatusBadRequest, Code: "unknown_framework", Message: "unknown compliance framework"}
	ErrInvalidConsent    = &AppError{HTTPStatus: http.StatusBadRequest, Code: "invalid_consent_type", Message: "invalid consent type"}

	// 401 / 403
	ErrUnauthorized = &AppError{HTTPStatus: http.StatusUnauthorized, Code: "unauthorized", Message: "missing or invalid credentials"}
	ErrForbidden    = &AppError{HTTPStatus: http.StatusForbidden, Code: "forbidden", Message: "insufficient permissions"}
	ErrAgentBlocked = &AppError{HTTPStatus: http.StatusForbidden, Code: "agent_blocked", Message: "agent is blocked for this user"}

	// 404
	ErrNotFound         = &AppError{HTTPStatus: http.StatusNotFound, Code: "not_found", Message: "resource not found"}
	ErrAgentNotFound    = &AppError{HTTPStatus: http.StatusNotFound, Code: "agent_not_found", Message: "agent not found"}
	ErrOverrideNotFound = &AppError{HTTPStatus: http.StatusNotFound, Code: "override_not_found", Message: "override not found"}

	// 409
	ErrConflict        = &AppError{HTTPStatus: http.StatusConflict, Code: "conflict", Message: "resource already exists"}
	ErrOverrideRevoked = &AppError{HTTPStatus: http.StatusConflict, Code: "override_revoked", Message: "override already revoked"}

	// 5xx
	ErrInternalServerError = &AppError{HTTPStatus: http.StatusInternalServerError, Code: "internal_error", Message: "internal server error"}
	ErrServiceUnavailable  = &AppError{HTTPStatus: http.StatusServiceUnavailable, Code: "service_unavailable", Message: "dependency unavailable"}
)
