// Package apperr provides the typed error model shared by the engine and
// its collaborators: error classification, a bounded error log, heuristic
// exception mapping, retry with backoff, and safe-call helpers.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors used by the service layer.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
)

// Type is the closed set of operational error kinds.
type Type string

const (
	TypeSaveFailed       Type = "save_failed"
	TypeLoadFailed       Type = "load_failed"
	TypeDeleteFailed     Type = "delete_failed"
	TypeNetwork          Type = "network_error"
	TypeTimeout          Type = "connection_timeout"
	TypeMissingTitle     Type = "missing_title"
	TypeMissingCategory  Type = "missing_category"
	TypeInvalidContent   Type = "invalid_content"
	TypeNotFound         Type = "not_found"
	TypePermissionDenied Type = "permission_denied"
	TypeUnauthorized     Type = "unauthorized_access"
	TypeSystem           Type = "system_error"
	TypeDatabase         Type = "database_error"
	TypeCorruptContent   Type = "content_corrupted"
	TypeUnknown          Type = "unknown_error"
)

// Severity of an operational error.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// AppError is a typed operational error with an explicit recoverable flag.
type AppError struct {
	Type        Type           `json:"type"`
	Message     string         `json:"message"`
	Details     any            `json:"details,omitempty"`
	Recoverable bool           `json:"recoverable"`
	Severity    Severity       `json:"severity"`
	Timestamp   time.Time      `json:"timestamp"`
	Context     map[string]any `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped cause when Details carries one.
func (e *AppError) Unwrap() error {
	if cause, ok := e.Details.(error); ok {
		return cause
	}
	return nil
}

// recoverableTypes is the static classification table. Recoverable kinds
// are those where a retry or a user correction is expected to succeed.
var recoverableTypes = map[Type]bool{
	TypeSaveFailed:      true,
	TypeLoadFailed:      true,
	TypeDeleteFailed:    true,
	TypeNetwork:         true,
	TypeTimeout:         true,
	TypeMissingTitle:    true,
	TypeMissingCategory: true,
	TypeInvalidContent:  true,
}

// severityOf maps an error type to its fixed severity.
func severityOf(t Type) Severity {
	switch t {
	case TypeSystem, TypeDatabase, TypeCorruptContent:
		return SeverityCritical
	case TypeMissingTitle, TypeMissingCategory, TypeInvalidContent:
		return SeverityWarning
	case TypeNotFound:
		return SeverityInfo
	default:
		return SeverityError
	}
}

// newError builds a classified AppError without logging it.
func newError(t Type, message string, details any, ctx map[string]any) *AppError {
	return &AppError{
		Type:        t,
		Message:     message,
		Details:     details,
		Recoverable: recoverableTypes[t],
		Severity:    severityOf(t),
		Timestamp:   time.Now(),
		Context:     ctx,
	}
}
