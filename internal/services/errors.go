package services

import (
	"errors"
	"strings"
)

var (
	ErrInvalidAmount      = errors.New("order amount must be greater than zero")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidSignature   = errors.New("payment signature verification failed")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrDatabase           = errors.New("database unavailable")
)

// FieldError names one rejected request field.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError rejects a request before any state changes. It carries one
// entry per offending field so clients can surface them inline.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		parts = append(parts, field.Path+" "+field.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(path, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Path: path, Message: message}}}
}
