package usecase

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"cleaning-booking/pkg/utils"
)

// Error kinds the adaptor layer maps to HTTP statuses.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("service unavailable")
)

// serviceError carries a client-facing message and unwraps to its kind.
type serviceError struct {
	kind error
	msg  string
}

func (e *serviceError) Error() string { return e.msg }
func (e *serviceError) Unwrap() error { return e.kind }

func newError(kind error, format string, args ...any) error {
	return &serviceError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// ValidationError lists the offending fields.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func fieldError(field, message string) error {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// validate runs the struct tags and returns a *ValidationError on failure.
func validate(req any) error {
	if fields := utils.ValidateStruct(req); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
