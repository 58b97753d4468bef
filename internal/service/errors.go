package service

import (
	"errors"
	"fmt"
)

// --- Error Definitions ---
var (
	ErrNotFound        = errors.New("not found")
	ErrEventNotFound   = fmt.Errorf("food event %w", ErrNotFound)
	ErrFoodLogNotFound = fmt.Errorf("food log row %w", ErrNotFound)
	ErrInvalidCategory = fmt.Errorf("checklist category %w", ErrNotFound)
	ErrItemNotFound    = fmt.Errorf("checklist item %w", ErrNotFound)
	ErrExportDisabled  = errors.New("snapshot export is not configured")
)

// ValidationError reports input rejected before any storage I/O.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// BackendError wraps a storage failure. Nothing from the failed operation was persisted.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsBackend reports whether err is a *BackendError.
func IsBackend(err error) bool {
	var b *BackendError
	return errors.As(err, &b)
}
