package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Thermap error code.
type ErrorCode string

const (
	ErrIO                ErrorCode = "IO"                // 500
	ErrSchema            ErrorCode = "SCHEMA"            // 422
	ErrMissingElement    ErrorCode = "MISSING_ELEMENT"   // 422
	ErrUnknownElement    ErrorCode = "UNKNOWN_ELEMENT"   // 422
	ErrElectroneutrality ErrorCode = "ELECTRONEUTRALITY" // 422
	ErrNoDatabase        ErrorCode = "NO_DATABASE"       // 404
	ErrEmptySource       ErrorCode = "EMPTY_SOURCE"      // 422
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"         // 404
	ErrInternal          ErrorCode = "INTERNAL"          // 500
)

// ThermapError represents a structured error with code, status, and details.
type ThermapError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *ThermapError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ThermapError) Unwrap() error {
	return e.Cause
}

// NewIO creates a 500 error for an unreadable reference source.
func NewIO(path string, cause error) *ThermapError {
	msg := fmt.Sprintf("cannot read %s", path)
	if cause != nil {
		msg = fmt.Sprintf("cannot read %s: %v", path, cause)
	}
	return &ThermapError{
		Code:    ErrIO,
		Status:  500,
		Message: msg,
		Details: map[string]any{"path": path},
		Cause:   cause,
	}
}

// NewSchema creates a 422 error for a malformed line in a reference source.
// field is the 1-based position of the offending token, or 0 when the whole
// line is at fault (wrong token count).
func NewSchema(source string, line, field int, token, reason string) *ThermapError {
	var msg string
	if field > 0 {
		msg = fmt.Sprintf("%s line %d: bad format for %q in field %d: %s", source, line, token, field, reason)
	} else {
		msg = fmt.Sprintf("%s line %d: %s", source, line, reason)
	}
	details := map[string]any{"source": source, "line": line}
	if field > 0 {
		details["field"] = field
		details["token"] = token
	}
	return &ThermapError{
		Code:    ErrSchema,
		Status:  422,
		Message: msg,
		Details: details,
	}
}

// NewMissingElement creates a 422 error when a species formula cannot be
// resolved against the element catalog.
func NewMissingElement(species, remainder string) *ThermapError {
	return &ThermapError{
		Code:    ErrMissingElement,
		Status:  422,
		Message: fmt.Sprintf("missing element required by %s species (unresolved %q)", species, remainder),
		Details: map[string]any{"species": species, "remainder": remainder},
	}
}

// NewUnknownElement creates a 422 error when a computation references an
// element absent from the active catalog.
func NewUnknownElement(element string) *ThermapError {
	return &ThermapError{
		Code:    ErrUnknownElement,
		Status:  422,
		Message: fmt.Sprintf("unknown element: %s", element),
		Details: map[string]any{"element": element},
	}
}

// NewElectroneutrality creates a 422 error for a charge-unbalanced composition.
func NewElectroneutrality(sum float64) *ThermapError {
	return &ThermapError{
		Code:    ErrElectroneutrality,
		Status:  422,
		Message: fmt.Sprintf("check the electroneutrality: net charge is %g", sum),
		Details: map[string]any{"charge_sum": sum},
	}
}

// NewNoDatabase creates a 404 error when discovery finds no database sets.
func NewNoDatabase(dir string) *ThermapError {
	return &ThermapError{
		Code:    ErrNoDatabase,
		Status:  404,
		Message: fmt.Sprintf("no databases found in %s", dir),
		Details: map[string]any{"dir": dir},
	}
}

// NewEmptySource creates a 422 error for a discovered source with no content.
func NewEmptySource(file string) *ThermapError {
	return &ThermapError{
		Code:    ErrEmptySource,
		Status:  422,
		Message: fmt.Sprintf("no data in the file %s", file),
		Details: map[string]any{"file": file},
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ThermapError {
	return &ThermapError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing database or calculation.
func NewNotFound(what, identifier string) *ThermapError {
	return &ThermapError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", what, identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *ThermapError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ThermapError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Cause:   err,
	}
}

// Is checks if an error is (or wraps) a ThermapError with the given code.
func Is(err error, code ErrorCode) bool {
	var tErr *ThermapError
	if stderrors.As(err, &tErr) {
		return tErr.Code == code
	}
	return false
}

// IsFatal reports whether err leaves the session without usable catalogs.
func IsFatal(err error) bool {
	return Is(err, ErrIO) || Is(err, ErrNoDatabase)
}
