package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents an inkwell error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"  // 404
	ErrCorruptRecord  ErrorCode = "CORRUPT_RECORD"  // 422
	ErrCancelled      ErrorCode = "CANCELLED"       // 499
	ErrPersistence    ErrorCode = "PERSISTENCE"     // 500
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// InkError represents a structured error with code, status, and details.
type InkError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// Err is the underlying cause, if any. Not exposed to MCP clients.
	Err error
}

// Error implements the error interface.
func (e *InkError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *InkError) Unwrap() error {
	return e.Err
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *InkError {
	return &InkError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing snapshot in the named store.
// version 0 means "latest".
func NewNotFound(store string, version int) *InkError {
	msg := fmt.Sprintf("no snapshots in %s", store)
	if version > 0 {
		msg = fmt.Sprintf("%s version %d not found", store, version)
	}
	return &InkError{
		Code:    ErrNotFound,
		Status:  404,
		Message: msg,
		Details: map[string]any{"store": store, "version": version},
	}
}

// NewFileNotFound creates a 404 error for a missing archive file.
func NewFileNotFound(path string) *InkError {
	return &InkError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewCorruptRecord creates a 422 error for a persisted record that fails to parse
// or whose checksum does not match.
func NewCorruptRecord(location string, cause error) *InkError {
	msg := fmt.Sprintf("corrupt snapshot record: %s", location)
	if cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, cause)
	}
	return &InkError{
		Code:    ErrCorruptRecord,
		Status:  422,
		Message: msg,
		Details: map[string]any{"location": location},
		Err:     cause,
	}
}

// NewCancelled creates a 499 error when the caller's context ended before the
// operation began.
func NewCancelled(operation string) *InkError {
	return &InkError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewPersistence creates a 500 error for a failed durable read or write.
func NewPersistence(op string, err error) *InkError {
	msg := op
	if err != nil {
		msg = fmt.Sprintf("%s: %v", op, err)
	}
	return &InkError{
		Code:    ErrPersistence,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *InkError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &InkError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// Is checks if err, or any error it wraps, is an InkError with the given code.
func Is(err error, code ErrorCode) bool {
	var inkErr *InkError
	if stderrors.As(err, &inkErr) {
		return inkErr.Code == code
	}
	return false
}

// As returns the first InkError in err's chain.
func As(err error) (*InkError, bool) {
	var inkErr *InkError
	ok := stderrors.As(err, &inkErr)
	return inkErr, ok
}
