package vfs

import (
	"errors"
	"fmt"
)

// Error represents a domain error from a FileSystem operation.
//
// Every public operation either succeeds or fails with exactly one Error.
// Infrastructure failures from the persistence engine are reported with
// Code ErrStorage and the original error in Err.
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the entry path related to the error (if applicable)
	Path string

	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode represents the category of a FileSystem error.
type ErrorCode int

const (
	// ErrNotFound indicates the entry, version, trash item or share doesn't exist
	ErrNotFound ErrorCode = iota

	// ErrAlreadyExists indicates the target path is occupied
	ErrAlreadyExists

	// ErrPermissionDenied indicates the acting principal lacks a permission bit
	ErrPermissionDenied

	// ErrLockConflict indicates another principal holds a live lock
	ErrLockConflict

	// ErrInvalidOperation indicates a shape mismatch or an illegal request.
	// Examples: reading a folder, moving the root, moving into own subtree
	ErrInvalidOperation

	// ErrStorage indicates the persistence engine failed
	ErrStorage
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "NotFound"
	case ErrAlreadyExists:
		return "AlreadyExists"
	case ErrPermissionDenied:
		return "PermissionDenied"
	case ErrLockConflict:
		return "LockConflict"
	case ErrInvalidOperation:
		return "InvalidOperation"
	case ErrStorage:
		return "StorageError"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// IsCode reports whether err is (or wraps) an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// CodeOf returns the code of err, and false if err is not an *Error.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

func newError(code ErrorCode, path, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Path: path}
}

func notFound(path, what string) error {
	return newError(ErrNotFound, path, "%s not found", what)
}

func alreadyExists(path string) error {
	return newError(ErrAlreadyExists, path, "path already exists")
}

func invalidOperation(path, format string, args ...any) error {
	return newError(ErrInvalidOperation, path, format, args...)
}

func lockConflict(path, owner string) error {
	return newError(ErrLockConflict, path, "locked by %s", owner)
}

// storageError wraps an infrastructure error. Domain errors pass through.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Code: ErrStorage, Message: op + " failed", Err: err}
}
