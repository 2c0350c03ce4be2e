package main

import (
	"errors"
	"fmt"
)

// ErrBookNotFound is returned by every storage when no record matches the id.
var ErrBookNotFound = errors.New("book not found")

// StorageError reports a failure of the backing store itself
// (connection, encoding, transaction), as opposed to a missing record.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func NewStorageError(backend, op string, err error) *StorageError {
	return &StorageError{Backend: backend, Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s storage: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidationError reports an unreadable or invalid request payload.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

type missingFieldError string

func (m missingFieldError) Error() string {
	return string(m) + " is required"
}
