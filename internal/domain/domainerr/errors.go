// Package domainerr holds the error taxonomy shared by the domain, the
// repositories and the HTTP layer. None of these errors are retried.
package domainerr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrIllegalState = errors.New("illegal state")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// ValidationError reports malformed input to a value object or aggregate field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// IllegalStateError reports an operation attempted against an aggregate in an
// incompatible status.
type IllegalStateError struct {
	Op     string
	Status string
	Reason string
}

func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("%s: %s (status %s)", e.Op, e.Reason, e.Status)
}

func (e *IllegalStateError) Is(target error) bool { return target == ErrIllegalState }

type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError reports a uniqueness violation, e.g. an email already owned by
// another user.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already in use: %s", e.Field, e.Value)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func IllegalState(op, status, reason string) error {
	return &IllegalStateError{Op: op, Status: status, Reason: reason}
}

func NotFound(resource, key string) error {
	return &NotFoundError{Resource: resource, Key: key}
}

func Conflict(field, value string) error {
	return &ConflictError{Field: field, Value: value}
}
