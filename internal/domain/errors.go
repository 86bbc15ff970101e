package domain

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// ValidationError marks bad input rejected before any side effect. It is
// never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError anywhere in its chain.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ConflictError marks an overlap detected at write time. Distinct from
// validation so callers can offer "try another time"; never retried
// automatically.
type ConflictError struct {
	HostID int64
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

func NewConflictError(hostID int64, reason string) *ConflictError {
	return &ConflictError{HostID: hostID, Reason: reason}
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// DependencyError marks the failure of a required collaborator (booking
// store, request store). The whole read or write aborts rather than
// returning a partially correct result.
type DependencyError struct {
	Source string
	Err    error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Source, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

func NewDependencyError(source string, err error) *DependencyError {
	return &DependencyError{Source: source, Err: err}
}

func IsDependency(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}
