// Package apperr holds the error taxonomy shared by the saga, the
// generation pipeline, the work queue and the dialogue engine.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrTurnInProgress = errors.New("another turn is in progress for this session")
)

// ValidationError is malformed input. Nothing has been written when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// LocalStoreError aborts the whole operation.
type LocalStoreError struct {
	Op  string
	Err error
}

func (e *LocalStoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *LocalStoreError) Unwrap() error { return e.Err }

func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return &LocalStoreError{Op: op, Err: err}
}

// PlatformMirrorError records one failed or skipped mirror of a local row.
type PlatformMirrorError struct {
	Resource string
	LocalID  string
	Skipped  bool
	Err      error
}

func (e *PlatformMirrorError) Error() string {
	if e.Skipped {
		return fmt.Sprintf("mirror %s %s skipped: %v", e.Resource, e.LocalID, e.Err)
	}
	return fmt.Sprintf("mirror %s %s: %v", e.Resource, e.LocalID, e.Err)
}

func (e *PlatformMirrorError) Unwrap() error { return e.Err }

// CapabilityError is a failed scrape or generation call. Callers degrade to defaults.
type CapabilityError struct {
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// QueueConnectivityError means the broker itself is unreachable, not that a job failed.
type QueueConnectivityError struct {
	Op  string
	Err error
}

func (e *QueueConnectivityError) Error() string {
	return fmt.Sprintf("queue %s: %v", e.Op, e.Err)
}

func (e *QueueConnectivityError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsStore(err error) bool {
	var s *LocalStoreError
	return errors.As(err, &s)
}

func IsQueueConnectivity(err error) bool {
	var q *QueueConnectivityError
	return errors.As(err, &q)
}
