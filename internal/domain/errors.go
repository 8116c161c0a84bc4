package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

// AuthorizationError means the actor is not the renter, lender or admin the
// operation requires. It is never retried.
type AuthorizationError struct {
	ActorID int32
	Reason  string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("unauthorized: user %d %s", e.ActorID, e.Reason)
}

// InvalidTransitionError carries the current status so callers can resynchronize.
type InvalidTransitionError struct {
	Current RentalStatus
	Command Command
	Reason  string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("invalid transition: %s not allowed from %s", e.Command, e.Current)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// ValidationError reports malformed input field by field.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add records another field problem and returns the receiver for chaining.
func (e *ValidationError) Add(field, message string) *ValidationError {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = message
	return e
}

// OrNil returns nil when no field problems were collected.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
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

// ExternalDependencyError wraps a failing collaborator such as blob storage.
// Its message is safe to show to callers; the cause stays in the logs.
type ExternalDependencyError struct {
	Dependency string
	Err        error
}

func (e *ExternalDependencyError) Error() string {
	return fmt.Sprintf("%s is unavailable", e.Dependency)
}

func (e *ExternalDependencyError) Unwrap() error { return e.Err }

// ConsistencyViolation aborts an operation that would persist money or
// custody state breaking an invariant.
type ConsistencyViolation struct {
	Invariant string
}

func (e *ConsistencyViolation) Error() string {
	return "consistency violation: " + e.Invariant
}
