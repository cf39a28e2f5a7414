package types

import (
	"errors"
	"fmt"
)

// TransientError marks a provider failure worth retrying: throttling,
// dependency violations, resources still mid-transition.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// PermanentError marks a provider failure that retrying cannot fix:
// access denied, malformed identifiers.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as not retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// NotFoundError reports that the resource no longer exists.
type NotFoundError struct {
	ResourceID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource %s not found", e.ResourceID)
}

// ScopeUnreachableError is a scope-level discovery failure: bad
// credentials or an unreachable region. It marks the scope Skipped
// and never halts other scopes.
type ScopeUnreachableError struct {
	Scope Scope
	Err   error
}

func (e *ScopeUnreachableError) Error() string {
	return fmt.Sprintf("scope %s unreachable: %v", e.Scope, e.Err)
}

func (e *ScopeUnreachableError) Unwrap() error { return e.Err }

// IsTransient reports whether err is classified retryable.
// Unclassified errors count as transient: wrongly giving up on a
// retryable failure leaks resources, wrongly retrying a permanent
// one only wastes the retry budget.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var perm *PermanentError
	if errors.As(err, &perm) {
		return false
	}
	var nf *NotFoundError
	return !errors.As(err, &nf)
}

// IsPermanent reports whether err is classified not retryable.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}

// IsNotFound reports whether err means the resource is already gone.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
