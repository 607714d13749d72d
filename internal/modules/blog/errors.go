package blog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hellorun/server/internal/models"
)

var (
	// ErrNotFound covers missing, soft-deleted and not-owned posts alike.
	ErrNotFound = errors.New("blog post not found")
	// ErrUnauthorized is returned when the actor lacks the role an operation needs.
	ErrUnauthorized = errors.New("not allowed to perform this action")
	// ErrEmailUnverified blocks submission from accounts without a verified address.
	ErrEmailUnverified = errors.New("verify your email address before submitting posts for review")
	// ErrSlugExhausted is returned when no free slug was found within the probe limit.
	ErrSlugExhausted = errors.New("unable to allocate a unique slug")
)

// ValidationError carries every rule violation found in a payload.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

func newValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

// StateConflictError reports a transition attempted from a status that forbids it.
type StateConflictError struct {
	Status models.BlogPostStatus
	Action string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s a post with status %q", e.Action, e.Status)
}

// StorageError wraps persistence and object-store failures.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsValidation reports whether err is a validation failure and returns its messages.
func IsValidation(err error) ([]string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Messages, true
	}
	return nil, false
}
