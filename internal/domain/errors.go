package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyVoted      = errors.New("already voted")
	ErrRateLimited       = errors.New("rate limited")
	ErrSuspiciousPattern = errors.New("suspicious voting pattern")
	ErrDuplicateVote     = errors.New("duplicate vote")
	ErrUserNotFound      = errors.New("user not found")
	ErrIdeaNotFound      = errors.New("idea not found")
	ErrTransientStore    = errors.New("transient store failure")
)

// RejectionError is a vote refused for a business reason. Reason is safe to show to the voter.
type RejectionError struct {
	Reason string
	Err    error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Reason)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

// Reject wraps a sentinel with a human-readable reason.
func Reject(sentinel error, reason string) error {
	return &RejectionError{Reason: reason, Err: sentinel}
}

// Transient wraps a store failure so callers can match ErrTransientStore.
func Transient(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransientStore, err)
}

// RejectionReason returns the voter-facing reason, or "" if err is not a rejection.
func RejectionReason(err error) string {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return ""
}
