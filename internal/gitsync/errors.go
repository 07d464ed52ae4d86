package gitsync

import (
	"errors"
	"fmt"
)

const pushRetriesExhaustedTemplateConstant = "failed to push changes after %d attempts"

var (
	// ErrServiceNotConfigured indicates missing synchronizer dependencies.
	ErrServiceNotConfigured = errors.New("git synchronizer not configured")
	// ErrPushRetriesExhausted indicates every push attempt failed.
	ErrPushRetriesExhausted = errors.New("push retries exhausted")
)

// PushRetriesExhaustedError reports the number of failed push attempts and the last failure.
type PushRetriesExhaustedError struct {
	Attempts  int
	LastError error
}

// Error describes the exhausted retries.
func (exhaustedError PushRetriesExhaustedError) Error() string {
	return fmt.Sprintf(pushRetriesExhaustedTemplateConstant, exhaustedError.Attempts)
}

// Is matches ErrPushRetriesExhausted.
func (exhaustedError PushRetriesExhaustedError) Is(target error) bool {
	return target == ErrPushRetriesExhausted
}

// Unwrap exposes the last push failure.
func (exhaustedError PushRetriesExhaustedError) Unwrap() error {
	return exhaustedError.LastError
}
