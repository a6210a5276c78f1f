package giterror

import "fmt"

// RetryError records that an error survived a number of retry attempts.
type RetryError struct {
	Err         error
	Attempt     int
	MaxAttempts int
}

// WithRetryInfo annotates err with the attempt it failed on.
func WithRetryInfo(err error, attempt, maxAttempts int) error {
	if err == nil {
		return nil
	}
	return &RetryError{Err: err, Attempt: attempt, MaxAttempts: maxAttempts}
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("attempt %d/%d: %v", e.Attempt, e.MaxAttempts, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

// UserActionError pairs an error with a hint the CLI prints for the user.
type UserActionError struct {
	Err    error
	Action string
}

// WithUserAction attaches a user-facing remediation hint to err.
func WithUserAction(err error, action string) error {
	if err == nil {
		return nil
	}
	return &UserActionError{Err: err, Action: action}
}

func (e *UserActionError) Error() string {
	return fmt.Sprintf("%v. %s", e.Err, e.Action)
}

func (e *UserActionError) Unwrap() error { return e.Err }
