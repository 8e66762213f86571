package unfollow

import (
	"fmt"

	"igunfollow/pkg/models"
)

// ConfigurationError means the run could not start because credentials are
// missing. No network call has been made.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("instagram credentials not configured: missing %v", e.Missing)
}

// AuthenticationError wraps a failed login. Its message is the underlying
// error's message unchanged.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return e.Err.Error()
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// FetchError means a relation list could not be loaded after all attempts.
// Which is "followers" or "following"; Err is the last attempt's error.
type FetchError struct {
	Which    string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to get %s: %v", e.Which, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// UnfollowError is a failed unfollow of one account. It is counted and
// logged but never fails the run.
type UnfollowError struct {
	Account models.Account
	Err     error
}

func (e *UnfollowError) Error() string {
	return fmt.Sprintf("failed to unfollow %s (%s): %v", e.Account.Username, e.Account.ID, e.Err)
}

func (e *UnfollowError) Unwrap() error {
	return e.Err
}

// LogoutError is a failed logout. It is logged and otherwise ignored.
type LogoutError struct {
	Err error
}

func (e *LogoutError) Error() string {
	return fmt.Sprintf("logout failed: %v", e.Err)
}

func (e *LogoutError) Unwrap() error {
	return e.Err
}
