// Package common defines shared constants and sentinel errors used across
// client and server layers of lootshop. Callers should use errors.Is to
// match these values and errors.As to extract payload-carrying wrappers.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrorConstraint    = errors.New("constraint violation")

	// Input errors.
	ErrValidation = errors.New("validation error")

	// Account lifecycle errors.
	ErrDuplicateUser        = errors.New("user with this email already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrEmailNotVerified     = errors.New("email not verified")
	ErrAlreadyVerified      = errors.New("email already verified")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired verification code")
	ErrRateLimited          = errors.New("too many requests")

	// Collaborator failures.
	ErrNotification     = errors.New("failed to send notification")
	ErrStorage          = errors.New("storage error")
	ErrFetch            = errors.New("failed to fetch updated record")
	ErrIdentityProvider = errors.New("identity provider error")

	// Session and authorization errors.
	ErrInvalidSession = errors.New("invalid session")
	ErrSessionExpired = errors.New("session expired")
	ErrForbidden      = errors.New("forbidden")

	// Service-level catch-all.
	ErrorInternal = errors.New("internal error")
)

// Validationf builds an ErrValidation carrying a user-readable reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// RetryAfterError decorates a sentinel with the number of seconds the caller
// has to wait before the operation can succeed.
type RetryAfterError struct {
	Err     error
	Seconds int
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("%v: retry in %ds", e.Err, e.Seconds)
}

func (e *RetryAfterError) Unwrap() error { return e.Err }

// VerificationRequiredError is returned by login when the password is correct
// but the email has not been verified yet. A code is outstanding for
// RetryAfter more seconds.
type VerificationRequiredError struct {
	Email      string
	RetryAfter int
}

func (e *VerificationRequiredError) Error() string {
	return fmt.Sprintf("%v: %s", ErrEmailNotVerified, e.Email)
}

func (e *VerificationRequiredError) Unwrap() error { return ErrEmailNotVerified }

// RetryAfter reports the wait carried by err, if any.
func RetryAfter(err error) (int, bool) {
	var ra *RetryAfterError
	if errors.As(err, &ra) {
		return ra.Seconds, true
	}
	var vr *VerificationRequiredError
	if errors.As(err, &vr) {
		return vr.RetryAfter, true
	}
	return 0, false
}
