package common

import "errors"

// Machine-readable error codes carried in API error envelopes.
const (
	CodeValidation       = "validation"
	CodeDuplicateUser    = "duplicate_user"
	CodeUserNotFound     = "user_not_found"
	CodeNotFound         = "not_found"
	CodeInvalidCreds     = "invalid_credentials"
	CodeEmailNotVerified = "email_not_verified"
	CodeAlreadyVerified  = "already_verified"
	CodeInvalidCode      = "invalid_or_expired_code"
	CodeRateLimited      = "rate_limited"
	CodeNotification     = "notification"
	CodeStorage          = "storage"
	CodeFetch            = "fetch"
	CodeIdentity         = "identity_provider"
	CodeInvalidSession   = "invalid_session"
	CodeSessionExpired   = "session_expired"
	CodeForbidden        = "forbidden"
	CodeInternal         = "internal"
)

var codeTable = []struct {
	code string
	err  error
}{
	// Order matters: more specific kinds first.
	{CodeValidation, ErrValidation},
	{CodeDuplicateUser, ErrDuplicateUser},
	{CodeUserNotFound, ErrUserNotFound},
	{CodeNotFound, ErrorNotFound},
	{CodeInvalidCreds, ErrInvalidCredentials},
	{CodeEmailNotVerified, ErrEmailNotVerified},
	{CodeAlreadyVerified, ErrAlreadyVerified},
	{CodeInvalidCode, ErrInvalidOrExpiredCode},
	{CodeRateLimited, ErrRateLimited},
	{CodeNotification, ErrNotification},
	{CodeStorage, ErrStorage},
	{CodeFetch, ErrFetch},
	{CodeIdentity, ErrIdentityProvider},
	{CodeInvalidSession, ErrInvalidSession},
	{CodeSessionExpired, ErrSessionExpired},
	{CodeForbidden, ErrForbidden},
}

// ErrorCode returns the machine code of err's kind, CodeInternal when err
// matches none.
func ErrorCode(err error) string {
	for _, c := range codeTable {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// ErrorForCode is the inverse of ErrorCode. Unknown codes map to
// ErrorInternal.
func ErrorForCode(code string) error {
	for _, c := range codeTable {
		if c.code == code {
			return c.err
		}
	}
	return ErrorInternal
}
