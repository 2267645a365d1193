package common

import "time"

// SessionCookieName is the default name of the cookie that carries the
// session token issued on login.
const SessionCookieName = "session_token"

const (
	// MinPasswordLength is the shortest password accepted on registration,
	// profile update and reset.
	MinPasswordLength = 6

	// MaxPasswordLength is the longest password bcrypt can hash, in bytes.
	MaxPasswordLength = 72

	// OTPDigits is the length of an email verification code.
	OTPDigits = 6

	// OTPValidity is how long a verification code stays usable.
	OTPValidity = 3 * time.Minute

	// SessionValidity is the lifetime of a session token and of the
	// client-held session descriptor.
	SessionValidity = 24 * time.Hour

	// AdminCacheValidity is how long a client may reuse a fetched admin status.
	AdminCacheValidity = 5 * time.Minute

	// TempPasswordLength is the length of passwords minted by a reset.
	TempPasswordLength = 10
)
