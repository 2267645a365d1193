// Package models defines the persisted user record and the projections of it
// that may leave the server.
package models

import "time"

// User is a row of the users table.
//
// VerificationCode and VerificationExpiresAt are either both set or both nil,
// and both are nil once EmailVerified is true.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	FavoriteGame string

	EmailVerified         bool
	VerificationCode      *string
	VerificationExpiresAt *time.Time

	SessionActive bool

	// SessionDigest is the SHA-256 of the current session token, never the token.
	SessionDigest    *string
	SessionExpiresAt *time.Time
	LastLogin        *time.Time
	LastLogout       *time.Time

	CreatedAt time.Time
}

// HasPendingCode reports whether an unexpired verification code is stored.
func (u *User) HasPendingCode(now time.Time) bool {
	return u.VerificationCode != nil && u.VerificationExpiresAt != nil && now.Before(*u.VerificationExpiresAt)
}

// Public strips credentials, verification and session secrets.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FavoriteGame:  u.FavoriteGame,
		EmailVerified: u.EmailVerified,
		SessionActive: u.SessionActive,
		LastLogin:     u.LastLogin,
		CreatedAt:     u.CreatedAt,
	}
}

// Profile returns the fixed profile projection.
func (u *User) Profile() Profile {
	return Profile{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FavoriteGame: u.FavoriteGame,
		CreatedAt:    u.CreatedAt,
		LastLogin:    u.LastLogin,
	}
}

// PublicUser is the user as returned to callers.
type PublicUser struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	FavoriteGame  string     `json:"favorite_game"`
	EmailVerified bool       `json:"email_verified"`
	SessionActive bool       `json:"session_active"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Profile struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FavoriteGame string     `json:"favorite_game"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// UserPatch is a partial update of user-editable columns. Nil fields are
// left untouched.
type UserPatch struct {
	Username     *string `json:"username,omitempty"`
	Email        *string `json:"email,omitempty"`
	FavoriteGame *string `json:"favorite_game,omitempty"`
	PasswordHash *string `json:"-"`
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.FavoriteGame == nil && p.PasswordHash == nil
}
