// Package models defines the client-side views of server data.
package models

import "time"

// User is the sanitized account returned by the server.
type User struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	FavoriteGame  string     `json:"favorite_game"`
	EmailVerified bool       `json:"email_verified"`
	SessionActive bool       `json:"session_active"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Profile is the public profile projection.
type Profile struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FavoriteGame string     `json:"favorite_game"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// Registration is the input of a sign-up.
type Registration struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword *string
	FavoriteGame    string
}

// ProfileChanges lists the fields to change; nil means unchanged.
type ProfileChanges struct {
	Username     *string `json:"username,omitempty"`
	Email        *string `json:"email,omitempty"`
	FavoriteGame *string `json:"favorite_game,omitempty"`
}
