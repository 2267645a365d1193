// Package session models the login state the CLI keeps between runs.
package session

import "time"

// Descriptor is what a successful login leaves on the client.
type Descriptor struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Username         string    `json:"username,omitempty"`
	SessionToken     string    `json:"session_token"`
	SessionTimestamp time.Time `json:"session_timestamp"`
}

// Expired reports whether the descriptor is older than ttl at now. A
// descriptor without a timestamp is always expired.
func (d *Descriptor) Expired(now time.Time, ttl time.Duration) bool {
	if d == nil || d.SessionTimestamp.IsZero() {
		return true
	}
	return now.Sub(d.SessionTimestamp) >= ttl
}

// IsAuthenticated is a purely local check: a descriptor with a token that
// has not expired. No network call is involved.
func IsAuthenticated(d *Descriptor, now time.Time, ttl time.Duration) bool {
	return d != nil && d.SessionToken != "" && !d.Expired(now, ttl)
}
