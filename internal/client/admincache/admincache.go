// Package admincache holds the client-side copy of the caller's admin
// status together with the time it was fetched.
package admincache

import (
	"time"

	"github.com/dmitrijs2005/lootshop/internal/authz"
)

// Entry is a cached admin authorization. Entries written before FetchedAt
// was recorded have a zero FetchedAt and are never served.
type Entry struct {
	Result    authz.Authorization `json:"result"`
	FetchedAt time.Time           `json:"fetched_at"`
}

// Fresh reports whether e may be served at now.
func (e *Entry) Fresh(now time.Time, ttl time.Duration) bool {
	if e == nil || e.FetchedAt.IsZero() {
		return false
	}
	age := now.Sub(e.FetchedAt)
	return age >= 0 && age < ttl
}
