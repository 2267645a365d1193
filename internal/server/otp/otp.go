// Package otp issues short numeric one-time codes with a fixed validity window.
package otp

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/lootshop/internal/common"
	"github.com/dmitrijs2005/lootshop/internal/timex"
)

type Code struct {
	Value     string
	ExpiresAt time.Time
}

type Generator struct {
	Digits int
	TTL    time.Duration
	Now    timex.Clock

	// random is swapped in tests.
	random func(n int) (string, error)
}

func NewGenerator(ttl time.Duration, now timex.Clock) *Generator {
	if now == nil {
		now = timex.UTCNow
	}
	return &Generator{
		Digits: common.OTPDigits,
		TTL:    ttl,
		Now:    now,
		random: common.GenerateNumericCode,
	}
}

// New returns a fresh code expiring TTL from now.
func (g *Generator) New() (Code, error) {
	value, err := g.random(g.Digits)
	if err != nil {
		return Code{}, fmt.Errorf("generate otp: %w", err)
	}
	return Code{Value: value, ExpiresAt: g.Now().Add(g.TTL)}, nil
}

// TTLSeconds is the full window length in whole seconds.
func (g *Generator) TTLSeconds() int {
	return int(g.TTL / time.Second)
}

// Valid reports whether a code expiring at expiresAt may still be used at now.
func Valid(expiresAt, now time.Time) bool {
	return now.Before(expiresAt)
}

// Remaining is the wait until expiresAt in whole seconds, rounded up;
// 0 once expired.
func Remaining(expiresAt, now time.Time) int {
	d := expiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
