package otp

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var issuedAt = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return issuedAt }

func TestGenerator_New(t *testing.T) {
	g := NewGenerator(3*time.Minute, fixedClock)

	code, err := g.New()
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code.Value)
	assert.Equal(t, issuedAt.Add(180*time.Second), code.ExpiresAt)
	assert.Equal(t, 180, g.TTLSeconds())
}

func TestGenerator_New_RandomError(t *testing.T) {
	g := NewGenerator(time.Minute, fixedClock)
	g.random = func(int) (string, error) { return "", errors.New("entropy") }

	_, err := g.New()
	assert.ErrorContains(t, err, "entropy")
}

func TestValid_Window(t *testing.T) {
	exp := issuedAt.Add(180 * time.Second)

	assert.True(t, Valid(exp, issuedAt.Add(170*time.Second)))
	assert.False(t, Valid(exp, exp), "expiry instant is already invalid")
	assert.False(t, Valid(exp, issuedAt.Add(181*time.Second)))
}

func TestValid_IgnoresLocation(t *testing.T) {
	exp := issuedAt.Add(time.Minute)
	riga := time.FixedZone("EET", 2*3600)

	assert.True(t, Valid(exp, issuedAt.In(riga)))
}

func TestRemaining(t *testing.T) {
	exp := issuedAt.Add(180 * time.Second)

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"fresh", issuedAt, 180},
		{"partial second rounds up", issuedAt.Add(500 * time.Millisecond), 180},
		{"last second", exp.Add(-time.Millisecond), 1},
		{"at expiry", exp, 0},
		{"past expiry", exp.Add(time.Minute), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Remaining(exp, tt.now))
		})
	}
}
