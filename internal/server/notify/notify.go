// Package notify delivers verification codes and temporary passwords to users
// by email.
package notify

import (
	"context"
	"time"
)

// Notifier sends account mails. Implementations wrap delivery failures with
// common.ErrNotification.
type Notifier interface {
	SendOTP(ctx context.Context, to, username, code string, ttl time.Duration) error
	SendTemporaryPassword(ctx context.Context, to, password string) error
}

// Template names.
const (
	TemplateOTP          = "otp"
	TemplateTempPassword = "temp_password"
)

const (
	subjectOTP          = "Your Lootshop verification code"
	subjectTempPassword = "Your Lootshop temporary password"
)

type otpData struct {
	Username string
	Code     string
	Minutes  int
}

type tempPasswordData struct {
	Password string
}

func minutes(ttl time.Duration) int {
	m := int(ttl / time.Minute)
	if m < 1 {
		m = 1
	}
	return m
}
