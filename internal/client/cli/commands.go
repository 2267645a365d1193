package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lootshop/internal/client/client"
	"github.com/dmitrijs2005/lootshop/internal/client/models"
	"github.com/dmitrijs2005/lootshop/internal/common"
)

// describeError renders err for the terminal, spelling out the follow-up
// the user can take.
func describeError(err error) string {
	var vr *common.VerificationRequiredError
	var ra *common.RetryAfterError

	switch {
	case errors.As(err, &vr):
		return fmt.Sprintf("email %s is not verified; a code was sent (valid for %ds), use 'verify'", vr.Email, vr.RetryAfter)
	case errors.As(err, &ra):
		return fmt.Sprintf("%v, try again in %ds", ra.Err, ra.Seconds)
	case errors.Is(err, client.ErrNoSession):
		return "not logged in"
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable, try again later"
	default:
		return err.Error()
	}
}

func (a *App) prompt(label string) (string, error) {
	return GetSimpleText(a.reader, label, a.out)
}

// promptEmail asks for an email, offering the pending one as default.
func (a *App) promptEmail() (string, error) {
	label := "Enter email"
	if a.pendingEmail != "" {
		label = fmt.Sprintf("Enter email [%s]", a.pendingEmail)
	}
	email, err := a.prompt(label)
	if err != nil {
		return "", err
	}
	if email == "" {
		email = a.pendingEmail
	}
	return email, nil
}

func (a *App) password(label string) (string, error) {
	pw, err := GetPassword(a.reader, label, a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

func (a *App) Register(ctx context.Context) error {
	username, err := a.prompt("Enter username")
	if err != nil {
		return err
	}
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}
	password, err := a.password("Enter password")
	if err != nil {
		return err
	}
	confirm, err := a.password("Confirm password")
	if err != nil {
		return err
	}
	game, err := a.prompt("Favorite game")
	if err != nil {
		return err
	}

	u, remaining, err := a.authService.Register(ctx, models.Registration{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: &confirm,
		FavoriteGame:    game,
	})
	if err != nil {
		return err
	}

	a.pendingEmail = u.Email
	fmt.Fprintf(a.out, "Registered %s. A verification code was sent to %s (valid for %ds); use 'verify'.\n", u.Username, u.Email, remaining)
	return nil
}

func (a *App) Verify(ctx context.Context) error {
	email, err := a.promptEmail()
	if err != nil {
		return err
	}
	code, err := a.prompt("Enter verification code")
	if err != nil {
		return err
	}

	if _, err := a.authService.VerifyOTP(ctx, email, code); err != nil {
		return err
	}

	a.pendingEmail = ""
	fmt.Fprintln(a.out, "Email verified, you can now login.")
	return nil
}

func (a *App) Resend(ctx context.Context) error {
	email, err := a.promptEmail()
	if err != nil {
		return err
	}

	remaining, err := a.authService.ResendOTP(ctx, email)
	if err != nil {
		return err
	}

	a.pendingEmail = email
	fmt.Fprintf(a.out, "A new code was sent to %s (valid for %ds).\n", email, remaining)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}
	password, err := a.password("Enter password")
	if err != nil {
		return err
	}

	d, err := a.authService.Login(ctx, email, password)
	if err != nil {
		var vr *common.VerificationRequiredError
		if errors.As(err, &vr) {
			a.pendingEmail = vr.Email
		}
		return err
	}

	name := d.Username
	if name == "" {
		name = d.Email
	}
	fmt.Fprintf(a.out, "Welcome, %s!\n", name)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	d, err := a.authService.Session(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "id:       %s\nusername: %s\nemail:    %s\nsince:    %s\n",
		d.ID, d.Username, d.Email, d.SessionTimestamp.Local().Format(time.DateTime))
	return nil
}

func (a *App) Profile(ctx context.Context, userID string) error {
	p, err := a.authService.Profile(ctx, userID)
	if err != nil {
		return err
	}

	lastLogin := "never"
	if p.LastLogin != nil {
		lastLogin = p.LastLogin.Local().Format(time.DateTime)
	}
	fmt.Fprintf(a.out, "id:            %s\nusername:      %s\nemail:         %s\nfavorite game: %s\nmember since:  %s\nlast login:    %s\n",
		p.ID, p.Username, p.Email, p.FavoriteGame, p.CreatedAt.Local().Format(time.DateOnly), lastLogin)
	return nil
}

func (a *App) Update(ctx context.Context) error {
	if !a.isLoggedIn(ctx) {
		return client.ErrNoSession
	}

	var changes models.ProfileChanges
	var err error
	if changes.Username, err = GetOptionalText(a.reader, "New username", a.out); err != nil {
		return err
	}
	if changes.Email, err = GetOptionalText(a.reader, "New email", a.out); err != nil {
		return err
	}
	if changes.FavoriteGame, err = GetOptionalText(a.reader, "New favorite game", a.out); err != nil {
		return err
	}
	pw, err := a.password("New password (empty to keep)")
	if err != nil {
		return err
	}
	var newPassword *string
	if pw != "" {
		newPassword = &pw
	}

	u, err := a.authService.UpdateProfile(ctx, changes, newPassword)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Profile updated (%s, %s).\n", u.Username, u.Email)
	return nil
}

func (a *App) Admin(ctx context.Context) error {
	res, err := a.authService.AdminStatus(ctx)
	if err != nil {
		return err
	}

	if !res.IsAdmin {
		fmt.Fprintln(a.out, "You are not an administrator.")
		return nil
	}

	p := res.Permissions
	fmt.Fprintf(a.out, "Admin level: %d (%s)\n", int(res.AdminLevel), res.AdminLevel)
	for _, perm := range []struct {
		name string
		ok   bool
	}{
		{"view orders", p.CanViewOrders},
		{"update orders", p.CanUpdateOrders},
		{"view customers", p.CanViewCustomers},
		{"manage items", p.CanManageItems},
		{"access analytics", p.CanAccessAnalytics},
		{"export data", p.CanExportData},
		{"manage admins", p.CanManageAdmins},
		{"access logs", p.CanAccessLogs},
	} {
		mark := "-"
		if perm.ok {
			mark = "+"
		}
		fmt.Fprintf(a.out, "  %s %s\n", mark, perm.name)
	}
	return nil
}

func (a *App) Reset(ctx context.Context) error {
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}
	if err := a.authService.ResetPassword(ctx, email); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "A temporary password was sent to %s.\n", email)
	return nil
}
