package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/lootshop/internal/authz"
	"github.com/dmitrijs2005/lootshop/internal/client/client"
	"github.com/dmitrijs2005/lootshop/internal/client/config"
	"github.com/dmitrijs2005/lootshop/internal/client/models"
	"github.com/dmitrijs2005/lootshop/internal/client/session"
	"github.com/dmitrijs2005/lootshop/internal/common"
	"github.com/dmitrijs2005/lootshop/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	session *session.Descriptor

	loginErr error

	mu      sync.Mutex
	pingErr error

	lastRegistration models.Registration
	lastVerify       [2]string
	lastResend       string
	lastReset        string
	lastChanges      models.ProfileChanges
	lastPassword     *string
	logouts          int

	adminRes authz.Authorization
}

func (f *fakeAuth) Register(_ context.Context, in models.Registration) (*models.User, int, error) {
	f.lastRegistration = in
	return &models.User{ID: "u1", Email: in.Email, Username: in.Username}, 180, nil
}

func (f *fakeAuth) VerifyOTP(_ context.Context, email, code string) (*models.User, error) {
	f.lastVerify = [2]string{email, code}
	return &models.User{ID: "u1", Email: email, EmailVerified: true}, nil
}

func (f *fakeAuth) ResendOTP(_ context.Context, email string) (int, error) {
	f.lastResend = email
	return 175, nil
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (*session.Descriptor, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.session = &session.Descriptor{ID: "u1", Email: email, Username: "alice", SessionToken: "tok", SessionTimestamp: time.Now()}
	return f.session, nil
}

func (f *fakeAuth) Logout(context.Context) error {
	f.logouts++
	f.session = nil
	return nil
}

func (f *fakeAuth) Session(context.Context) (*session.Descriptor, error) {
	if f.session == nil {
		return nil, client.ErrNoSession
	}
	return f.session, nil
}

func (f *fakeAuth) IsAuthenticated(context.Context) bool { return f.session != nil }

func (f *fakeAuth) AdminStatus(context.Context) (authz.Authorization, error) {
	if f.session == nil {
		return authz.Authorization{}, client.ErrNoSession
	}
	return f.adminRes, nil
}

func (f *fakeAuth) Profile(_ context.Context, userID string) (*models.Profile, error) {
	if f.session == nil {
		return nil, client.ErrNoSession
	}
	if userID == "" {
		userID = f.session.ID
	}
	return &models.Profile{ID: userID, Username: "alice", FavoriteGame: "Tetris"}, nil
}

func (f *fakeAuth) ResetPassword(_ context.Context, email string) error {
	f.lastReset = email
	return nil
}

func (f *fakeAuth) UpdateProfile(_ context.Context, changes models.ProfileChanges, newPassword *string) (*models.User, error) {
	f.lastChanges = changes
	f.lastPassword = newPassword
	return &models.User{ID: "u1", Username: "alice2", Email: "alice@example.com"}, nil
}

func (f *fakeAuth) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeAuth) setPingErr(err error) {
	f.mu.Lock()
	f.pingErr = err
	f.mu.Unlock()
}

func newTestApp(t *testing.T, fa *fakeAuth, input string) (*App, *bytes.Buffer) {
	t.Helper()
	withTerminal(t, false, nil)
	var out bytes.Buffer
	cfg := &config.Config{OnlineCheckInterval: 10 * time.Millisecond}
	return NewApp(cfg, fa, strings.NewReader(input), &out, logging.Nop{}), &out
}

func TestRegisterThenVerifyUsesPendingEmail(t *testing.T) {
	fa := &fakeAuth{}
	a, out := newTestApp(t, fa, "alice\nalice@example.com\nsecret1\nsecret1\nTetris\n\n123456\n")
	ctx := context.Background()

	require.NoError(t, a.Register(ctx))
	assert.Equal(t, "alice", fa.lastRegistration.Username)
	assert.Equal(t, "secret1", fa.lastRegistration.Password)
	require.NotNil(t, fa.lastRegistration.ConfirmPassword)
	assert.Equal(t, "secret1", *fa.lastRegistration.ConfirmPassword)
	assert.Equal(t, "Tetris", fa.lastRegistration.FavoriteGame)
	assert.Contains(t, out.String(), "valid for 180s")

	require.NoError(t, a.Verify(ctx))
	assert.Equal(t, [2]string{"alice@example.com", "123456"}, fa.lastVerify)
	assert.Empty(t, a.pendingEmail)
}

func TestLoginUnverifiedSetsPendingEmail(t *testing.T) {
	fa := &fakeAuth{loginErr: &common.VerificationRequiredError{Email: "bob@example.com", RetryAfter: 90}}
	a, _ := newTestApp(t, fa, "bob@example.com\npw\n\n")
	ctx := context.Background()

	err := a.Login(ctx)
	require.ErrorIs(t, err, common.ErrEmailNotVerified)
	assert.Equal(t, "bob@example.com", a.pendingEmail)
	assert.Contains(t, describeError(err), "valid for 90s")

	require.NoError(t, a.Resend(ctx))
	assert.Equal(t, "bob@example.com", fa.lastResend)
}

func TestLoginWhoAmIProfileLogout(t *testing.T) {
	fa := &fakeAuth{}
	a, out := newTestApp(t, fa, "alice@example.com\nsecret1\n")
	ctx := context.Background()

	require.ErrorIs(t, a.WhoAmI(ctx), client.ErrNoSession)

	require.NoError(t, a.Login(ctx))
	assert.Contains(t, out.String(), "Welcome, alice!")
	assert.True(t, a.isLoggedIn(ctx))

	require.NoError(t, a.WhoAmI(ctx))
	assert.Contains(t, out.String(), "email:    alice@example.com")

	require.NoError(t, a.Profile(ctx, ""))
	assert.Contains(t, out.String(), "favorite game: Tetris")
	assert.Contains(t, out.String(), "last login:    never")

	require.NoError(t, a.Logout(ctx))
	assert.Equal(t, 1, fa.logouts)
	assert.False(t, a.isLoggedIn(ctx))
}

func TestUpdateKeepsEmptyFields(t *testing.T) {
	fa := &fakeAuth{session: &session.Descriptor{ID: "u1", SessionToken: "tok", SessionTimestamp: time.Now()}}
	a, out := newTestApp(t, fa, "alice2\n\n\n\n")

	require.NoError(t, a.Update(context.Background()))
	require.NotNil(t, fa.lastChanges.Username)
	assert.Equal(t, "alice2", *fa.lastChanges.Username)
	assert.Nil(t, fa.lastChanges.Email)
	assert.Nil(t, fa.lastChanges.FavoriteGame)
	assert.Nil(t, fa.lastPassword)
	assert.Contains(t, out.String(), "Profile updated (alice2")
}

func TestUpdateRequiresSession(t *testing.T) {
	a, _ := newTestApp(t, &fakeAuth{}, "")
	require.ErrorIs(t, a.Update(context.Background()), client.ErrNoSession)
}

func TestAdminOutput(t *testing.T) {
	fa := &fakeAuth{
		session:  &session.Descriptor{ID: "u1", SessionToken: "tok", SessionTimestamp: time.Now()},
		adminRes: authz.Authorization{IsAdmin: true, AdminLevel: authz.LevelBasic, Permissions: authz.PermissionsFor(authz.LevelBasic)},
	}
	a, out := newTestApp(t, fa, "")

	require.NoError(t, a.Admin(context.Background()))
	s := out.String()
	assert.Contains(t, s, "Admin level: 1 (basic-admin)")
	assert.Contains(t, s, "+ view orders")
	assert.Contains(t, s, "- manage admins")

	fa.adminRes = authz.Authorization{}
	out.Reset()
	require.NoError(t, a.Admin(context.Background()))
	assert.Contains(t, out.String(), "not an administrator")
}

func TestReset(t *testing.T) {
	fa := &fakeAuth{}
	a, out := newTestApp(t, fa, "carol@example.com\n")

	require.NoError(t, a.Reset(context.Background()))
	assert.Equal(t, "carol@example.com", fa.lastReset)
	assert.Contains(t, out.String(), "temporary password was sent")
}

func TestDescribeError(t *testing.T) {
	assert.Equal(t, "too many requests, try again in 30s",
		describeError(&common.RetryAfterError{Err: common.ErrRateLimited, Seconds: 30}))
	assert.Equal(t, "not logged in", describeError(client.ErrNoSession))
	assert.Equal(t, "invalid email or password", describeError(common.ErrInvalidCredentials))
}

func TestOnlineStatusWatcher(t *testing.T) {
	fa := &fakeAuth{}
	a, _ := newTestApp(t, fa, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.checkOnline(ctx)
	require.Equal(t, ModeOnline, a.Mode())

	go a.StartOnlineStatusWatcher(ctx, 5*time.Millisecond)

	fa.setPingErr(client.ErrUnavailable)
	require.Eventually(t, func() bool { return a.Mode() == ModeOffline }, time.Second, 5*time.Millisecond)

	fa.setPingErr(nil)
	require.Eventually(t, func() bool { return a.Mode() == ModeOnline }, time.Second, 5*time.Millisecond)
}

func TestRunExitsOnEOF(t *testing.T) {
	fa := &fakeAuth{}
	a, out := newTestApp(t, fa, "help\n")

	a.Run(context.Background())
	s := out.String()
	assert.Contains(t, s, "Welcome to lootshop")
	assert.Contains(t, s, "lootshop (online)> ")
}
