package httpapi

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/lootshop/internal/authz"
	"github.com/dmitrijs2005/lootshop/internal/common"
	"github.com/dmitrijs2005/lootshop/internal/server/auth"
	"github.com/dmitrijs2005/lootshop/internal/server/models"
	"github.com/dmitrijs2005/lootshop/internal/server/services"
	"github.com/golang-jwt/jwt/v5"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeService records calls and returns canned results. Tokens are
// "tok-<userID>"; anything else fails authentication.
type fakeService struct {
	err error

	registered   services.RegisterInput
	loggedOut    []string
	patchCaller  string
	patchTarget  string
	patch        models.UserPatch
	profileInput services.ProfileUpdate
	authz        authz.Authorization
	adminErr     error
	panicOn      string
}

func (f *fakeService) Register(_ context.Context, in services.RegisterInput) (*services.RegisterResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.registered = in
	return &services.RegisterResult{User: models.PublicUser{ID: "u1", Email: in.Email, Username: in.Username}, TimeRemaining: 180}, nil
}

func (f *fakeService) VerifyOTP(_ context.Context, email, _ string) (*models.PublicUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.PublicUser{ID: "u1", Email: email, EmailVerified: true, SessionActive: true}, nil
}

func (f *fakeService) ResendOTP(context.Context, string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return 180, nil
}

func (f *fakeService) Login(_ context.Context, email, _ string) (*services.LoginResult, error) {
	if f.panicOn == "login" {
		panic("kaboom")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &services.LoginResult{
		User:      models.PublicUser{ID: "u1", Email: email, EmailVerified: true, SessionActive: true},
		Token:     "tok-u1",
		ExpiresAt: t0.Add(24 * time.Hour),
	}, nil
}

func (f *fakeService) Logout(_ context.Context, token string) {
	f.loggedOut = append(f.loggedOut, token)
}

func (f *fakeService) Authenticate(_ context.Context, token string) (*auth.Claims, error) {
	if token == "expired" {
		return nil, common.ErrSessionExpired
	}
	if len(token) <= len("tok-") || token[:4] != "tok-" {
		return nil, common.ErrInvalidSession
	}
	return &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: token[4:]}, Role: auth.RoleAuthenticated}, nil
}

func (f *fakeService) UpdateSession(_ context.Context, callerID, targetID string, patch models.UserPatch) (*models.PublicUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.patchCaller, f.patchTarget, f.patch = callerID, targetID, patch
	return &models.PublicUser{ID: callerID}, nil
}

func (f *fakeService) GetProfile(_ context.Context, id string) (*models.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Profile{ID: id, Username: "alice"}, nil
}

func (f *fakeService) ResetPassword(context.Context, string) error {
	return f.err
}

func (f *fakeService) UpdateProfile(_ context.Context, callerID, targetID string, in services.ProfileUpdate) (*models.PublicUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.patchCaller, f.patchTarget, f.profileInput = callerID, targetID, in
	return &models.PublicUser{ID: callerID}, nil
}

func (f *fakeService) AdminSession(ctx context.Context, token string) (authz.Authorization, error) {
	if _, err := f.Authenticate(ctx, token); err != nil {
		return authz.Authorization{}, err
	}
	if f.adminErr != nil {
		return authz.Authorization{}, f.adminErr
	}
	return f.authz, nil
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (c *fakeCounter) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, 0, c.err
	}
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[key]++
	return c.counts[key], window, nil
}
