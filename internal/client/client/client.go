package client

import (
	"context"

	"github.com/dmitrijs2005/lootshop/internal/authz"
	"github.com/dmitrijs2005/lootshop/internal/client/models"
)

// Client is the server API used by the CLI. Calls that act on the caller's
// own account take the session token explicitly.
type Client interface {
	Register(ctx context.Context, in models.Registration) (*models.User, int, error)
	VerifyOTP(ctx context.Context, email, code string) (*models.User, error)
	ResendOTP(ctx context.Context, email string) (int, error)
	// Login returns the user and the session token set by the server.
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	Logout(ctx context.Context, token string) error
	GetProfile(ctx context.Context, token, userID string) (*models.Profile, error)
	ResetPassword(ctx context.Context, email string) error
	UpdateProfile(ctx context.Context, token string, changes models.ProfileChanges, newPassword *string) (*models.User, error)
	AdminStatus(ctx context.Context, token string) (authz.Authorization, error)
	Ping(ctx context.Context) error
}
