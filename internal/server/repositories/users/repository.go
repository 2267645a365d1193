package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/lootshop/internal/server/models"
)

// Repository is the credential store. Lookups return common.ErrorNotFound
// for missing rows; a duplicate email yields common.ErrorAlreadyExists and a
// row rejected by a CHECK constraint common.ErrorConstraint.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// FindPendingVerification matches email and code on an unverified account.
	FindPendingVerification(ctx context.Context, email, code string) (*models.User, error)

	SetVerificationCode(ctx context.Context, id, code string, expiresAt time.Time) error
	MarkVerified(ctx context.Context, id string, now time.Time) error
	RecordLogin(ctx context.Context, id string, now time.Time, tokenDigest string, expiresAt time.Time) error
	RecordLogout(ctx context.Context, id string, now time.Time) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateFields(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
}
