package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/lootshop/internal/common"
	"github.com/dmitrijs2005/lootshop/internal/dbx"
	"github.com/dmitrijs2005/lootshop/internal/server/models"
	"github.com/google/uuid"
)

const userColumns = `id, username, email, password_hash, favorite_game,
		email_verified, verification_code, verification_expires_at,
		session_active, session_token_hash, session_expires_at, last_login, last_logout, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FavoriteGame,
		&u.EmailVerified, &u.VerificationCode, &u.VerificationExpiresAt,
		&u.SessionActive, &u.SessionDigest, &u.SessionExpiresAt, &u.LastLogin, &u.LastLogout, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO users (id, username, email, password_hash, favorite_game,
		                    email_verified, verification_code, verification_expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.FavoriteGame,
		user.EmailVerified, user.VerificationCode, user.VerificationExpiresAt).Scan(&user.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		if dbx.IsCheckViolation(err) {
			return nil, fmt.Errorf("%w: %v", common.ErrorConstraint, err)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) FindPendingVerification(ctx context.Context, email, code string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE email = $1 AND verification_code = $2 AND email_verified = FALSE`
	return scanUser(r.db.QueryRowContext(ctx, query, email, code))
}

// SetVerificationCode stores a new code and its expiry together. Verified
// accounts are never touched.
func (r *PostgresRepository) SetVerificationCode(ctx context.Context, id, code string, expiresAt time.Time) error {
	query :=
		`UPDATE users SET verification_code = $2, verification_expires_at = $3
		 WHERE id = $1 AND email_verified = FALSE`
	return r.execOne(ctx, query, id, code, expiresAt)
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, id string, now time.Time) error {
	query :=
		`UPDATE users SET email_verified = TRUE,
		                  verification_code = NULL, verification_expires_at = NULL,
		                  last_login = $2, session_active = TRUE
		 WHERE id = $1`
	return r.execOne(ctx, query, id, now)
}

func (r *PostgresRepository) RecordLogin(ctx context.Context, id string, now time.Time, tokenDigest string, expiresAt time.Time) error {
	query :=
		`UPDATE users SET last_login = $2, session_active = TRUE,
		                  session_token_hash = $3, session_expires_at = $4
		 WHERE id = $1`
	return r.execOne(ctx, query, id, now, tokenDigest, expiresAt)
}

func (r *PostgresRepository) RecordLogout(ctx context.Context, id string, now time.Time) error {
	query :=
		`UPDATE users SET session_active = FALSE, last_logout = $2,
		                  session_token_hash = NULL, session_expires_at = NULL
		 WHERE id = $1`
	return r.execOne(ctx, query, id, now)
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.execOne(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
}

// UpdateFields applies the non-nil fields of patch. Only whitelisted
// columns can be written. An empty patch just reloads the row.
func (r *PostgresRepository) UpdateFields(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	if patch.Empty() {
		return r.GetByID(ctx, id)
	}

	sets := make([]string, 0, 4)
	args := []any{id}
	add := func(column string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("username", patch.Username)
	add("email", patch.Email)
	add("favorite_game", patch.FavoriteGame)
	add("password_hash", patch.PasswordHash)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	switch {
	case err == nil:
		return u, nil
	case dbx.IsUniqueViolation(err):
		return nil, common.ErrorAlreadyExists
	case dbx.IsCheckViolation(err):
		return nil, fmt.Errorf("%w: %v", common.ErrorConstraint, err)
	}
	return nil, err
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
