// Package services contains the client-side application services used by
// the CLI. AuthService keeps the local session descriptor and the admin
// status cache in sync with the server.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lootshop/internal/authz"
	"github.com/dmitrijs2005/lootshop/internal/client/admincache"
	"github.com/dmitrijs2005/lootshop/internal/client/client"
	"github.com/dmitrijs2005/lootshop/internal/client/models"
	"github.com/dmitrijs2005/lootshop/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/lootshop/internal/client/session"
	"github.com/dmitrijs2005/lootshop/internal/common"
	"github.com/dmitrijs2005/lootshop/internal/dbx"
	"github.com/dmitrijs2005/lootshop/internal/logging"
)

// AuthService defines the account operations available to the CLI.
//
// Session-scoped calls read the locally stored descriptor and fail with
// client.ErrNoSession when it is missing or expired, without contacting the
// server.
type AuthService interface {
	Register(ctx context.Context, in models.Registration) (*models.User, int, error)
	VerifyOTP(ctx context.Context, email, code string) (*models.User, error)
	ResendOTP(ctx context.Context, email string) (int, error)
	Login(ctx context.Context, email, password string) (*session.Descriptor, error)
	Logout(ctx context.Context) error
	Session(ctx context.Context) (*session.Descriptor, error)
	IsAuthenticated(ctx context.Context) bool
	AdminStatus(ctx context.Context) (authz.Authorization, error)
	Profile(ctx context.Context, userID string) (*models.Profile, error)
	ResetPassword(ctx context.Context, email string) error
	UpdateProfile(ctx context.Context, changes models.ProfileChanges, newPassword *string) (*models.User, error)
	Ping(ctx context.Context) error
}

// Options tunes expiry handling. Zero values fall back to the defaults in
// common.
type Options struct {
	SessionTTL    time.Duration
	AdminCacheTTL time.Duration
	Now           func() time.Time
}

type authService struct {
	client     client.Client
	db         *sql.DB
	sessionTTL time.Duration
	adminTTL   time.Duration
	now        func() time.Time
	logger     logging.Logger
}

func NewAuthService(c client.Client, db *sql.DB, l logging.Logger, opts Options) AuthService {
	s := &authService{
		client:     c,
		db:         db,
		sessionTTL: opts.SessionTTL,
		adminTTL:   opts.AdminCacheTTL,
		now:        opts.Now,
		logger:     l.With("module", "client-auth"),
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = common.SessionValidity
	}
	if s.adminTTL <= 0 {
		s.adminTTL = common.AdminCacheValidity
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *authService) repo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (s *authService) Register(ctx context.Context, in models.Registration) (*models.User, int, error) {
	return s.client.Register(ctx, in)
}

func (s *authService) VerifyOTP(ctx context.Context, email, code string) (*models.User, error) {
	return s.client.VerifyOTP(ctx, email, code)
}

func (s *authService) ResendOTP(ctx context.Context, email string) (int, error) {
	return s.client.ResendOTP(ctx, email)
}

func (s *authService) ResetPassword(ctx context.Context, email string) error {
	return s.client.ResetPassword(ctx, email)
}

func (s *authService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Login authenticates against the server and replaces the local session.
// The admin cache belongs to the previous identity and is dropped in the
// same transaction.
func (s *authService) Login(ctx context.Context, email, password string) (*session.Descriptor, error) {
	u, token, err := s.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: login returned no user", common.ErrorInternal)
	}

	d := &session.Descriptor{
		ID:               u.ID,
		Email:            u.Email,
		Username:         u.Username,
		SessionToken:     token,
		SessionTimestamp: s.now(),
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		if err := repo.Delete(ctx, metadata.KeyAdminStatus); err != nil {
			return err
		}
		return metadata.SetJSON(ctx, repo, metadata.KeySession, d)
	})
	if err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info(ctx, "logged in", "user_id", d.ID)
	return d, nil
}

// Logout tells the server only when the local session is live and the
// server answers a ping. Local state is cleared regardless; only a failure
// to clear it is reported.
func (s *authService) Logout(ctx context.Context) error {
	d, err := s.load(ctx)
	if err != nil && !errors.Is(err, client.ErrNoSession) {
		s.logger.Warn(ctx, "read session before logout", "error", err)
	}

	if session.IsAuthenticated(d, s.now(), s.sessionTTL) {
		if perr := s.client.Ping(ctx); perr != nil {
			s.logger.Info(ctx, "offline, skipping server logout", "error", perr)
		} else if lerr := s.client.Logout(ctx, d.SessionToken); lerr != nil {
			s.logger.Warn(ctx, "server logout failed", "user_id", d.ID, "error", lerr)
		}
	}

	if err := s.repo(s.db).Delete(ctx, metadata.KeySession, metadata.KeyAdminStatus); err != nil {
		return fmt.Errorf("clear local session: %w", err)
	}
	return nil
}

// load returns the stored descriptor, or ErrNoSession if there is none.
func (s *authService) load(ctx context.Context) (*session.Descriptor, error) {
	var d session.Descriptor
	err := metadata.GetJSON(ctx, s.repo(s.db), metadata.KeySession, &d)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, client.ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Session returns the live descriptor. An expired one is reported as
// ErrNoSession and left in place until Logout or the next Login.
func (s *authService) Session(ctx context.Context) (*session.Descriptor, error) {
	d, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if !session.IsAuthenticated(d, s.now(), s.sessionTTL) {
		return nil, client.ErrNoSession
	}
	return d, nil
}

func (s *authService) IsAuthenticated(ctx context.Context) bool {
	_, err := s.Session(ctx)
	return err == nil
}

// AdminStatus serves the cached authorization while it is fresh and
// otherwise refetches it before returning. A failed refetch never falls
// back to a stale entry.
func (s *authService) AdminStatus(ctx context.Context) (authz.Authorization, error) {
	d, err := s.Session(ctx)
	if err != nil {
		return authz.Authorization{}, err
	}

	repo := s.repo(s.db)
	now := s.now()

	var cached admincache.Entry
	err = metadata.GetJSON(ctx, repo, metadata.KeyAdminStatus, &cached)
	switch {
	case err == nil && cached.Fresh(now, s.adminTTL):
		return cached.Result, nil
	case err != nil && !errors.Is(err, common.ErrorNotFound):
		s.logger.Warn(ctx, "unreadable admin cache entry", "error", err)
	}

	res, err := s.client.AdminStatus(ctx, d.SessionToken)
	if err != nil {
		if derr := repo.Delete(ctx, metadata.KeyAdminStatus); derr != nil {
			s.logger.Warn(ctx, "drop admin cache", "error", derr)
		}
		return authz.Authorization{}, err
	}

	entry := admincache.Entry{Result: res, FetchedAt: now}
	if err := metadata.SetJSON(ctx, repo, metadata.KeyAdminStatus, entry); err != nil {
		s.logger.Warn(ctx, "store admin cache", "error", err)
	}
	return res, nil
}

// Profile fetches a profile; an empty userID means the caller.
func (s *authService) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	d, err := s.Session(ctx)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		userID = d.ID
	}
	return s.client.GetProfile(ctx, d.SessionToken, userID)
}

// UpdateProfile changes the caller's own account and refreshes the
// identity fields kept in the local descriptor.
func (s *authService) UpdateProfile(ctx context.Context, changes models.ProfileChanges, newPassword *string) (*models.User, error) {
	d, err := s.Session(ctx)
	if err != nil {
		return nil, err
	}

	u, err := s.client.UpdateProfile(ctx, d.SessionToken, changes, newPassword)
	if err != nil {
		return nil, err
	}

	if u != nil && (u.Email != d.Email || u.Username != d.Username) {
		d.Email = u.Email
		d.Username = u.Username
		if err := metadata.SetJSON(ctx, s.repo(s.db), metadata.KeySession, d); err != nil {
			s.logger.Warn(ctx, "refresh local session", "error", err)
		}
	}
	return u, nil
}
