// Package services contains the server-side business logic. AuthService
// runs the account workflow: registration with email OTP verification,
// login, session bookkeeping, password reset, profile changes and admin
// session checks.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/lootshop/internal/authz"
	"github.com/dmitrijs2005/lootshop/internal/common"
	"github.com/dmitrijs2005/lootshop/internal/cryptox"
	"github.com/dmitrijs2005/lootshop/internal/dbx"
	"github.com/dmitrijs2005/lootshop/internal/logging"
	"github.com/dmitrijs2005/lootshop/internal/server/admin"
	"github.com/dmitrijs2005/lootshop/internal/server/auth"
	"github.com/dmitrijs2005/lootshop/internal/server/identity"
	"github.com/dmitrijs2005/lootshop/internal/server/models"
	"github.com/dmitrijs2005/lootshop/internal/server/notify"
	"github.com/dmitrijs2005/lootshop/internal/server/otp"
	"github.com/dmitrijs2005/lootshop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/lootshop/internal/timex"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Dependencies are the collaborators of AuthService.
type Dependencies struct {
	Identity   identity.Provider
	Notifier   notify.Notifier
	OTP        *otp.Generator
	Tokens     *auth.Issuer
	Authorizer *admin.Authorizer
	BcryptCost int
	Now        timex.Clock
	Log        logging.Logger
}

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	identity    identity.Provider
	notifier    notify.Notifier
	otp         *otp.Generator
	tokens      *auth.Issuer
	authorizer  *admin.Authorizer
	bcryptCost  int
	now         timex.Clock
	log         logging.Logger

	tempPassword func(n int) (string, error)
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, d Dependencies) *AuthService {
	if d.Now == nil {
		d.Now = timex.UTCNow
	}
	if d.Log == nil {
		d.Log = logging.Nop{}
	}
	return &AuthService{
		db:           db,
		repomanager:  m,
		identity:     d.Identity,
		notifier:     d.Notifier,
		otp:          d.OTP,
		tokens:       d.Tokens,
		authorizer:   d.Authorizer,
		bcryptCost:   d.BcryptCost,
		now:          d.Now,
		log:          d.Log.With("module", "auth_service"),
		tempPassword: common.GenerateTempPassword,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	// ConfirmPassword is checked only when the caller supplied it.
	ConfirmPassword *string
	FavoriteGame    string
}

type RegisterResult struct {
	User          models.PublicUser
	TimeRemaining int
}

// LoginResult carries the sanitized user and the freshly minted session token.
type LoginResult struct {
	User      models.PublicUser
	Token     string
	ExpiresAt time.Time
}

// ProfileUpdate holds the optional fields of a profile change.
type ProfileUpdate struct {
	Username     *string
	Email        *string
	FavoriteGame *string
	NewPassword  *string
}

// Register creates an unverified account and mails its first OTP. It does
// not open a session; the caller must verify the code first.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, common.Validationf("username, email and password are required")
	}
	if in.ConfirmPassword != nil && *in.ConfirmPassword != in.Password {
		return nil, common.Validationf("passwords do not match")
	}
	email := common.NormalizeEmail(in.Email)
	if !emailPattern.MatchString(email) {
		return nil, common.Validationf("invalid email address")
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}

	code, err := s.otp.New()
	if err != nil {
		return nil, common.ErrorInternal
	}

	sg := newSaga(s.log)

	accountID, err := s.identity.CreateAccount(ctx, email, in.Password)
	if err != nil {
		s.log.Error(ctx, "identity account creation failed", "error", err)
		if errors.Is(err, common.ErrDuplicateUser) {
			return nil, common.ErrDuplicateUser
		}
		return nil, wrapKind(common.ErrIdentityProvider, err)
	}
	sg.onFailure("delete identity account", func(ctx context.Context) error {
		return s.identity.DeleteAccount(ctx, accountID)
	})

	if err := s.notifier.SendOTP(ctx, email, username, code.Value, s.otp.TTL); err != nil {
		s.log.Error(ctx, "sending verification code failed", "error", err)
		return nil, sg.abort(ctx, wrapKind(common.ErrNotification, err))
	}

	repo := s.repomanager.Users(s.db)

	_, err = repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, sg.abort(ctx, common.ErrDuplicateUser)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, sg.abort(ctx, wrapKind(common.ErrStorage, err))
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		s.log.Error(ctx, "password hashing failed", "error", err)
		return nil, sg.abort(ctx, common.ErrorInternal)
	}

	user, err := repo.Create(ctx, &models.User{
		Username:              username,
		Email:                 email,
		PasswordHash:          hash,
		FavoriteGame:          strings.TrimSpace(in.FavoriteGame),
		EmailVerified:         false,
		VerificationCode:      &code.Value,
		VerificationExpiresAt: &code.ExpiresAt,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, sg.abort(ctx, common.ErrDuplicateUser)
		}
		if errors.Is(err, common.ErrorConstraint) {
			return nil, sg.abort(ctx, common.Validationf("account data rejected by the store"))
		}
		return nil, sg.abort(ctx, wrapKind(common.ErrStorage, err))
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return &RegisterResult{User: user.Public(), TimeRemaining: s.otp.TTLSeconds()}, nil
}

// VerifyOTP consumes a pending code. A consumed code cannot be replayed.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*models.PublicUser, error) {
	email = common.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, common.Validationf("email and code are required")
	}

	now := s.now()
	repo := s.repomanager.Users(s.db)

	user, err := repo.FindPendingVerification(ctx, email, code)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidOrExpiredCode
		}
		return nil, wrapKind(common.ErrStorage, err)
	}
	if user.VerificationExpiresAt == nil || !otp.Valid(*user.VerificationExpiresAt, now) {
		return nil, common.ErrInvalidOrExpiredCode
	}

	var verified *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		txRepo := s.repomanager.Users(tx)
		if err := txRepo.MarkVerified(ctx, user.ID, now); err != nil {
			return wrapKind(common.ErrStorage, err)
		}
		u, err := txRepo.GetByID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrFetch
			}
			return wrapKind(common.ErrStorage, err)
		}
		verified = u
		return nil
	})
	if err != nil {
		return nil, asStorageErr(err)
	}

	s.log.Info(ctx, "email verified", "user_id", verified.ID)
	pub := verified.Public()
	return &pub, nil
}

// ResendOTP issues a new code only when none is outstanding and returns the
// validity of the new code in seconds.
func (s *AuthService) ResendOTP(ctx context.Context, email string) (int, error) {
	email = common.NormalizeEmail(email)
	if email == "" {
		return 0, common.Validationf("email is required")
	}

	now := s.now()
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, common.ErrUserNotFound
		}
		return 0, wrapKind(common.ErrStorage, err)
	}
	if user.EmailVerified {
		return 0, common.ErrAlreadyVerified
	}
	if user.HasPendingCode(now) {
		return 0, &common.RetryAfterError{Err: common.ErrRateLimited, Seconds: otp.Remaining(*user.VerificationExpiresAt, now)}
	}

	return s.issueCode(ctx, user)
}

// issueCode stores and mails a fresh code for an unverified user.
func (s *AuthService) issueCode(ctx context.Context, user *models.User) (int, error) {
	code, err := s.otp.New()
	if err != nil {
		return 0, common.ErrorInternal
	}

	if err := s.repomanager.Users(s.db).SetVerificationCode(ctx, user.ID, code.Value, code.ExpiresAt); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, common.ErrAlreadyVerified
		}
		return 0, wrapKind(common.ErrStorage, err)
	}

	if err := s.notifier.SendOTP(ctx, user.Email, user.Username, code.Value, s.otp.TTL); err != nil {
		s.log.Error(ctx, "sending verification code failed", "user_id", user.ID, "error", err)
		return 0, wrapKind(common.ErrNotification, err)
	}

	s.log.Info(ctx, "verification code issued", "user_id", user.ID)
	return s.otp.TTLSeconds(), nil
}

// Login checks credentials and opens a session. Unknown email and wrong
// password fail identically. An unverified account never logs in; it gets
// a *common.VerificationRequiredError and at most one new code.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = common.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, common.Validationf("email and password are required")
	}

	now := s.now()
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, wrapKind(common.ErrStorage, err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, common.ErrInvalidCredentials
	}

	if !user.EmailVerified {
		remaining := 0
		if user.HasPendingCode(now) {
			remaining = otp.Remaining(*user.VerificationExpiresAt, now)
		} else if remaining, err = s.issueCode(ctx, user); err != nil {
			return nil, err
		}
		return nil, &common.VerificationRequiredError{Email: user.Email, RetryAfter: remaining}
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email, now)
	if err != nil {
		s.log.Error(ctx, "issuing session token failed", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}

	if err := repo.RecordLogin(ctx, user.ID, now, cryptox.TokenDigest(token), expiresAt); err != nil {
		s.log.Warn(ctx, "recording login failed", "user_id", user.ID, "error", err)
	}
	user.LastLogin = &now
	user.SessionActive = true

	s.log.Info(ctx, "user logged in", "user_id", user.ID)
	return &LoginResult{User: user.Public(), Token: token, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a session token to its claims. Besides a valid
// signature the token must still be the one stored for its owner, so a
// logout or a newer login revokes it.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil, err
	}
	if _, err := s.liveSession(ctx, claims.UserID(), token); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *AuthService) parseToken(token string) (*auth.Claims, error) {
	if token == "" {
		return nil, common.ErrInvalidSession
	}
	return s.tokens.Parse(token)
}

// liveSession loads the owner of token and checks the stored digest and
// expiry.
func (s *AuthService) liveSession(ctx context.Context, userID, token string) (*models.User, error) {
	if userID == "" || token == "" {
		return nil, common.ErrInvalidSession
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidSession
		}
		return nil, wrapKind(common.ErrStorage, err)
	}

	if user.SessionDigest == nil || !cryptox.MatchesDigest(*user.SessionDigest, token) {
		return nil, common.ErrInvalidSession
	}
	if user.SessionExpiresAt == nil || !s.now().Before(*user.SessionExpiresAt) {
		return nil, common.ErrSessionExpired
	}
	return user, nil
}

// Logout closes the server-side session of the token owner. It never fails:
// an unusable token or a storage error is only logged.
func (s *AuthService) Logout(ctx context.Context, token string) {
	claims, err := s.Authenticate(ctx, token)
	if err != nil {
		if token != "" {
			s.log.Debug(ctx, "logout with unusable token", "error", err)
		}
		return
	}

	if err := s.repomanager.Users(s.db).RecordLogout(ctx, claims.UserID(), s.now()); err != nil {
		s.log.Warn(ctx, "recording logout failed", "user_id", claims.UserID(), "error", err)
		return
	}
	s.log.Info(ctx, "user logged out", "user_id", claims.UserID())
}

// UpdateSession applies a patch to the caller's own record.
func (s *AuthService) UpdateSession(ctx context.Context, callerID, targetID string, patch models.UserPatch) (*models.PublicUser, error) {
	if targetID == "" {
		targetID = callerID
	}
	if callerID != targetID {
		return nil, common.ErrForbidden
	}
	patch.PasswordHash = nil
	if err := normalizePatch(&patch); err != nil {
		return nil, err
	}
	return s.applyPatch(ctx, targetID, patch)
}

// GetProfile returns the public profile projection of id.
func (s *AuthService) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	if id == "" {
		return nil, common.Validationf("user id is required")
	}
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, wrapKind(common.ErrStorage, err)
	}
	p := user.Profile()
	return &p, nil
}

// ResetPassword replaces the password with a temporary one and mails it.
// The new hash is stored first; if the mail cannot be sent the previous
// hash is put back, so the account never ends up with a password its owner
// was not told.
func (s *AuthService) ResetPassword(ctx context.Context, email string) error {
	email = common.NormalizeEmail(email)
	if email == "" {
		return common.Validationf("email is required")
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotFound
		}
		return wrapKind(common.ErrStorage, err)
	}

	password, err := s.tempPassword(common.TempPasswordLength)
	if err != nil {
		return common.ErrorInternal
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return common.ErrorInternal
	}

	sg := newSaga(s.log)

	if err := repo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		s.log.Error(ctx, "storing temporary password failed", "user_id", user.ID, "error", err)
		return wrapKind(common.ErrStorage, err)
	}
	previous := user.PasswordHash
	sg.onFailure("restore password hash", func(ctx context.Context) error {
		return repo.UpdatePasswordHash(ctx, user.ID, previous)
	})

	if err := s.notifier.SendTemporaryPassword(ctx, user.Email, password); err != nil {
		s.log.Error(ctx, "sending temporary password failed", "user_id", user.ID, "error", err)
		return sg.abort(ctx, wrapKind(common.ErrNotification, err))
	}

	s.log.Info(ctx, "password reset", "user_id", user.ID)
	return nil
}

// UpdateProfile changes the provided fields of the caller's own profile.
func (s *AuthService) UpdateProfile(ctx context.Context, callerID, targetID string, in ProfileUpdate) (*models.PublicUser, error) {
	if targetID == "" {
		targetID = callerID
	}
	if callerID != targetID {
		return nil, common.ErrForbidden
	}

	patch := models.UserPatch{Username: in.Username, Email: in.Email, FavoriteGame: in.FavoriteGame}
	if err := normalizePatch(&patch); err != nil {
		return nil, err
	}

	if in.NewPassword != nil && *in.NewPassword != "" {
		if err := checkPassword(*in.NewPassword); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(*in.NewPassword, s.bcryptCost)
		if err != nil {
			return nil, common.ErrorInternal
		}
		patch.PasswordHash = &hash
	}

	return s.applyPatch(ctx, targetID, patch)
}

func (s *AuthService) applyPatch(ctx context.Context, id string, patch models.UserPatch) (*models.PublicUser, error) {
	user, err := s.repomanager.Users(s.db).UpdateFields(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.ErrUserNotFound
		case errors.Is(err, common.ErrorAlreadyExists):
			return nil, common.ErrDuplicateUser
		case errors.Is(err, common.ErrorConstraint):
			return nil, common.Validationf("profile data rejected by the store")
		default:
			return nil, wrapKind(common.ErrStorage, err)
		}
	}
	pub := user.Public()
	return &pub, nil
}

// AdminSession verifies a presented session token against the stored one
// and returns the admin authorization of its owner.
func (s *AuthService) AdminSession(ctx context.Context, token string) (authz.Authorization, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return authz.Authorization{}, err
	}
	return s.VerifyAdminSession(ctx, claims.UserID(), token)
}

// VerifyAdminSession compares token with the stored per-user session and
// checks its expiry before computing the authorization.
func (s *AuthService) VerifyAdminSession(ctx context.Context, userID, token string) (authz.Authorization, error) {
	user, err := s.liveSession(ctx, userID, token)
	if err != nil {
		return authz.Authorization{}, err
	}
	return s.authorizer.Authorize(user.Email), nil
}

// AdminAuthorization is the pure email to authorization mapping.
func (s *AuthService) AdminAuthorization(email string) authz.Authorization {
	return s.authorizer.Authorize(email)
}

// checkPassword enforces the length bounds; bcrypt refuses anything past
// MaxPasswordLength bytes.
func checkPassword(pw string) error {
	if len(pw) < common.MinPasswordLength {
		return common.Validationf("password must be at least %d characters", common.MinPasswordLength)
	}
	if len(pw) > common.MaxPasswordLength {
		return common.Validationf("password must be at most %d bytes", common.MaxPasswordLength)
	}
	return nil
}

func normalizePatch(p *models.UserPatch) error {
	if p.Username != nil {
		v := strings.TrimSpace(*p.Username)
		if v == "" {
			return common.Validationf("username cannot be empty")
		}
		p.Username = &v
	}
	if p.Email != nil {
		v := common.NormalizeEmail(*p.Email)
		if !emailPattern.MatchString(v) {
			return common.Validationf("invalid email address")
		}
		p.Email = &v
	}
	if p.FavoriteGame != nil {
		v := strings.TrimSpace(*p.FavoriteGame)
		p.FavoriteGame = &v
	}
	return nil
}

// wrapKind tags err with a taxonomy sentinel, keeping err for logs.
func wrapKind(kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %v", kind, err)
}

// asStorageErr keeps known kinds and turns anything else (commit failures)
// into a storage error.
func asStorageErr(err error) error {
	for _, kind := range []error{common.ErrStorage, common.ErrNotification, common.ErrFetch} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return wrapKind(common.ErrStorage, err)
}
