package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/lootshop/internal/common"
	"github.com/dmitrijs2005/lootshop/internal/dbx"
	"github.com/dmitrijs2005/lootshop/internal/logging"
	"github.com/dmitrijs2005/lootshop/internal/server/admin"
	"github.com/dmitrijs2005/lootshop/internal/server/auth"
	"github.com/dmitrijs2005/lootshop/internal/server/models"
	"github.com/dmitrijs2005/lootshop/internal/server/otp"
	"github.com/dmitrijs2005/lootshop/internal/server/repositories/users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// fakeUsersRepo is an in-memory users.Repository mirroring the Postgres
// semantics (unique email, pending-code lookup, not-found on missing rows).
type fakeUsersRepo struct {
	mu   sync.Mutex
	rows map[string]*models.User

	getByEmailErr  error
	createErr      error
	recordLoginErr error
	logoutErr      error
	setCodeErr     error
	updateHashErr  error

	// failHashCall makes the n-th UpdatePasswordHash call (1-based) fail.
	failHashCall int
	hashCalls    int
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{rows: map[string]*models.User{}}
}

func clone(u *models.User) *models.User {
	c := *u
	return &c
}

func (f *fakeUsersRepo) byEmail(email string) *models.User {
	for _, u := range f.rows {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.byEmail(u.Email) != nil {
		return nil, common.ErrorAlreadyExists
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = t0
	f.rows[u.ID] = clone(u)
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getByEmailErr != nil {
		return nil, f.getByEmailErr
	}
	if u := f.byEmail(email); u != nil {
		return clone(u), nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.rows[id]; ok {
		return clone(u), nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) FindPendingVerification(_ context.Context, email, code string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byEmail(email)
	if u == nil || u.EmailVerified || u.VerificationCode == nil || *u.VerificationCode != code {
		return nil, common.ErrorNotFound
	}
	return clone(u), nil
}

func (f *fakeUsersRepo) SetVerificationCode(_ context.Context, id, code string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setCodeErr != nil {
		return f.setCodeErr
	}
	u, ok := f.rows[id]
	if !ok || u.EmailVerified {
		return common.ErrorNotFound
	}
	u.VerificationCode, u.VerificationExpiresAt = &code, &expiresAt
	return nil
}

func (f *fakeUsersRepo) MarkVerified(_ context.Context, id string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.EmailVerified = true
	u.VerificationCode, u.VerificationExpiresAt = nil, nil
	u.LastLogin, u.SessionActive = &now, true
	return nil
}

func (f *fakeUsersRepo) RecordLogin(_ context.Context, id string, now time.Time, digest string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordLoginErr != nil {
		return f.recordLoginErr
	}
	u, ok := f.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.LastLogin, u.SessionActive = &now, true
	u.SessionDigest, u.SessionExpiresAt = &digest, &expiresAt
	return nil
}

func (f *fakeUsersRepo) RecordLogout(_ context.Context, id string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logoutErr != nil {
		return f.logoutErr
	}
	u, ok := f.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.SessionActive, u.LastLogout = false, &now
	u.SessionDigest, u.SessionExpiresAt = nil, nil
	return nil
}

func (f *fakeUsersRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hashCalls++
	if f.updateHashErr != nil {
		return f.updateHashErr
	}
	if f.failHashCall == f.hashCalls {
		return errBoom
	}
	u, ok := f.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsersRepo) UpdateFields(_ context.Context, id string, p models.UserPatch) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if p.Email != nil {
		if other := f.byEmail(*p.Email); other != nil && other.ID != id {
			return nil, common.ErrorAlreadyExists
		}
		u.Email = *p.Email
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.FavoriteGame != nil {
		u.FavoriteGame = *p.FavoriteGame
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	return clone(u), nil
}

type fakeRepoManager struct {
	users *fakeUsersRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return m.users }

type fakeIdentity struct {
	created   []string
	deleted   []string
	createErr error
	deleteErr error
}

func (f *fakeIdentity) CreateAccount(_ context.Context, email, _ string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	id := "idp-" + email
	f.created = append(f.created, id)
	return id, nil
}

func (f *fakeIdentity) DeleteAccount(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

type sentMail struct {
	to, username, code, password string
}

type fakeNotifier struct {
	otps      []sentMail
	passwords []sentMail
	err       error
}

func (f *fakeNotifier) SendOTP(_ context.Context, to, username, code string, _ time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.otps = append(f.otps, sentMail{to: to, username: username, code: code})
	return nil
}

func (f *fakeNotifier) SendTemporaryPassword(_ context.Context, to, password string) error {
	if f.err != nil {
		return f.err
	}
	f.passwords = append(f.passwords, sentMail{to: to, password: password})
	return nil
}

func (f *fakeNotifier) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.otps, "no otp was sent")
	return f.otps[len(f.otps)-1].code
}

type env struct {
	svc      *AuthService
	repo     *fakeUsersRepo
	idp      *fakeIdentity
	notifier *fakeNotifier
	clock    *fakeClock
	tokens   *auth.Issuer
	mock     sqlmock.Sqlmock
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	authorizer, err := admin.NewAuthorizer(admin.Tiers{
		Super:   []string{"root@shop.com"},
		Manager: []string{"boss@shop.com"},
		Basic:   []string{"clerk@shop.com"},
	})
	require.NoError(t, err)

	e := &env{
		repo:     newFakeUsersRepo(),
		idp:      &fakeIdentity{},
		notifier: &fakeNotifier{},
		clock:    &fakeClock{t: t0},
		mock:     mock,
	}
	e.tokens = auth.NewIssuer("test-secret", "lootshop", "authenticated", 24*time.Hour).WithClock(e.clock.Now)
	e.svc = NewAuthService(db, &fakeRepoManager{users: e.repo}, Dependencies{
		Identity:   e.idp,
		Notifier:   e.notifier,
		OTP:        otp.NewGenerator(3*time.Minute, e.clock.Now),
		Tokens:     e.tokens,
		Authorizer: authorizer,
		BcryptCost: bcrypt.MinCost,
		Now:        e.clock.Now,
		Log:        logging.Nop{},
	})
	return e
}

func (e *env) expectTx(commit bool) {
	e.mock.ExpectBegin()
	if commit {
		e.mock.ExpectCommit()
	} else {
		e.mock.ExpectRollback()
	}
}

func (e *env) register(t *testing.T, username, email, password string) *RegisterResult {
	t.Helper()
	res, err := e.svc.Register(context.Background(), RegisterInput{Username: username, Email: email, Password: password, FavoriteGame: "cs2"})
	require.NoError(t, err)
	return res
}

// registerVerified creates an account and verifies it.
func (e *env) registerVerified(t *testing.T, username, email, password string) *models.PublicUser {
	t.Helper()
	e.register(t, username, email, password)
	e.expectTx(true)
	u, err := e.svc.VerifyOTP(context.Background(), email, e.notifier.lastCode(t))
	require.NoError(t, err)
	return u
}

var errBoom = errors.New("boom")

func modelsPatch(username, game *string) models.UserPatch {
	return models.UserPatch{Username: username, FavoriteGame: game}
}
