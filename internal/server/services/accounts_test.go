package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/dbx"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/server/auth"
	"github.com/dmitrijs2005/passvault/internal/server/config"
	"github.com/dmitrijs2005/passvault/internal/server/models"
	"github.com/dmitrijs2005/passvault/internal/server/notify"
	"github.com/dmitrijs2005/passvault/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/passvault/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/passvault/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                     "test-secret",
		SessionTokenValidityDuration:  30 * time.Minute,
		RecoveryTokenValidityDuration: time.Hour,
	}
}

// --- fakes ---

type fakeAccountsRepo struct {
	account   *models.Account
	getErr    error
	createErr error

	touched        int
	secretHash     string
	masterHash     string
	setToken       string
	setTokenExpiry time.Time
	consumedToken  string
	updateErr      error
	consumeErr     error
}

func (f *fakeAccountsRepo) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	a.ID = "a1"
	a.Active = true
	a.CreatedAt = time.Now()
	a.LastAccessAt = a.CreatedAt
	return a, nil
}

func (f *fakeAccountsRepo) GetByNormalizedEmail(context.Context, string) (*models.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.account, nil
}

func (f *fakeAccountsRepo) GetByID(context.Context, string) (*models.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.account, nil
}

func (f *fakeAccountsRepo) GetByRecoveryToken(context.Context, string) (*models.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.account, nil
}

func (f *fakeAccountsRepo) UpdateSecretHash(_ context.Context, _ string, hash string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.secretHash = hash
	return nil
}

func (f *fakeAccountsRepo) UpdateMasterHash(_ context.Context, _ string, hash string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.masterHash = hash
	return nil
}

func (f *fakeAccountsRepo) SetRecoveryToken(_ context.Context, _ string, token string, expiresAt time.Time) error {
	f.setToken = token
	f.setTokenExpiry = expiresAt
	return nil
}

func (f *fakeAccountsRepo) ConsumeRecoveryToken(_ context.Context, _ string, token, hash string) error {
	if f.consumeErr != nil {
		return f.consumeErr
	}
	f.consumedToken = token
	f.secretHash = hash
	return nil
}

func (f *fakeAccountsRepo) TouchLastAccess(context.Context, string) error {
	f.touched++
	return nil
}

type fakeCredentialsRepo struct {
	credential *models.Credential
	listOut    []*models.Credential
	getErr     error
	createErr  error
	updateErr  error
	deleteErr  error
	toggleErr  error

	updated    *models.Credential
	revisions  []*models.CredentialRevision
	deleted    bool
	favorite   bool
	lockedGets int
}

func (f *fakeCredentialsRepo) Create(_ context.Context, c *models.Credential) (*models.Credential, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	c.ID = "c1"
	c.CreatedAt = time.Now()
	c.ModifiedAt = c.CreatedAt
	return c, nil
}

func (f *fakeCredentialsRepo) GetByID(context.Context, string, string) (*models.Credential, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.credential, nil
}

func (f *fakeCredentialsRepo) GetByIDForUpdate(ctx context.Context, id, accountID string) (*models.Credential, error) {
	f.lockedGets++
	return f.GetByID(ctx, id, accountID)
}

func (f *fakeCredentialsRepo) List(context.Context, string, models.ListFilter) ([]*models.Credential, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.listOut, nil
}

func (f *fakeCredentialsRepo) Update(_ context.Context, c *models.Credential) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = c
	return nil
}

func (f *fakeCredentialsRepo) Delete(context.Context, string, string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = true
	return nil
}

func (f *fakeCredentialsRepo) ToggleFavorite(context.Context, string, string) (bool, error) {
	if f.toggleErr != nil {
		return false, f.toggleErr
	}
	f.favorite = !f.favorite
	return f.favorite, nil
}

func (f *fakeCredentialsRepo) AddRevision(_ context.Context, rev *models.CredentialRevision) error {
	f.revisions = append(f.revisions, rev)
	return nil
}

type fakeRepoManager struct {
	a *fakeAccountsRepo
	c *fakeCredentialsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository       { return m.a }
func (m *fakeRepoManager) Credentials(dbx.DBTX) credentials.Repository { return m.c }

var _ repomanager.RepositoryManager = (*fakeRepoManager)(nil)

type fakeSink struct {
	events []notify.Event
	err    error
}

func (f *fakeSink) Emit(_ context.Context, event notify.Event) error {
	f.events = append(f.events, event)
	return f.err
}

func newAccountService(t *testing.T, db *sql.DB, rm repomanager.RepositoryManager, sink notify.Sink) *AccountService {
	t.Helper()
	hasher := cryptox.NewHasher(bcrypt.MinCost)
	return NewAccountService(db, rm, hasher, sink, testLogger(), testConfig())
}

func hashFor(t *testing.T, plaintext string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.MinCost)
	require.NoError(t, err)
	return string(b)
}

// --- tests ---

func TestRegister_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeAccountsRepo{}
	sink := &fakeSink{}
	s := newAccountService(t, db, &fakeRepoManager{a: repo}, sink)

	session, err := s.Register(context.Background(), "  Alice@Example.COM ", "Alice", "account-pw", "master-pw")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", session.Account.EmailNormalized)
	assert.NotEmpty(t, session.Token)
	assert.NotEqual(t, "account-pw", session.Account.SecretHash)
	assert.NotEqual(t, "master-pw", session.Account.MasterHash)
	assert.NotEqual(t, session.Account.SecretHash, session.Account.MasterHash)

	require.Len(t, sink.events, 1)
	assert.Equal(t, notify.EventAccountRegistered, sink.events[0].Kind)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeAccountsRepo{createErr: common.ErrDuplicateEmail}
	s := newAccountService(t, db, &fakeRepoManager{a: repo}, &fakeSink{})

	_, err := s.Register(context.Background(), "alice@example.com", "Alice", "pw", "mpw")
	assert.True(t, errors.Is(err, common.ErrDuplicateEmail))
}

func TestRegister_SinkFailureDoesNotFail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newAccountService(t, db, &fakeRepoManager{a: &fakeAccountsRepo{}}, &fakeSink{err: errors.New("smtp down")})

	_, err := s.Register(context.Background(), "alice@example.com", "Alice", "pw", "mpw")
	assert.NoError(t, err)
}

func TestLogin_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeAccountsRepo{account: &models.Account{
		ID: "a1", EmailNormalized: "alice@example.com", Active: true,
		SecretHash: hashFor(t, "account-pw"),
	}}
	s := newAccountService(t, db, &fakeRepoManager{a: repo}, &fakeSink{})

	session, err := s.Login(context.Background(), "Alice@example.com", "account-pw")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, 1, repo.touched, "login must bump last_access_at")
}

func TestLogin_GenericFailureForMissAndMismatch(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	// Unknown email.
	sMiss := newAccountService(t, db, &fakeRepoManager{a: &fakeAccountsRepo{getErr: common.ErrNotFound}}, &fakeSink{})
	_, errMiss := sMiss.Login(context.Background(), "ghost@example.com", "whatever")

	// Known email, wrong password.
	repo := &fakeAccountsRepo{account: &models.Account{
		ID: "a1", Active: true, SecretHash: hashFor(t, "right-pw"),
	}}
	sWrong := newAccountService(t, db, &fakeRepoManager{a: repo}, &fakeSink{})
	_, errWrong := sWrong.Login(context.Background(), "alice@example.com", "wrong-pw")

	assert.True(t, errors.Is(errMiss, common.ErrInvalidCredentials))
	assert.True(t, errors.Is(errWrong, common.ErrInvalidCredentials))
	assert.Equal(t, errMiss.Error(), errWrong.Error(), "both cases must be indistinguishable")
}

func TestLogin_DisabledAccount(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeAccountsRepo{account: &models.Account{
		ID: "a1", Active: false, SecretHash: hashFor(t, "pw"),
	}}
	s := newAccountService(t, db, &fakeRepoManager{a: repo}, &fakeSink{})

	_, err := s.Login(context.Background(), "alice@example.com", "pw")
	assert.True(t, errors.Is(err, common.ErrInvalidCredentials))
}

func TestAuthenticate_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeAccountsRepo{account: &models.Account{ID: "a1", Active: true}}
	s := newAccountService(t, db, &fakeRepoManager{a: repo}, &fakeSink{})

	token, err := auth.GenerateSessionToken("a1", "alice@example.com", []byte("test-secret"), time.Minute)
	require.NoError(t, err)

	account, err := s.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "a1", account.ID)
	assert.Equal(t, 1, repo.touched, "every authenticated call must bump last_access_at")
}

func TestAuthenticate_TokenKinds(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newAccountService(t, db, &fakeRepoManager{a: &fakeAccountsRepo{}}, &fakeSink{})

	expired, err := auth.GenerateSessionToken("a1", "e", []byte("test-secret"), -time.Minute)
	require.NoError(t, err)
	_, err = s.Authenticate(context.Background(), expired)
	assert.True(t, errors.Is(err, common.ErrTokenExpired))

	_, err = s.Authenticate(context.Background(), "not-a-token")
	assert.True(t, errors.Is(err, common.ErrTokenMalformed))
}

func TestAuthenticate_AccountMissingOrDisabled(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	token, err := auth.GenerateSessionToken("a1", "e", []byte("test-secret"), time.Minute)
	require.NoError(t, err)

	sMissing := newAccountService(t, db, &fakeRepoManager{a: &fakeAccountsRepo{getErr: common.ErrNotFound}}, &fakeSink{})
	_, err = sMissing.Authenticate(context.Background(), token)
	assert.True(t, errors.Is(err, common.ErrAccountNotFound))

	sDisabled := newAccountService(t, db, &fakeRepoManager{a: &fakeAccountsRepo{account: &models.Account{ID: "a1", Active: false}}}, &fakeSink{})
	_, err = sDisabled.Authenticate(context.Background(), token)
	assert.True(t, errors.Is(err, common.ErrAccountDisabled))
}

func TestVerifyMaster(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newAccountService(t, db, &fakeRepoManager{a: &fakeAccountsRepo{}}, &fakeSink{})
	account := &models.Account{MasterHash: hashFor(t, "master-pw")}

	assert.True(t, s.VerifyMaster(account, "master-pw"))
	assert.False(t, s.VerifyMaster(account, "nope"))
}

func TestRequestPasswordReset_UnknownEmailSameResult(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeAccountsRepo{getErr: common.ErrNotFound}
	s := newAccountService(t, db, &fakeRepoManager{a: repo}, &fakeSink{})

	err := s.RequestPasswordReset(context.Background(), "ghost@example.com")
	assert.NoError(t, err)
	assert.Empty(t, repo.setToken, "no token may be stored for unknown accounts")
}

func TestRequestPasswordReset_KnownAccount(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeAccountsRepo{account: &models.Account{ID: "a1", Active: true}}
	sink := &fakeSink{}
	s := newAccountService(t, db, &fakeRepoManager{a: repo}, sink)

	err := s.RequestPasswordReset(context.Background(), "alice@example.com")
	require.NoError(t, err)

	assert.Len(t, repo.setToken, 64, "token must carry 256 bits of entropy (hex)")
	assert.WithinDuration(t, time.Now().Add(time.Hour), repo.setTokenExpiry, time.Minute)

	require.Len(t, sink.events, 1)
	assert.Equal(t, notify.EventPasswordResetRequested, sink.events[0].Kind)
	assert.Equal(t, repo.setToken, sink.events[0].RecoveryToken)
}

func TestRequestPasswordReset_InactiveAccount(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeAccountsRepo{account: &models.Account{ID: "a1", Active: false}}
	s := newAccountService(t, db, &fakeRepoManager{a: repo}, &fakeSink{})

	err := s.RequestPasswordReset(context.Background(), "alice@example.com")
	assert.NoError(t, err)
	assert.Empty(t, repo.setToken)
}

func TestResetPassword_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeAccountsRepo{account: &models.Account{
		ID: "a1", Active: true,
		RecoveryToken:          "tok",
		RecoveryTokenExpiresAt: time.Now().Add(30 * time.Minute),
	}}
	s := newAccountService(t, db, &fakeRepoManager{a: repo}, &fakeSink{})

	err := s.ResetPassword(context.Background(), "tok", "new-password")
	require.NoError(t, err)

	assert.NotEmpty(t, repo.secretHash, "secret hash must be replaced")
	assert.Equal(t, "tok", repo.consumedToken, "consumption must be conditional on the exact token")
}

func TestResetPassword_ConcurrentConsumeLosesRace(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	// The conditional consume affects zero rows when another reset with
	// the same token commits first.
	repo := &fakeAccountsRepo{
		account: &models.Account{
			ID: "a1", Active: true,
			RecoveryToken:          "tok",
			RecoveryTokenExpiresAt: time.Now().Add(30 * time.Minute),
		},
		consumeErr: common.ErrNotFound,
	}
	s := newAccountService(t, db, &fakeRepoManager{a: repo}, &fakeSink{})

	err := s.ResetPassword(context.Background(), "tok", "new-password")
	assert.True(t, errors.Is(err, common.ErrInvalidOrExpiredToken))
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeAccountsRepo{account: &models.Account{
		ID: "a1", Active: true,
		RecoveryToken:          "tok",
		RecoveryTokenExpiresAt: time.Now().Add(-time.Minute),
	}}
	s := newAccountService(t, db, &fakeRepoManager{a: repo}, &fakeSink{})

	err := s.ResetPassword(context.Background(), "tok", "new-password")
	assert.True(t, errors.Is(err, common.ErrInvalidOrExpiredToken))
}

func TestResetPassword_UnknownOrConsumedToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newAccountService(t, db, &fakeRepoManager{a: &fakeAccountsRepo{getErr: common.ErrNotFound}}, &fakeSink{})

	err := s.ResetPassword(context.Background(), "already-consumed", "new-password")
	assert.True(t, errors.Is(err, common.ErrInvalidOrExpiredToken))
}

func TestResetPassword_InactiveAccount(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeAccountsRepo{account: &models.Account{
		ID: "a1", Active: false,
		RecoveryToken:          "tok",
		RecoveryTokenExpiresAt: time.Now().Add(time.Hour),
	}}
	s := newAccountService(t, db, &fakeRepoManager{a: repo}, &fakeSink{})

	err := s.ResetPassword(context.Background(), "tok", "new-password")
	assert.True(t, errors.Is(err, common.ErrInvalidOrExpiredToken))
}

func TestChangeAccountSecret(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeAccountsRepo{}
	s := newAccountService(t, db, &fakeRepoManager{a: repo}, &fakeSink{})
	account := &models.Account{ID: "a1", SecretHash: hashFor(t, "current-pw")}

	err := s.ChangeAccountSecret(context.Background(), account, "wrong", "new-pw")
	assert.True(t, errors.Is(err, common.ErrIncorrectCurrentSecret))
	assert.Empty(t, repo.secretHash)

	err = s.ChangeAccountSecret(context.Background(), account, "current-pw", "new-pw")
	require.NoError(t, err)
	assert.NotEmpty(t, repo.secretHash)
}

func TestChangeMasterSecret(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeAccountsRepo{}
	s := newAccountService(t, db, &fakeRepoManager{a: repo}, &fakeSink{})
	account := &models.Account{ID: "a1", MasterHash: hashFor(t, "current-master")}

	err := s.ChangeMasterSecret(context.Background(), account, "wrong", "new-master")
	assert.True(t, errors.Is(err, common.ErrIncorrectCurrentSecret))

	err = s.ChangeMasterSecret(context.Background(), account, "current-master", "new-master")
	require.NoError(t, err)
	assert.NotEmpty(t, repo.masterHash)
}
