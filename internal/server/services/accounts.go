// Package services contains server-side business logic. This file
// implements AccountService, the authentication state machine over an
// account's secrets and tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/server/auth"
	"github.com/dmitrijs2005/passvault/internal/server/config"
	"github.com/dmitrijs2005/passvault/internal/server/models"
	"github.com/dmitrijs2005/passvault/internal/server/notify"
	"github.com/dmitrijs2005/passvault/internal/server/repositories/repomanager"
)

// Session bundles an authenticated account with its freshly issued token.
type Session struct {
	Account *models.Account
	Token   string
}

// AccountService provides authentication-related operations:
//   - Register / Login: create accounts and verify credentials
//   - Authenticate: session-token verification for protected calls
//   - VerifyMaster: the extra confirmation gate for sensitive operations
//   - RequestPasswordReset / ResetPassword: the recovery-token lifecycle
//   - ChangeAccountSecret / ChangeMasterSecret: explicit re-hash on change
type AccountService struct {
	db               *sql.DB
	repomanager      repomanager.RepositoryManager
	hasher           *cryptox.Hasher
	sink             notify.Sink
	logger           logging.Logger
	jwtSecret        []byte
	sessionValidity  time.Duration
	recoveryValidity time.Duration
}

// NewAccountService constructs an AccountService using repositories and
// server config.
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, hasher *cryptox.Hasher,
	sink notify.Sink, logger logging.Logger, cfg *config.Config) *AccountService {
	return &AccountService{
		db:               db,
		repomanager:      m,
		hasher:           hasher,
		sink:             sink,
		logger:           logger.With("module", "accounts"),
		jwtSecret:        []byte(cfg.SecretKey),
		sessionValidity:  cfg.SessionTokenValidityDuration,
		recoveryValidity: cfg.RecoveryTokenValidityDuration,
	}
}

// Register creates an account with both secrets hashed and returns a live
// session. A normalized-email collision yields common.ErrDuplicateEmail.
func (s *AccountService) Register(ctx context.Context, email, displayName, accountSecret, masterSecret string) (*Session, error) {
	secretHash, err := s.hasher.Hash(accountSecret)
	if err != nil {
		return nil, fmt.Errorf("error hashing account secret: %w", err)
	}
	masterHash, err := s.hasher.Hash(masterSecret)
	if err != nil {
		return nil, fmt.Errorf("error hashing master secret: %w", err)
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.Create(ctx, &models.Account{
		EmailNormalized: models.NormalizeEmail(email),
		DisplayName:     displayName,
		SecretHash:      secretHash,
		MasterHash:      masterHash,
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("error creating account: %w", err)
	}

	token, err := s.issueSession(account)
	if err != nil {
		return nil, common.ErrInternal
	}

	s.emit(ctx, notify.Event{Kind: notify.EventAccountRegistered, AccountID: account.ID, Subject: account.DisplayName})
	return &Session{Account: account, Token: token}, nil
}

// Login verifies the account secret for an active account and returns a
// session. An unknown email, a disabled account, and a wrong secret all
// yield the same common.ErrInvalidCredentials; a dummy hash comparison on
// the miss path keeps response timing level between the cases.
func (s *AccountService) Login(ctx context.Context, email, accountSecret string) (*Session, error) {
	repo := s.repomanager.Accounts(s.db)

	account, err := repo.GetByNormalizedEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.hasher.DummyVerify(accountSecret)
			return nil, common.ErrInvalidCredentials
		}
		return nil, common.ErrInternal
	}

	if !s.hasher.Verify(accountSecret, account.SecretHash) || !account.Active {
		return nil, common.ErrInvalidCredentials
	}

	if err := repo.TouchLastAccess(ctx, account.ID); err != nil {
		return nil, common.ErrInternal
	}

	token, err := s.issueSession(account)
	if err != nil {
		return nil, common.ErrInternal
	}
	return &Session{Account: account, Token: token}, nil
}

// Authenticate backs the session middleware: it verifies the token, loads
// the account, rejects missing or disabled accounts, and bumps
// last_access_at as a side effect of every authenticated call.
func (s *AccountService) Authenticate(ctx context.Context, token string) (*models.Account, error) {
	claims, err := auth.ParseSessionToken(token, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrAccountNotFound
		}
		return nil, common.ErrInternal
	}
	if !account.Active {
		return nil, common.ErrAccountDisabled
	}

	if err := repo.TouchLastAccess(ctx, account.ID); err != nil {
		return nil, common.ErrInternal
	}
	return account, nil
}

// VerifyMaster reports whether the supplied master secret matches the
// account's master hash. A mismatch is a normal negative result, not an
// error.
func (s *AccountService) VerifyMaster(account *models.Account, masterSecret string) bool {
	return s.hasher.Verify(masterSecret, account.MasterHash)
}

// RequestPasswordReset starts the recovery flow. It returns the same nil
// result whether or not the email belongs to an account, so callers
// cannot enumerate registered addresses. For a known active account a
// recovery token is stored and handed to the notification sink.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	repo := s.repomanager.Accounts(s.db)

	account, err := repo.GetByNormalizedEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return common.ErrInternal
	}
	if !account.Active {
		return nil
	}

	token, err := auth.NewRecoveryToken()
	if err != nil {
		return common.ErrInternal
	}
	if err := repo.SetRecoveryToken(ctx, account.ID, token, time.Now().Add(s.recoveryValidity)); err != nil {
		return common.ErrInternal
	}

	s.emit(ctx, notify.Event{
		Kind:          notify.EventPasswordResetRequested,
		AccountID:     account.ID,
		RecoveryToken: token,
	})
	return nil
}

// ResetPassword consumes a recovery token: it must match exactly, be
// unexpired, and belong to an active account, otherwise
// common.ErrInvalidOrExpiredToken. Hash update and token clearing happen
// in one conditional statement keyed on the token itself, so the token is
// single-use even when two resets race: the loser affects zero rows and
// fails with the same error.
func (s *AccountService) ResetPassword(ctx context.Context, token, newAccountSecret string) error {
	repo := s.repomanager.Accounts(s.db)

	account, err := repo.GetByRecoveryToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrInvalidOrExpiredToken
		}
		return common.ErrInternal
	}
	if !account.Active || time.Now().After(account.RecoveryTokenExpiresAt) {
		return common.ErrInvalidOrExpiredToken
	}

	newHash, err := s.hasher.Hash(newAccountSecret)
	if err != nil {
		return common.ErrInternal
	}

	if err := repo.ConsumeRecoveryToken(ctx, account.ID, token, newHash); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrInvalidOrExpiredToken
		}
		return common.ErrInternal
	}

	s.emit(ctx, notify.Event{Kind: notify.EventAccountSecretChanged, AccountID: account.ID})
	return nil
}

// ChangeAccountSecret replaces the login secret after re-verifying the
// current one.
func (s *AccountService) ChangeAccountSecret(ctx context.Context, account *models.Account, currentSecret, newSecret string) error {
	if !s.hasher.Verify(currentSecret, account.SecretHash) {
		return common.ErrIncorrectCurrentSecret
	}
	newHash, err := s.hasher.Hash(newSecret)
	if err != nil {
		return common.ErrInternal
	}
	if err := s.repomanager.Accounts(s.db).UpdateSecretHash(ctx, account.ID, newHash); err != nil {
		return common.ErrInternal
	}
	s.emit(ctx, notify.Event{Kind: notify.EventAccountSecretChanged, AccountID: account.ID})
	return nil
}

// ChangeMasterSecret replaces the master secret after re-verifying the
// current one.
func (s *AccountService) ChangeMasterSecret(ctx context.Context, account *models.Account, currentMaster, newMaster string) error {
	if !s.hasher.Verify(currentMaster, account.MasterHash) {
		return common.ErrIncorrectCurrentSecret
	}
	newHash, err := s.hasher.Hash(newMaster)
	if err != nil {
		return common.ErrInternal
	}
	if err := s.repomanager.Accounts(s.db).UpdateMasterHash(ctx, account.ID, newHash); err != nil {
		return common.ErrInternal
	}
	s.emit(ctx, notify.Event{Kind: notify.EventMasterSecretChanged, AccountID: account.ID})
	return nil
}

// --- helpers below ---

func (s *AccountService) issueSession(account *models.Account) (string, error) {
	return auth.GenerateSessionToken(account.ID, account.EmailNormalized, s.jwtSecret, s.sessionValidity)
}

// emit forwards an event to the notification sink. Delivery is best
// effort: failures are logged and never affect the operation's result.
func (s *AccountService) emit(ctx context.Context, event notify.Event) {
	if err := s.sink.Emit(ctx, event); err != nil {
		s.logger.Warn(ctx, "notification emit failed", "kind", event.Kind.String(), "error", err.Error())
	}
}
