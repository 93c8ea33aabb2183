// This file implements VaultService, the CRUD surface over stored site
// credentials. Secrets are sealed before they reach the store and opened
// only on single-record reads.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/dbx"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/server/models"
	"github.com/dmitrijs2005/passvault/internal/server/notify"
	"github.com/dmitrijs2005/passvault/internal/server/repositories/repomanager"
)

// CreateCredentialParams carries the fields for a new credential.
// Category defaults to "other" and Favorite to false when unset.
type CreateCredentialParams struct {
	Title        string
	URL          string
	LoginName    string
	ContactEmail string
	Notes        string
	Category     models.Category
	Favorite     bool
	Secret       string
}

// UpdateCredentialParams is a partial update: nil fields keep their
// current values. A non-nil Secret re-seals and archives the previous
// ciphertext.
type UpdateCredentialParams struct {
	Title        *string
	URL          *string
	LoginName    *string
	ContactEmail *string
	Notes        *string
	Category     *models.Category
	Favorite     *bool
	Secret       *string
}

// VaultService provides create/read/update/delete over stored credentials.
type VaultService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	vault       *cryptox.Vault
	sink        notify.Sink
	logger      logging.Logger
}

// NewVaultService constructs a VaultService.
func NewVaultService(db *sql.DB, m repomanager.RepositoryManager, vault *cryptox.Vault,
	sink notify.Sink, logger logging.Logger) *VaultService {
	return &VaultService{
		db:          db,
		repomanager: m,
		vault:       vault,
		sink:        sink,
		logger:      logger.With("module", "vault"),
	}
}

// Create seals the secret and persists a new credential for the account.
// A case-insensitive title collision within the account yields
// common.ErrDuplicateTitle.
func (s *VaultService) Create(ctx context.Context, accountID string, params CreateCredentialParams) (*models.Credential, error) {
	category := params.Category
	if category == "" {
		category = models.CategoryOther
	}

	ciphertext, err := s.vault.Seal(params.Secret)
	if err != nil {
		return nil, common.ErrInternal
	}

	repo := s.repomanager.Credentials(s.db)
	credential, err := repo.Create(ctx, &models.Credential{
		AccountID:        accountID,
		Title:            params.Title,
		TitleNormalized:  models.NormalizeTitle(params.Title),
		URL:              params.URL,
		LoginName:        params.LoginName,
		ContactEmail:     params.ContactEmail,
		Notes:            params.Notes,
		Category:         category,
		Favorite:         params.Favorite,
		SecretCiphertext: ciphertext,
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateTitle) {
			return nil, common.ErrDuplicateTitle
		}
		return nil, fmt.Errorf("error creating credential: %w", err)
	}

	s.emit(ctx, notify.Event{Kind: notify.EventCredentialCreated, AccountID: accountID, Subject: credential.Title})
	return credential, nil
}

// Get returns one credential with its secret opened. The ciphertext never
// leaves the service: the returned record has it blanked, and the
// plaintext travels separately. A failed open surfaces as
// common.ErrDecryptionFailed, which callers must translate into a generic
// internal failure distinct from "not found".
func (s *VaultService) Get(ctx context.Context, accountID, id string) (*models.Credential, string, error) {
	credential, err := s.repomanager.Credentials(s.db).GetByID(ctx, id, accountID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, "", common.ErrNotFound
		}
		return nil, "", common.ErrInternal
	}

	secret, err := s.vault.Open(credential.SecretCiphertext)
	if err != nil {
		s.logger.Error(ctx, "failed to open stored secret", "credential_id", credential.ID)
		return nil, "", common.ErrDecryptionFailed
	}

	credential.SecretCiphertext = ""
	return credential, secret, nil
}

// List returns the account's credentials matching the filter. Neither the
// ciphertext nor the decrypted secret is included.
func (s *VaultService) List(ctx context.Context, accountID string, filter models.ListFilter) ([]*models.Credential, error) {
	result, err := s.repomanager.Credentials(s.db).List(ctx, accountID, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing credentials: %w", err)
	}
	return result, nil
}

// Update applies a partial update inside one transaction: read the
// current row with a row lock, overlay the supplied fields, re-seal when
// a new secret arrives (archiving the previous ciphertext), and write
// back. The lock holds until commit, so a concurrent partial update to a
// different field cannot be overwritten with stale values. Any accepted
// change bumps modified_at.
func (s *VaultService) Update(ctx context.Context, accountID, id string, params UpdateCredentialParams) (*models.Credential, error) {
	var updated *models.Credential

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Credentials(tx)

		credential, err := repo.GetByIDForUpdate(ctx, id, accountID)
		if err != nil {
			return err
		}

		if params.Title != nil {
			credential.Title = *params.Title
			credential.TitleNormalized = models.NormalizeTitle(*params.Title)
		}
		if params.URL != nil {
			credential.URL = *params.URL
		}
		if params.LoginName != nil {
			credential.LoginName = *params.LoginName
		}
		if params.ContactEmail != nil {
			credential.ContactEmail = *params.ContactEmail
		}
		if params.Notes != nil {
			credential.Notes = *params.Notes
		}
		if params.Category != nil {
			credential.Category = *params.Category
		}
		if params.Favorite != nil {
			credential.Favorite = *params.Favorite
		}
		if params.Secret != nil {
			if err := repo.AddRevision(ctx, &models.CredentialRevision{
				CredentialID: credential.ID,
				Ciphertext:   credential.SecretCiphertext,
				ReplacedAt:   time.Now(),
			}); err != nil {
				return err
			}
			ciphertext, err := s.vault.Seal(*params.Secret)
			if err != nil {
				return err
			}
			credential.SecretCiphertext = ciphertext
		}

		if err := repo.Update(ctx, credential); err != nil {
			return err
		}
		credential.SecretCiphertext = ""
		updated = credential
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrDuplicateTitle) {
			return nil, err
		}
		return nil, common.ErrInternal
	}

	s.emit(ctx, notify.Event{Kind: notify.EventCredentialUpdated, AccountID: accountID, Subject: updated.Title})
	return updated, nil
}

// Delete removes a credential. An id owned by another account fails
// exactly like a missing id.
func (s *VaultService) Delete(ctx context.Context, accountID, id string) error {
	if err := s.repomanager.Credentials(s.db).Delete(ctx, id, accountID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return common.ErrInternal
	}
	s.emit(ctx, notify.Event{Kind: notify.EventCredentialDeleted, AccountID: accountID, Subject: id})
	return nil
}

// ToggleFavorite flips the favorite flag and returns the new value, with
// the same ownership semantics as Delete.
func (s *VaultService) ToggleFavorite(ctx context.Context, accountID, id string) (bool, error) {
	favorite, err := s.repomanager.Credentials(s.db).ToggleFavorite(ctx, id, accountID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, common.ErrNotFound
		}
		return false, common.ErrInternal
	}
	s.emit(ctx, notify.Event{Kind: notify.EventCredentialFavorited, AccountID: accountID, Subject: id})
	return favorite, nil
}

func (s *VaultService) emit(ctx context.Context, event notify.Event) {
	if err := s.sink.Emit(ctx, event); err != nil {
		s.logger.Warn(ctx, "notification emit failed", "kind", event.Kind.String(), "error", err.Error())
	}
}
