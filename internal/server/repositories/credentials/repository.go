package credentials

import (
	"context"

	"github.com/dmitrijs2005/passvault/internal/server/models"
)

// Repository is the credential store contract consumed by the vault
// service. Every read and mutation is scoped to the owning account; an
// ownership mismatch is indistinguishable from a missing row
// (common.ErrNotFound).
type Repository interface {
	Create(ctx context.Context, credential *models.Credential) (*models.Credential, error)
	GetByID(ctx context.Context, id, accountID string) (*models.Credential, error)
	GetByIDForUpdate(ctx context.Context, id, accountID string) (*models.Credential, error)
	List(ctx context.Context, accountID string, filter models.ListFilter) ([]*models.Credential, error)
	Update(ctx context.Context, credential *models.Credential) error
	Delete(ctx context.Context, id, accountID string) error
	ToggleFavorite(ctx context.Context, id, accountID string) (bool, error)
	AddRevision(ctx context.Context, revision *models.CredentialRevision) error
}
