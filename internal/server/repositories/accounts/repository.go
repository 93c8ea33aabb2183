package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/passvault/internal/server/models"
)

// Repository is the account store contract consumed by the services.
// Lookups return common.ErrNotFound when no row matches.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByNormalizedEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByRecoveryToken(ctx context.Context, token string) (*models.Account, error)
	UpdateSecretHash(ctx context.Context, id, hash string) error
	UpdateMasterHash(ctx context.Context, id, hash string) error
	SetRecoveryToken(ctx context.Context, id, token string, expiresAt time.Time) error
	ConsumeRecoveryToken(ctx context.Context, id, token, secretHash string) error
	TouchLastAccess(ctx context.Context, id string) error
}
