// Package accounts provides the PostgreSQL-backed account store.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/dbx"
	"github.com/dmitrijs2005/passvault/internal/server/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresRepository implements account storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, email_normalized, display_name, secret_hash, master_hash, active,
		last_access_at, created_at, coalesce(recovery_token, ''), coalesce(recovery_token_expires_at, 'epoch')`

func scanAccount(row *sql.Row) (*models.Account, error) {
	a := &models.Account{}
	err := row.Scan(&a.ID, &a.EmailNormalized, &a.DisplayName, &a.SecretHash, &a.MasterHash,
		&a.Active, &a.LastAccessAt, &a.CreatedAt, &a.RecoveryToken, &a.RecoveryTokenExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

// Create inserts a new account. The unique constraint on email_normalized
// maps to common.ErrDuplicateEmail.
func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query := `
		INSERT INTO accounts (email_normalized, display_name, secret_hash, master_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, active, last_access_at, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		account.EmailNormalized, account.DisplayName, account.SecretHash, account.MasterHash).
		Scan(&account.ID, &account.Active, &account.LastAccessAt, &account.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return account, nil
}

// GetByNormalizedEmail returns the account with the given lookup email.
func (r *PostgresRepository) GetByNormalizedEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email_normalized = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, email))
}

// GetByID returns the account with the given id.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

// GetByRecoveryToken returns the account holding the given recovery token.
// Expiry and active checks belong to the caller.
func (r *PostgresRepository) GetByRecoveryToken(ctx context.Context, token string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE recovery_token = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, token))
}

// UpdateSecretHash replaces the account secret hash.
func (r *PostgresRepository) UpdateSecretHash(ctx context.Context, id, hash string) error {
	return r.execOne(ctx, `UPDATE accounts SET secret_hash = $2 WHERE id = $1`, id, hash)
}

// UpdateMasterHash replaces the master secret hash.
func (r *PostgresRepository) UpdateMasterHash(ctx context.Context, id, hash string) error {
	return r.execOne(ctx, `UPDATE accounts SET master_hash = $2 WHERE id = $1`, id, hash)
}

// SetRecoveryToken stores a recovery token and its expiry on the account.
func (r *PostgresRepository) SetRecoveryToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	return r.execOne(ctx,
		`UPDATE accounts SET recovery_token = $2, recovery_token_expires_at = $3 WHERE id = $1`,
		id, token, expiresAt)
}

// ConsumeRecoveryToken replaces the secret hash and clears the recovery
// token in one statement, conditional on the token still matching. A
// token already consumed by a concurrent reset affects zero rows and
// comes back as common.ErrNotFound, which makes the token strictly
// single-use.
func (r *PostgresRepository) ConsumeRecoveryToken(ctx context.Context, id, token, secretHash string) error {
	return r.execOne(ctx,
		`UPDATE accounts SET secret_hash = $3, recovery_token = NULL, recovery_token_expires_at = NULL
			WHERE id = $1 AND recovery_token = $2`,
		id, token, secretHash)
}

// TouchLastAccess bumps last_access_at to now.
func (r *PostgresRepository) TouchLastAccess(ctx context.Context, id string) error {
	return r.execOne(ctx, `UPDATE accounts SET last_access_at = now() WHERE id = $1`, id)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
