// Package credentials provides the PostgreSQL-backed credential store.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/dbx"
	"github.com/dmitrijs2005/passvault/internal/server/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// defaultListLimit bounds List queries when the caller supplies no limit.
const defaultListLimit = 50

// PostgresRepository implements credential storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a credential. The per-account unique constraint on
// title_normalized maps to common.ErrDuplicateTitle.
func (r *PostgresRepository) Create(ctx context.Context, c *models.Credential) (*models.Credential, error) {
	query := `
		INSERT INTO credentials
			(account_id, title, title_normalized, url, login_name, contact_email, notes, category, favorite, secret_ciphertext)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, modified_at
	`
	err := r.db.QueryRowContext(ctx, query,
		c.AccountID, c.Title, c.TitleNormalized, c.URL, c.LoginName, c.ContactEmail,
		c.Notes, c.Category, c.Favorite, c.SecretCiphertext).
		Scan(&c.ID, &c.CreatedAt, &c.ModifiedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, common.ErrDuplicateTitle
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

const getByIDQuery = `
	SELECT id, account_id, title, title_normalized, url, login_name, contact_email,
		notes, category, favorite, secret_ciphertext, created_at, modified_at
	FROM credentials
	WHERE id = $1 AND account_id = $2`

func (r *PostgresRepository) getByID(ctx context.Context, query, id, accountID string) (*models.Credential, error) {
	c := &models.Credential{}
	err := r.db.QueryRowContext(ctx, query, id, accountID).Scan(
		&c.ID, &c.AccountID, &c.Title, &c.TitleNormalized, &c.URL, &c.LoginName,
		&c.ContactEmail, &c.Notes, &c.Category, &c.Favorite, &c.SecretCiphertext,
		&c.CreatedAt, &c.ModifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// GetByID returns one credential scoped to its owning account, including
// the sealed secret.
func (r *PostgresRepository) GetByID(ctx context.Context, id, accountID string) (*models.Credential, error) {
	return r.getByID(ctx, getByIDQuery, id, accountID)
}

// GetByIDForUpdate is GetByID with the row locked until the surrounding
// transaction ends. Read-modify-write callers use it so two interleaved
// partial updates cannot overwrite each other's fields with stale values.
func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id, accountID string) (*models.Credential, error) {
	return r.getByID(ctx, getByIDQuery+` FOR UPDATE`, id, accountID)
}

// List returns the account's credentials matching the filter, newest
// first. The sealed secret is never selected here.
func (r *PostgresRepository) List(ctx context.Context, accountID string, filter models.ListFilter) ([]*models.Credential, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, account_id, title, url, login_name, contact_email, notes, category, favorite, created_at, modified_at
		FROM credentials
		WHERE account_id = $1`)
	args := []any{accountID}

	if filter.Category != "" {
		args = append(args, filter.Category)
		sb.WriteString(" AND category = $" + strconv.Itoa(len(args)))
	}
	if filter.FavoritesOnly {
		sb.WriteString(" AND favorite")
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		p := "$" + strconv.Itoa(len(args))
		sb.WriteString(" AND (title ILIKE " + p + " OR login_name ILIKE " + p +
			" OR url ILIKE " + p + " OR notes ILIKE " + p + ")")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)
	sb.WriteString(" ORDER BY modified_at DESC LIMIT $" + strconv.Itoa(len(args)))
	args = append(args, filter.Offset)
	sb.WriteString(" OFFSET $" + strconv.Itoa(len(args)))

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select credentials: %w", err)
	}
	defer rows.Close()

	var result []*models.Credential
	for rows.Next() {
		var c models.Credential
		if err := rows.Scan(&c.ID, &c.AccountID, &c.Title, &c.URL, &c.LoginName,
			&c.ContactEmail, &c.Notes, &c.Category, &c.Favorite, &c.CreatedAt, &c.ModifiedAt); err != nil {
			return nil, err
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update rewrites all mutable fields of the credential and bumps
// modified_at, scoped by (id, account_id).
func (r *PostgresRepository) Update(ctx context.Context, c *models.Credential) error {
	query := `
		UPDATE credentials
		SET title = $3, title_normalized = $4, url = $5, login_name = $6, contact_email = $7,
			notes = $8, category = $9, favorite = $10, secret_ciphertext = $11, modified_at = now()
		WHERE id = $1 AND account_id = $2
	`
	res, err := r.db.ExecContext(ctx, query,
		c.ID, c.AccountID, c.Title, c.TitleNormalized, c.URL, c.LoginName,
		c.ContactEmail, c.Notes, c.Category, c.Favorite, c.SecretCiphertext)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return common.ErrDuplicateTitle
		}
		return fmt.Errorf("db error: %w", err)
	}
	return oneRowAffected(res)
}

// Delete removes a credential scoped to its owning account.
func (r *PostgresRepository) Delete(ctx context.Context, id, accountID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE id = $1 AND account_id = $2`, id, accountID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return oneRowAffected(res)
}

// ToggleFavorite flips the favorite flag in place and returns the new
// value. Flipping counts as a mutation, so modified_at is bumped too.
func (r *PostgresRepository) ToggleFavorite(ctx context.Context, id, accountID string) (bool, error) {
	query := `
		UPDATE credentials
		SET favorite = NOT favorite, modified_at = now()
		WHERE id = $1 AND account_id = $2
		RETURNING favorite
	`
	var favorite bool
	if err := r.db.QueryRowContext(ctx, query, id, accountID).Scan(&favorite); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, common.ErrNotFound
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return favorite, nil
}

// AddRevision archives a prior ciphertext for the credential.
func (r *PostgresRepository) AddRevision(ctx context.Context, rev *models.CredentialRevision) error {
	query := `
		INSERT INTO credential_history (credential_id, ciphertext, replaced_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, rev.CredentialID, rev.Ciphertext, rev.ReplacedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func oneRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
