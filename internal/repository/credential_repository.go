package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akosolapov/wearsync/internal/domain"
	"github.com/akosolapov/wearsync/internal/utils"
	"github.com/akosolapov/wearsync/pkg/database"
)

// credentialRepository implements CredentialRepository on PostgreSQL.
// Token blobs are sealed with the bundle cipher before they touch the
// database and opened on the way out.
type credentialRepository struct {
	db     *database.Postgres
	cipher *utils.BundleCipher
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *database.Postgres, cipher *utils.BundleCipher) CredentialRepository {
	return &credentialRepository{db: db, cipher: cipher}
}

// Save stores a credential bundle, replacing any existing bundle for the
// user in a single upsert.
func (r *credentialRepository) Save(ctx context.Context, bundle *domain.CredentialBundle) error {
	if !bundle.Complete() {
		return fmt.Errorf("refusing to save partial credential bundle for %s", bundle.UserID)
	}

	primary, err := r.cipher.Seal(bundle.PrimaryToken)
	if err != nil {
		return fmt.Errorf("failed to seal primary token: %w", err)
	}
	secondary, err := r.cipher.Seal(bundle.SecondaryToken)
	if err != nil {
		return fmt.Errorf("failed to seal secondary token: %w", err)
	}

	query := `
		INSERT INTO credential_bundles (user_id, primary_token, secondary_token, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET primary_token = EXCLUDED.primary_token,
		    secondary_token = EXCLUDED.secondary_token,
		    updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.DB.ExecContext(ctx, query, bundle.UserID, primary, secondary, time.Now()); err != nil {
		return fmt.Errorf("failed to save credential bundle: %w", err)
	}

	return nil
}

// Load retrieves the credential bundle for a user.
func (r *credentialRepository) Load(ctx context.Context, userID string) (*domain.CredentialBundle, error) {
	query := `
		SELECT user_id, primary_token, secondary_token, updated_at
		FROM credential_bundles
		WHERE user_id = $1
	`

	bundle := &domain.CredentialBundle{}
	var primary, secondary []byte

	err := r.db.DB.QueryRowContext(ctx, query, userID).Scan(
		&bundle.UserID,
		&primary,
		&secondary,
		&bundle.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no bundle for user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load credential bundle: %w", err)
	}

	if bundle.PrimaryToken, err = r.cipher.Open(primary); err != nil {
		return nil, fmt.Errorf("failed to open primary token: %w", err)
	}
	if bundle.SecondaryToken, err = r.cipher.Open(secondary); err != nil {
		return nil, fmt.Errorf("failed to open secondary token: %w", err)
	}

	return bundle, nil
}

// Delete removes the credential bundle for a user. Deleting an absent
// bundle is not an error.
func (r *credentialRepository) Delete(ctx context.Context, userID string) error {
	query := `DELETE FROM credential_bundles WHERE user_id = $1`

	if _, err := r.db.DB.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete credential bundle: %w", err)
	}

	return nil
}

// Exists reports whether a credential bundle is stored for a user.
func (r *credentialRepository) Exists(ctx context.Context, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM credential_bundles WHERE user_id = $1)`

	var exists bool
	if err := r.db.DB.QueryRowContext(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check credential bundle existence: %w", err)
	}

	return exists, nil
}
