package repository

import (
	"context"

	"github.com/akosolapov/wearsync/internal/domain"
)

// CredentialRepository defines methods for credential bundle persistence.
// Implementations must make Save a whole-bundle replacement so a reader
// never observes a torn bundle, and must treat unseen user identifiers as
// absence, not as an error.
type CredentialRepository interface {
	Save(ctx context.Context, bundle *domain.CredentialBundle) error
	Load(ctx context.Context, userID string) (*domain.CredentialBundle, error)
	Delete(ctx context.Context, userID string) error
	Exists(ctx context.Context, userID string) (bool, error)
}
