package repository

import (
	"github.com/akosolapov/wearsync/internal/utils"
	"github.com/akosolapov/wearsync/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	Credentials CredentialRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres, cipher *utils.BundleCipher) *Repositories {
	return &Repositories{
		Credentials: NewCredentialRepository(db, cipher),
	}
}
