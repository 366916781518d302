package service

import (
	"context"

	"github.com/akosolapov/wearsync/internal/domain"
)

// AuthResult is the outcome of a successful auth entry point: either an
// established session or a pending MFA challenge.
type AuthResult struct {
	Authenticated bool
	SessionHandle string
	UserID        string
	DisplayName   string

	RequiresMFA bool
	MFAHandle   string
}

// AuthService defines the auth/session lifecycle operations
type AuthService interface {
	Login(ctx context.Context, username, password string) (*AuthResult, error)
	SubmitMFACode(ctx context.Context, mfaHandle, code string) (*AuthResult, error)
	Restore(ctx context.Context, userID string) (*AuthResult, error)
	Logout(ctx context.Context, sessionHandle string, clearStoredTokens bool) error
	Status(sessionHandle string) bool
}

// HealthService defines the health data acquisition operation
type HealthService interface {
	Fetch(ctx context.Context, sessionHandle string, days int) (*domain.HealthSnapshot, error)
}
