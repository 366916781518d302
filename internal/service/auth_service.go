package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/akosolapov/wearsync/internal/domain"
	"github.com/akosolapov/wearsync/internal/provider"
	"github.com/akosolapov/wearsync/internal/repository"
	"github.com/akosolapov/wearsync/internal/utils"
	"go.uber.org/zap"
)

// authService implements AuthService. It drives the three auth entry points
// against the provider, classifies the MFA branch exactly once at the
// provider boundary, and keeps the session registry and credential store in
// step with every (re)established session.
type authService struct {
	connector   provider.Connector
	registry    *SessionRegistry
	coordinator *MFACoordinator
	credRepo    repository.CredentialRepository
	logger      *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	connector provider.Connector,
	registry *SessionRegistry,
	coordinator *MFACoordinator,
	credRepo repository.CredentialRepository,
	logger *zap.Logger,
) AuthService {
	return &authService{
		connector:   connector,
		registry:    registry,
		coordinator: coordinator,
		credRepo:    credRepo,
		logger:      logger,
	}
}

// Login attempts a direct sign-in. When the provider asks for a second
// factor the suspended login is handed to the MFA coordinator and the
// challenge handle returned; the call never blocks waiting for a code.
func (s *authService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = utils.SanitizeUserID(username)

	client, err := s.connector.Login(ctx, username, password)
	if err != nil {
		if provider.IsMFARequired(err) {
			handle := s.coordinator.Begin(username, password)
			return &AuthResult{RequiresMFA: true, MFAHandle: handle}, nil
		}

		var apiErr *provider.APIError
		if errors.As(err, &apiErr) && (apiErr.Status == 401 || apiErr.Status == 403) {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	return s.establishSession(ctx, client), nil
}

// SubmitMFACode resumes a pending challenge. On success the session is
// established exactly as in a direct login.
func (s *authService) SubmitMFACode(ctx context.Context, mfaHandle, code string) (*AuthResult, error) {
	client, err := s.coordinator.Submit(ctx, mfaHandle, code)
	if err != nil {
		return nil, err
	}

	return s.establishSession(ctx, client), nil
}

// Restore re-establishes a session from the stored credential bundle. A
// bundle the provider no longer accepts is deleted on the spot so the next
// app start goes straight to the login form instead of failing again.
func (s *authService) Restore(ctx context.Context, userID string) (*AuthResult, error) {
	userID = utils.SanitizeUserID(userID)

	bundle, err := s.credRepo.Load(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNoStoredSession, userID)
		}
		return nil, fmt.Errorf("failed to load credential bundle: %w", err)
	}

	client, err := s.connector.Restore(ctx, provider.Credentials{
		Primary:   bundle.PrimaryToken,
		Secondary: bundle.SecondaryToken,
	})
	if err != nil {
		if errors.Is(err, provider.ErrUnauthorized) {
			// Fail closed: the tokens are dead, drop them now.
			if delErr := s.credRepo.Delete(ctx, userID); delErr != nil {
				s.logger.Warn("failed to delete stale credential bundle",
					zap.String("user_id", userID), zap.Error(delErr))
			}
			return nil, fmt.Errorf("%w: stored tokens rejected", domain.ErrNoStoredSession)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	return s.establishSession(ctx, client), nil
}

// Logout removes the session and optionally the stored tokens. It is
// idempotent; logging out an unknown handle succeeds.
func (s *authService) Logout(ctx context.Context, sessionHandle string, clearStoredTokens bool) error {
	session, ok := s.registry.Get(sessionHandle)
	if ok {
		s.registry.Remove(sessionHandle)
	}

	if clearStoredTokens && ok {
		if err := s.credRepo.Delete(ctx, session.UserID); err != nil {
			return fmt.Errorf("failed to clear stored tokens: %w", err)
		}
	}

	return nil
}

// Status reports whether a handle maps to a live session. An unknown handle
// is "not authenticated", never an error.
func (s *authService) Status(sessionHandle string) bool {
	_, ok := s.registry.Get(sessionHandle)
	return ok
}

// establishSession persists the (possibly rotated) tokens and registers the
// session. A store failure is logged but does not undo an authentication
// the provider already accepted.
func (s *authService) establishSession(ctx context.Context, client provider.Client) *AuthResult {
	userID := utils.SanitizeUserID(client.UserID())

	creds := client.Credentials()
	bundle := &domain.CredentialBundle{
		UserID:         userID,
		PrimaryToken:   creds.Primary,
		SecondaryToken: creds.Secondary,
	}
	if err := s.credRepo.Save(ctx, bundle); err != nil {
		s.logger.Warn("failed to persist credential bundle",
			zap.String("user_id", userID), zap.Error(err))
	}

	session := s.registry.Register(userID, client.DisplayName(), client)
	s.logger.Info("session established", zap.String("user_id", userID))

	return &AuthResult{
		Authenticated: true,
		SessionHandle: session.Handle,
		UserID:        session.UserID,
		DisplayName:   session.DisplayName,
	}
}
