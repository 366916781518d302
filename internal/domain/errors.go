package domain

import "errors"

// Error taxonomy for the auth/session lifecycle and the data pipeline.
// Handlers map these to HTTP statuses with errors.Is; nothing below the
// handler layer inspects error strings.
var (
	// ErrInvalidCredentials is returned when the provider rejects a
	// username/password pair outright. Not retryable without new input.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMFAChallengeNotFound is returned when a code is submitted for an
	// unknown or expired challenge handle. The caller must restart login.
	ErrMFAChallengeNotFound = errors.New("mfa challenge not found or expired")

	// ErrMFACodeRejected is returned when the provider rejects a code but
	// the challenge is still open for another attempt.
	ErrMFACodeRejected = errors.New("mfa code rejected")

	// ErrNotAuthenticated is returned when a session handle does not map to
	// a live session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNoStoredSession is returned when restore finds no usable credential
	// bundle for the user. Distinct from a generic auth failure so callers
	// can fall back to the login form instead of surfacing an error.
	ErrNoStoredSession = errors.New("no stored session")

	// ErrProviderUnavailable is returned when the upstream provider cannot
	// be reached at all, unrelated to credentials.
	ErrProviderUnavailable = errors.New("provider unavailable")
)
