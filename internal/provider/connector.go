// Package provider implements the typed client for the upstream wearable
// API: sign-in (plain and MFA), token-based session restore, and the five
// per-metric data endpoints used by the aggregator.
package provider

import "context"

// Connector establishes authenticated sessions against the provider.
type Connector interface {
	// Login attempts a direct password sign-in. On an account that needs a
	// second factor the returned error classifies as MFA-required via
	// IsMFARequired; callers then switch to BeginMFA.
	Login(ctx context.Context, username, password string) (Client, error)

	// BeginMFA re-runs the sign-in flow and suspends it at the code step,
	// returning the flow state to submit codes against. It performs network
	// I/O and is intended to run in a background goroutine.
	BeginMFA(ctx context.Context, username, password string) (MFAFlow, error)

	// Restore builds a session from persisted tokens, exchanging the
	// primary token for a fresh secondary grant and verifying liveness with
	// one profile call. Invalid or revoked tokens yield ErrUnauthorized.
	Restore(ctx context.Context, creds Credentials) (Client, error)
}

// MFAFlow is a suspended sign-in waiting for a code. At most one Submit
// runs at a time per flow.
type MFAFlow interface {
	// Submit verifies one code with the provider. It returns
	// ErrMFACodeRejected while the provider allows further attempts,
	// ErrMFAAttemptsExhausted (or another terminal error) when the flow is
	// dead, and the authenticated Client on success.
	Submit(ctx context.Context, code string) (Client, error)
}

// Client is a live authenticated connection to the provider.
type Client interface {
	UserID() string
	DisplayName() string

	// Credentials returns the current token blobs for persistence. The
	// provider may rotate tokens; callers re-persist after every call that
	// (re)establishes a session.
	Credentials() Credentials

	DailySleep(ctx context.Context, date string) (*DailySleep, error)
	StressDetail(ctx context.Context, date string) (*StressDetail, error)
	BodyBatteryRange(ctx context.Context, startDate, endDate string) ([]BodyBatteryDay, error)
	BodyBatteryEvents(ctx context.Context, date string) ([]BodyBatteryEvent, error)
	Activities(ctx context.Context, start, limit int) ([]Activity, error)
	HeartRateDaily(ctx context.Context, date string) (*HeartRateDay, error)
}
