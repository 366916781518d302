package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/akosolapov/wearsync/internal/domain"
	"github.com/akosolapov/wearsync/internal/provider"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type mfaResult struct {
	client provider.Client
	err    error
}

type codeSubmission struct {
	code  string
	reply chan error
}

// mfaChallenge is one suspended login waiting for a code. The continuation
// is a goroutine owning the provider flow; codes reach it over codeCh and
// the final outcome is published once on resultCh.
type mfaChallenge struct {
	handle    string
	createdAt time.Time
	cancel    context.CancelFunc
	done      <-chan struct{}
	codeCh    chan codeSubmission
	resultCh  chan mfaResult

	// completing is set while a submitted code is being verified so the
	// sweep cannot evict the challenge mid-flight. Guarded by the
	// coordinator mutex.
	completing bool
}

// MFACoordinator tracks in-flight MFA challenges. Begin starts the
// suspended login immediately in the background; Submit resumes it with a
// code; a periodic sweep expires challenges that never complete.
type MFACoordinator struct {
	mu         sync.Mutex
	challenges map[string]*mfaChallenge

	connector     provider.Connector
	ttl           time.Duration
	sweepInterval time.Duration
	logger        *zap.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewMFACoordinator creates a coordinator. ttl defaults to 5 minutes and
// sweepInterval to 60 seconds when non-positive.
func NewMFACoordinator(connector provider.Connector, ttl, sweepInterval time.Duration, logger *zap.Logger) *MFACoordinator {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if sweepInterval <= 0 {
		sweepInterval = 60 * time.Second
	}
	return &MFACoordinator{
		challenges:    make(map[string]*mfaChallenge),
		connector:     connector,
		ttl:           ttl,
		sweepInterval: sweepInterval,
		logger:        logger,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Begin registers a challenge for the given credentials and starts the
// suspended login in the background. It never blocks on provider I/O.
func (c *MFACoordinator) Begin(username, password string) string {
	ctx, cancel := context.WithCancel(context.Background())

	challenge := &mfaChallenge{
		handle:    uuid.NewString(),
		createdAt: time.Now(),
		cancel:    cancel,
		done:      ctx.Done(),
		codeCh:    make(chan codeSubmission),
		resultCh:  make(chan mfaResult, 1),
	}

	c.mu.Lock()
	c.challenges[challenge.handle] = challenge
	c.mu.Unlock()

	go c.runContinuation(ctx, challenge, username, password)

	c.logger.Info("mfa challenge opened", zap.String("mfa_handle", challenge.handle))
	return challenge.handle
}

// runContinuation owns the provider flow for one challenge. It suspends on
// codeCh until Submit forwards a code, replies with the provider verdict,
// and publishes the final outcome exactly once.
func (c *MFACoordinator) runContinuation(ctx context.Context, challenge *mfaChallenge, username, password string) {
	flow, err := c.connector.BeginMFA(ctx, username, password)
	if err != nil {
		challenge.resultCh <- mfaResult{err: err}
		return
	}

	for {
		select {
		case <-ctx.Done():
			challenge.resultCh <- mfaResult{err: ctx.Err()}
			return
		case sub := <-challenge.codeCh:
			client, err := flow.Submit(ctx, sub.code)
			if errors.Is(err, provider.ErrMFACodeRejected) {
				// Wrong code, flow still open. Stay suspended.
				sub.reply <- err
				continue
			}
			if err != nil {
				sub.reply <- err
				challenge.resultCh <- mfaResult{err: err}
				return
			}
			sub.reply <- nil
			challenge.resultCh <- mfaResult{client: client}
			return
		}
	}
}

// Submit resumes a challenge with a code. It waits for the provider's
// verdict on the code first, so a wrong code returns immediately instead of
// hanging on the final result. On any terminal outcome the challenge is
// removed; on a rejected code it stays open for another attempt.
func (c *MFACoordinator) Submit(ctx context.Context, handle, code string) (provider.Client, error) {
	c.mu.Lock()
	challenge, ok := c.challenges[handle]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("unknown mfa handle %q: %w", handle, domain.ErrMFAChallengeNotFound)
	}
	if challenge.completing {
		c.mu.Unlock()
		return nil, fmt.Errorf("challenge %q already completing: %w", handle, domain.ErrMFAChallengeNotFound)
	}
	challenge.completing = true
	c.mu.Unlock()

	sub := codeSubmission{code: code, reply: make(chan error, 1)}

	select {
	case challenge.codeCh <- sub:
	case result := <-challenge.resultCh:
		// The continuation already finished, e.g. the provider refused to
		// open the flow at all.
		c.remove(handle)
		if result.err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCredentials, result.err)
		}
		return result.client, nil
	case <-challenge.done:
		c.remove(handle)
		return nil, fmt.Errorf("challenge %q expired: %w", handle, domain.ErrMFAChallengeNotFound)
	case <-ctx.Done():
		c.clearCompleting(handle)
		return nil, ctx.Err()
	}

	var verdict error
	select {
	case verdict = <-sub.reply:
	case <-ctx.Done():
		c.clearCompleting(handle)
		return nil, ctx.Err()
	}

	if verdict != nil {
		if errors.Is(verdict, provider.ErrMFACodeRejected) {
			c.clearCompleting(handle)
			return nil, fmt.Errorf("%w: %v", domain.ErrMFACodeRejected, verdict)
		}
		// Terminal: the flow is dead, the caller must restart login.
		c.remove(handle)
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCredentials, verdict)
	}

	result := <-challenge.resultCh
	c.remove(handle)
	if result.err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCredentials, result.err)
	}

	c.logger.Info("mfa challenge resolved", zap.String("mfa_handle", handle))
	return result.client, nil
}

// Cancel drops a challenge explicitly.
func (c *MFACoordinator) Cancel(handle string) {
	c.remove(handle)
}

// Len returns the number of open challenges.
func (c *MFACoordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.challenges)
}

func (c *MFACoordinator) clearCompleting(handle string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if challenge, ok := c.challenges[handle]; ok {
		challenge.completing = false
	}
}

func (c *MFACoordinator) remove(handle string) {
	c.mu.Lock()
	challenge, ok := c.challenges[handle]
	if ok {
		delete(c.challenges, handle)
	}
	c.mu.Unlock()

	if ok {
		challenge.cancel()
	}
}

// Start launches the expiry sweep.
func (c *MFACoordinator) Start() {
	go c.run()
	c.logger.Info("mfa challenge sweep started",
		zap.Duration("ttl", c.ttl),
		zap.Duration("interval", c.sweepInterval),
	)
}

// Stop shuts down the sweep, blocking until it has finished. Open
// challenges are cancelled.
func (c *MFACoordinator) Stop() {
	close(c.stopCh)
	<-c.doneCh

	c.mu.Lock()
	challenges := make([]*mfaChallenge, 0, len(c.challenges))
	for handle, challenge := range c.challenges {
		challenges = append(challenges, challenge)
		delete(c.challenges, handle)
	}
	c.mu.Unlock()

	for _, challenge := range challenges {
		challenge.cancel()
	}
}

func (c *MFACoordinator) run() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopCh:
			return
		}
	}
}

// sweep expires challenges past their TTL. Challenges currently completing
// are skipped; the check and the removal happen under one lock so a Submit
// can never race an eviction.
func (c *MFACoordinator) sweep() {
	cutoff := time.Now().Add(-c.ttl)

	c.mu.Lock()
	var expired []*mfaChallenge
	for handle, challenge := range c.challenges {
		if !challenge.completing && challenge.createdAt.Before(cutoff) {
			delete(c.challenges, handle)
			expired = append(expired, challenge)
		}
	}
	c.mu.Unlock()

	for _, challenge := range expired {
		challenge.cancel()
		c.logger.Info("mfa challenge expired", zap.String("mfa_handle", challenge.handle))
	}
}
