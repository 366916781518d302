package service

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/akosolapov/wearsync/internal/provider"
	"go.uber.org/zap"
)

// Session is a live authenticated connection to the provider, addressed by
// an opaque handle. Sessions are process-local and never persisted.
type Session struct {
	Handle      string
	UserID      string
	DisplayName string
	Client      provider.Client
	CreatedAt   time.Time
	LastSeenAt  time.Time
}

// SessionRegistry is the in-memory map from session handle to live session.
// Handles are 256-bit random values and act as bearer credentials for every
// authenticated operation, so lookups of unknown handles are a normal
// outcome, not an error.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byUser   map[string]string

	idleTTL       time.Duration
	sweepInterval time.Duration
	logger        *zap.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSessionRegistry creates a session registry. An idleTTL of 0 disables
// eviction entirely: sessions then live until logout or process restart.
func NewSessionRegistry(idleTTL, sweepInterval time.Duration, logger *zap.Logger) *SessionRegistry {
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}
	return &SessionRegistry{
		sessions:      make(map[string]*Session),
		byUser:        make(map[string]string),
		idleTTL:       idleTTL,
		sweepInterval: sweepInterval,
		logger:        logger,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Register creates a session for an authenticated client and returns it.
// If the user already has a live session, the old one is evicted first so a
// repeated login can never leak a duplicate.
func (r *SessionRegistry) Register(userID, displayName string, client provider.Client) *Session {
	now := time.Now()
	session := &Session{
		Handle:      newSessionHandle(),
		UserID:      userID,
		DisplayName: displayName,
		Client:      client,
		CreatedAt:   now,
		LastSeenAt:  now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byUser[userID]; ok {
		delete(r.sessions, old)
	}
	r.sessions[session.Handle] = session
	r.byUser[userID] = session.Handle

	return session
}

// Get looks up a session by handle and refreshes its idle timestamp. The
// second return is false for unknown handles.
func (r *SessionRegistry) Get(handle string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[handle]
	if !ok {
		return nil, false
	}
	session.LastSeenAt = time.Now()
	return session, true
}

// Remove evicts a session. Removing an unknown handle is a no-op.
func (r *SessionRegistry) Remove(handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[handle]
	if !ok {
		return
	}
	delete(r.sessions, handle)
	if r.byUser[session.UserID] == handle {
		delete(r.byUser, session.UserID)
	}
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Start launches the idle sweep when an idle TTL is configured.
func (r *SessionRegistry) Start() {
	if r.idleTTL <= 0 {
		close(r.doneCh)
		return
	}
	go r.run()
	r.logger.Info("session idle sweep started",
		zap.Duration("idle_ttl", r.idleTTL),
		zap.Duration("interval", r.sweepInterval),
	)
}

// Stop shuts down the sweep, blocking until it has finished.
func (r *SessionRegistry) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *SessionRegistry) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.stopCh:
			return
		}
	}
}

func (r *SessionRegistry) sweep() {
	cutoff := time.Now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	for handle, session := range r.sessions {
		if session.LastSeenAt.Before(cutoff) {
			delete(r.sessions, handle)
			if r.byUser[session.UserID] == handle {
				delete(r.byUser, session.UserID)
			}
			r.logger.Info("evicted idle session", zap.String("user_id", session.UserID))
		}
	}
}

// newSessionHandle generates an unguessable session handle.
func newSessionHandle() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}
