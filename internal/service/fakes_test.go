package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/akosolapov/wearsync/internal/domain"
	"github.com/akosolapov/wearsync/internal/provider"
	"github.com/akosolapov/wearsync/internal/repository"
)

// fakeClient implements provider.Client over in-memory per-date data.
type fakeClient struct {
	userID      string
	displayName string
	creds       provider.Credentials

	sleep     map[string]*provider.DailySleep
	stress    map[string]*provider.StressDetail
	bbRange   []provider.BodyBatteryDay
	bbEvents  map[string][]provider.BodyBatteryEvent
	activity  []provider.Activity
	heartRate map[string]*provider.HeartRateDay

	// failWith, when set, is returned by every data call.
	failWith   error
	bbRangeErr error

	mu          sync.Mutex
	stressCalls int
	rangeCalls  int
	eventCalls  int
}

var _ provider.Client = (*fakeClient)(nil)

func (f *fakeClient) UserID() string                    { return f.userID }
func (f *fakeClient) DisplayName() string               { return f.displayName }
func (f *fakeClient) Credentials() provider.Credentials { return f.creds }

func (f *fakeClient) DailySleep(ctx context.Context, date string) (*provider.DailySleep, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.sleep[date], nil
}

func (f *fakeClient) StressDetail(ctx context.Context, date string) (*provider.StressDetail, error) {
	f.mu.Lock()
	f.stressCalls++
	f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.stress[date], nil
}

func (f *fakeClient) BodyBatteryRange(ctx context.Context, startDate, endDate string) ([]provider.BodyBatteryDay, error) {
	f.mu.Lock()
	f.rangeCalls++
	f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	if f.bbRangeErr != nil {
		return nil, f.bbRangeErr
	}
	return f.bbRange, nil
}

func (f *fakeClient) BodyBatteryEvents(ctx context.Context, date string) ([]provider.BodyBatteryEvent, error) {
	f.mu.Lock()
	f.eventCalls++
	f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.bbEvents[date], nil
}

func (f *fakeClient) Activities(ctx context.Context, start, limit int) ([]provider.Activity, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.activity, nil
}

func (f *fakeClient) HeartRateDaily(ctx context.Context, date string) (*provider.HeartRateDay, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.heartRate[date], nil
}

// fakeFlow implements provider.MFAFlow with a single expected code and a
// bounded attempt budget.
type fakeFlow struct {
	expectedCode string
	attemptsLeft int
	client       provider.Client
}

func (f *fakeFlow) Submit(ctx context.Context, code string) (provider.Client, error) {
	if code == f.expectedCode {
		return f.client, nil
	}
	f.attemptsLeft--
	if f.attemptsLeft <= 0 {
		return nil, provider.ErrMFAAttemptsExhausted
	}
	return nil, provider.ErrMFACodeRejected
}

// fakeConnector implements provider.Connector via injectable functions.
type fakeConnector struct {
	loginFn   func(ctx context.Context, username, password string) (provider.Client, error)
	beginFn   func(ctx context.Context, username, password string) (provider.MFAFlow, error)
	restoreFn func(ctx context.Context, creds provider.Credentials) (provider.Client, error)
}

var _ provider.Connector = (*fakeConnector)(nil)

func (f *fakeConnector) Login(ctx context.Context, username, password string) (provider.Client, error) {
	return f.loginFn(ctx, username, password)
}

func (f *fakeConnector) BeginMFA(ctx context.Context, username, password string) (provider.MFAFlow, error) {
	return f.beginFn(ctx, username, password)
}

func (f *fakeConnector) Restore(ctx context.Context, creds provider.Credentials) (provider.Client, error) {
	return f.restoreFn(ctx, creds)
}

// memCredRepo is an in-memory repository.CredentialRepository.
type memCredRepo struct {
	mu      sync.Mutex
	bundles map[string]*domain.CredentialBundle
}

var _ repository.CredentialRepository = (*memCredRepo)(nil)

func newMemCredRepo() *memCredRepo {
	return &memCredRepo{bundles: make(map[string]*domain.CredentialBundle)}
}

func (m *memCredRepo) Save(ctx context.Context, bundle *domain.CredentialBundle) error {
	if !bundle.Complete() {
		return fmt.Errorf("partial bundle for %s", bundle.UserID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *bundle
	m.bundles[bundle.UserID] = &copied
	return nil
}

func (m *memCredRepo) Load(ctx context.Context, userID string) (*domain.CredentialBundle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bundle, ok := m.bundles[userID]
	if !ok {
		return nil, fmt.Errorf("no bundle for %s: %w", userID, repository.ErrNotFound)
	}
	copied := *bundle
	return &copied, nil
}

func (m *memCredRepo) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bundles, userID)
	return nil
}

func (m *memCredRepo) Exists(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.bundles[userID]
	return ok, nil
}

func intPtr(v int) *int { return &v }
