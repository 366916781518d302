package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	signinPath            = "/sso/signin"
	mfaVerifyPath         = "/sso/mfa/verify"
	tokenExchangePath     = "/oauth/exchange"
	profilePath           = "/userprofile-service/socialProfile"
	dailySleepPath        = "/wellness-service/wellness/dailySleep"
	stressDetailPath      = "/wellness-service/wellness/dailyStress"
	bodyBatteryRangePath  = "/wellness-service/wellness/bodyBattery/reports/daily"
	bodyBatteryEventsPath = "/wellness-service/wellness/bodyBattery/events"
	activitiesPath        = "/activitylist-service/activities/search/activities"
	heartRatePath         = "/wellness-service/wellness/dailyHeartRate"
)

// errNoData marks a 404 from a per-date endpoint: the provider has nothing
// recorded for that date. Callers translate it to an absent payload.
var errNoData = errors.New("no data for date")

// HTTPConnector implements Connector against the provider's REST API.
// One shared rate limiter paces every request made through clients built by
// this connector; the provider throttles aggressively on per-date bursts.
type HTTPConnector struct {
	baseURL string
	httpc   *http.Client
	limiter *rate.Limiter
}

var _ Connector = (*HTTPConnector)(nil)

// NewHTTPConnector creates a connector for the given API base URL.
func NewHTTPConnector(baseURL string, timeout time.Duration, requestsPerSecond float64) *HTTPConnector {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	return &HTTPConnector{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

type signinRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signinFailure struct {
	Message           string `json:"message"`
	FlowToken         string `json:"flowToken"`
	RemainingAttempts *int   `json:"remainingAttempts"`
}

// signIn runs the password step of the sign-in flow. Exactly one of grant
// and failure is non-nil on a nil error.
func (c *HTTPConnector) signIn(ctx context.Context, username, password string) (*tokenGrant, *signinFailure, int, error) {
	body, err := json.Marshal(signinRequest{Username: username, Password: password})
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to encode signin request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+signinPath, bytes.NewReader(body))
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to build signin request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, 0, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("signin request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to read signin response: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		var grant tokenGrant
		if err := json.Unmarshal(raw, &grant); err != nil {
			return nil, nil, 0, fmt.Errorf("failed to decode token grant: %w", err)
		}
		return &grant, nil, resp.StatusCode, nil
	}

	var failure signinFailure
	if err := json.Unmarshal(raw, &failure); err != nil {
		failure.Message = strings.TrimSpace(string(raw))
	}
	return nil, &failure, resp.StatusCode, nil
}

// Login attempts a direct password sign-in.
func (c *HTTPConnector) Login(ctx context.Context, username, password string) (Client, error) {
	grant, failure, status, err := c.signIn(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return nil, fmt.Errorf("sign-in failed: %w", &APIError{Status: status, Message: failure.Message})
	}
	return c.buildClient(ctx, grant)
}

// BeginMFA re-runs the sign-in flow and suspends it at the code step.
func (c *HTTPConnector) BeginMFA(ctx context.Context, username, password string) (MFAFlow, error) {
	grant, failure, status, err := c.signIn(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if grant != nil {
		// The provider stopped asking for a second factor between the
		// classification and this call. Treat the sign-in as done.
		client, err := c.buildClient(ctx, grant)
		if err != nil {
			return nil, err
		}
		return &mfaFlow{resolved: client}, nil
	}
	if failure.FlowToken == "" {
		return nil, fmt.Errorf("sign-in failed before mfa step: %w", &APIError{Status: status, Message: failure.Message})
	}
	return &mfaFlow{connector: c, flowToken: failure.FlowToken}, nil
}

// Restore builds a session from persisted tokens.
func (c *HTTPConnector) Restore(ctx context.Context, creds Credentials) (Client, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenExchangePath, bytes.NewReader(creds.Primary))
	if err != nil {
		return nil, fmt.Errorf("failed to build exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("token exchange rejected: %w", ErrUnauthorized)
	default:
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token exchange failed: %w", &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))})
	}

	secondary, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read exchanged token: %w", err)
	}

	// The primary token survives the exchange; only the secondary rotates.
	return c.buildClient(ctx, &tokenGrant{
		OAuth1Token: json.RawMessage(creds.Primary),
		OAuth2Token: json.RawMessage(secondary),
	})
}

// buildClient turns a token grant into a live client, fetching the owner's
// profile as the liveness check.
func (c *HTTPConnector) buildClient(ctx context.Context, grant *tokenGrant) (Client, error) {
	var token oauth2Token
	if err := json.Unmarshal(grant.OAuth2Token, &token); err != nil {
		return nil, fmt.Errorf("failed to decode oauth2 token: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token grant is missing an access token: %w", ErrUnauthorized)
	}

	client := &apiClient{
		connector:   c,
		accessToken: token.AccessToken,
		creds: Credentials{
			Primary:   grant.OAuth1Token,
			Secondary: grant.OAuth2Token,
		},
	}

	var profile Profile
	if err := client.get(ctx, profilePath, nil, &profile); err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	client.profile = profile

	return client, nil
}

// mfaFlow is a suspended sign-in held open by a provider flow token.
type mfaFlow struct {
	connector *HTTPConnector
	flowToken string

	// resolved is set when the provider completed the sign-in without
	// asking for a code after all.
	resolved Client
}

var _ MFAFlow = (*mfaFlow)(nil)

type mfaVerifyRequest struct {
	FlowToken string `json:"flowToken"`
	Code      string `json:"code"`
}

func (f *mfaFlow) Submit(ctx context.Context, code string) (Client, error) {
	if f.resolved != nil {
		return f.resolved, nil
	}

	body, err := json.Marshal(mfaVerifyRequest{FlowToken: f.flowToken, Code: code})
	if err != nil {
		return nil, fmt.Errorf("failed to encode mfa request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.connector.baseURL+mfaVerifyPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build mfa request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if err := f.connector.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := f.connector.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mfa verify request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read mfa response: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		var grant tokenGrant
		if err := json.Unmarshal(raw, &grant); err != nil {
			return nil, fmt.Errorf("failed to decode token grant: %w", err)
		}
		return f.connector.buildClient(ctx, &grant)
	}

	var failure signinFailure
	_ = json.Unmarshal(raw, &failure)

	if resp.StatusCode == http.StatusUnauthorized && (failure.RemainingAttempts == nil || *failure.RemainingAttempts > 0) {
		return nil, fmt.Errorf("%w: %s", ErrMFACodeRejected, failure.Message)
	}
	if failure.RemainingAttempts != nil && *failure.RemainingAttempts <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrMFAAttemptsExhausted, failure.Message)
	}
	return nil, fmt.Errorf("mfa verify failed: %w", &APIError{Status: resp.StatusCode, Message: failure.Message})
}

// apiClient is a live authenticated connection.
type apiClient struct {
	connector   *HTTPConnector
	accessToken string
	creds       Credentials
	profile     Profile
}

var _ Client = (*apiClient)(nil)

func (a *apiClient) UserID() string          { return a.profile.UserName }
func (a *apiClient) DisplayName() string     { return a.profile.DisplayName }
func (a *apiClient) Credentials() Credentials { return a.creds }

// get performs one authenticated GET. A 404 comes back as errNoData so
// per-date callers can report an absent payload instead of an error.
func (a *apiClient) get(ctx context.Context, path string, query url.Values, v any) error {
	u := a.connector.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.accessToken)

	if err := a.connector.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := a.connector.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return errNoData
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("request to %s rejected: %w", path, ErrUnauthorized)
	default:
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request to %s failed: %w", path, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))})
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (a *apiClient) DailySleep(ctx context.Context, date string) (*DailySleep, error) {
	var sleep DailySleep
	err := a.get(ctx, dailySleepPath+"/"+date, nil, &sleep)
	if errors.Is(err, errNoData) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sleep, nil
}

func (a *apiClient) StressDetail(ctx context.Context, date string) (*StressDetail, error) {
	var stress StressDetail
	err := a.get(ctx, stressDetailPath+"/"+date, nil, &stress)
	if errors.Is(err, errNoData) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stress, nil
}

func (a *apiClient) BodyBatteryRange(ctx context.Context, startDate, endDate string) ([]BodyBatteryDay, error) {
	query := url.Values{}
	query.Set("startDate", startDate)
	query.Set("endDate", endDate)

	var days []BodyBatteryDay
	err := a.get(ctx, bodyBatteryRangePath, query, &days)
	if errors.Is(err, errNoData) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return days, nil
}

func (a *apiClient) BodyBatteryEvents(ctx context.Context, date string) ([]BodyBatteryEvent, error) {
	var events []BodyBatteryEvent
	err := a.get(ctx, bodyBatteryEventsPath+"/"+date, nil, &events)
	if errors.Is(err, errNoData) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (a *apiClient) Activities(ctx context.Context, start, limit int) ([]Activity, error) {
	query := url.Values{}
	query.Set("start", strconv.Itoa(start))
	query.Set("limit", strconv.Itoa(limit))

	var activities []Activity
	err := a.get(ctx, activitiesPath, query, &activities)
	if errors.Is(err, errNoData) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return activities, nil
}

func (a *apiClient) HeartRateDaily(ctx context.Context, date string) (*HeartRateDay, error) {
	var hr HeartRateDay
	err := a.get(ctx, heartRatePath+"/"+date, nil, &hr)
	if errors.Is(err, errNoData) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &hr, nil
}
