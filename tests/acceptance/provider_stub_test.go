package acceptance

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

const (
	stubAccessToken = "stub-access-token"
	stubPrimary     = `{"oauth_token":"primary","oauth_token_secret":"shh"}`
	stubSecondary   = `{"access_token":"stub-access-token","expires_in":3600}`
	stubFlowToken   = "stub-flow-token"

	stubUser     = "alice@example.com"
	stubPassword = "correct-password"
	stubMFACode  = "123456"
)

// providerStub fakes the upstream wearable API for acceptance tests.
type providerStub struct {
	server *httptest.Server

	mu sync.Mutex
	// mfaEnabled makes sign-in demand a verification code.
	mfaEnabled bool
	// exchangeDead makes the token exchange reject stored tokens.
	exchangeDead bool
}

func newProviderStub() *providerStub {
	p := &providerStub{}
	p.server = httptest.NewServer(p.routes())
	return p
}

func (p *providerStub) URL() string { return p.server.URL }
func (p *providerStub) Close()      { p.server.Close() }

func (p *providerStub) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mfaEnabled = false
	p.exchangeDead = false
}

func (p *providerStub) EnableMFA() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mfaEnabled = true
}

func (p *providerStub) KillStoredTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exchangeDead = true
}

func (p *providerStub) grantJSON() string {
	return `{"oauth1Token":` + stubPrimary + `,"oauth2Token":` + stubSecondary + `}`
}

func (p *providerStub) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/sso/signin", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		if req.Username != stubUser || req.Password != stubPassword {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"message":"invalid username or password"}`)
			return
		}

		p.mu.Lock()
		mfa := p.mfaEnabled
		p.mu.Unlock()
		if mfa {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"message":"additional verification code required","flowToken":"`+stubFlowToken+`"}`)
			return
		}
		io.WriteString(w, p.grantJSON())
	})

	mux.HandleFunc("/sso/mfa/verify", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FlowToken string `json:"flowToken"`
			Code      string `json:"code"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		if req.FlowToken != stubFlowToken || req.Code != stubMFACode {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"message":"incorrect code","remainingAttempts":2}`)
			return
		}
		io.WriteString(w, p.grantJSON())
	})

	mux.HandleFunc("/oauth/exchange", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		dead := p.exchangeDead
		p.mu.Unlock()

		body, _ := io.ReadAll(r.Body)
		if dead || string(body) != stubPrimary {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"message":"token expired"}`)
			return
		}
		io.WriteString(w, stubSecondary)
	})

	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+stubAccessToken {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("/userprofile-service/socialProfile", authed(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"userName":"`+stubUser+`","displayName":"Alice"}`)
	}))

	// Per-date data endpoints echo the requested date so any fetch window
	// comes back populated.
	mux.HandleFunc("/wellness-service/wellness/dailySleep/", authed(func(w http.ResponseWriter, r *http.Request) {
		date := lastSegment(r.URL.Path)
		io.WriteString(w, `{
			"calendarDate": "`+date+`",
			"sleepTimeSeconds": 25200,
			"deepSleepSeconds": 5400,
			"lightSleepSeconds": 12600,
			"remSleepSeconds": 5400,
			"awakeSleepSeconds": 1800,
			"sleepScore": 80,
			"avgSleepStress": 20,
			"sleepBodyBattery": [
				{"timestamp": 1, "level": 35},
				{"timestamp": 2, "level": 75}
			]
		}`)
	}))

	mux.HandleFunc("/wellness-service/wellness/dailyStress/", authed(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	mux.HandleFunc("/wellness-service/wellness/bodyBattery/reports/daily", authed(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	}))

	mux.HandleFunc("/wellness-service/wellness/bodyBattery/events/", authed(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	}))

	mux.HandleFunc("/activitylist-service/activities/search/activities", authed(func(w http.ResponseWriter, r *http.Request) {
		today := time.Now().Format("2006-01-02")
		io.WriteString(w, `[
			{"activityId": 501, "activityName": "Morning Run",
			 "activityType": {"typeKey": "running"},
			 "startTimeLocal": "`+today+` 07:15:00",
			 "duration": 1800, "distance": 5000, "calories": 320}
		]`)
	}))

	mux.HandleFunc("/wellness-service/wellness/dailyHeartRate/", authed(func(w http.ResponseWriter, r *http.Request) {
		date := lastSegment(r.URL.Path)
		io.WriteString(w, `{
			"calendarDate": "`+date+`",
			"restingHeartRate": 52,
			"minHeartRate": 44,
			"maxHeartRate": 150,
			"averageHeartRate": 68,
			"lastSevenDaysAvgRestingHeartRate": 53
		}`)
	}))

	return mux
}

func lastSegment(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}
