package acceptance

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/akosolapov/wearsync/internal/dto"
	"github.com/akosolapov/wearsync/internal/handler"
)

func (s *Suite) postJSON(path string, body any) *http.Response {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)

	resp, err := http.Post(s.BaseURL+path, "application/json", bytes.NewReader(raw))
	s.Require().NoError(err)
	return resp
}

func (s *Suite) login() dto.AuthResponse {
	resp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Username: stubUser,
		Password: stubPassword,
	})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var authResp dto.AuthResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&authResp))
	return authResp
}

func (s *Suite) TestLogin_Success() {
	authResp := s.login()

	s.True(authResp.Authenticated)
	s.NotEmpty(authResp.SessionHandle)
	s.Equal(stubUser, authResp.UserID)
	s.Equal("Alice", authResp.DisplayName)
	s.False(authResp.RequiresMFA)
}

func (s *Suite) TestLogin_InvalidCredentials() {
	resp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Username: stubUser,
		Password: "wrong-password",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	var errResp dto.ErrorResponse
	json.NewDecoder(resp.Body).Decode(&errResp)
	s.Equal("Invalid credentials", errResp.Error)
}

func (s *Suite) TestLogin_InvalidEmail() {
	resp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Username: "not-an-email",
		Password: stubPassword,
	})
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestLogin_MFAFlow() {
	s.Provider.EnableMFA()

	resp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Username: stubUser,
		Password: stubPassword,
	})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode, "an MFA prompt is not a failure")

	var authResp dto.AuthResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&authResp))
	s.False(authResp.Authenticated)
	s.True(authResp.RequiresMFA)
	s.Require().NotEmpty(authResp.MFAHandle)

	// Wrong code keeps the challenge open.
	wrongResp := s.postJSON("/api/v1/auth/mfa", dto.MFARequest{
		MFAHandle: authResp.MFAHandle,
		Code:      "000000",
	})
	wrongResp.Body.Close()
	s.Equal(http.StatusUnauthorized, wrongResp.StatusCode)

	// Right code on the same handle completes the login.
	okResp := s.postJSON("/api/v1/auth/mfa", dto.MFARequest{
		MFAHandle: authResp.MFAHandle,
		Code:      stubMFACode,
	})
	defer okResp.Body.Close()
	s.Require().Equal(http.StatusOK, okResp.StatusCode)

	var finalResp dto.AuthResponse
	s.Require().NoError(json.NewDecoder(okResp.Body).Decode(&finalResp))
	s.True(finalResp.Authenticated)
	s.NotEmpty(finalResp.SessionHandle)
	s.Equal(stubUser, finalResp.UserID)
}

func (s *Suite) TestMFA_UnknownHandle() {
	resp := s.postJSON("/api/v1/auth/mfa", dto.MFARequest{
		MFAHandle: "never-issued",
		Code:      stubMFACode,
	})
	defer resp.Body.Close()

	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *Suite) TestRestore_Success() {
	// A login persists the credential bundle that restore consumes.
	s.login()

	resp := s.postJSON("/api/v1/auth/restore", dto.RestoreRequest{UserID: stubUser})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var authResp dto.AuthResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&authResp))
	s.True(authResp.Authenticated)
	s.NotEmpty(authResp.SessionHandle)
	s.Equal(stubUser, authResp.UserID)
}

func (s *Suite) TestRestore_NoStoredBundle() {
	resp := s.postJSON("/api/v1/auth/restore", dto.RestoreRequest{UserID: "stranger@example.com"})
	defer resp.Body.Close()

	s.Equal(http.StatusNotFound, resp.StatusCode)

	var errResp dto.ErrorResponse
	json.NewDecoder(resp.Body).Decode(&errResp)
	s.Equal("No stored session", errResp.Error)
}

func (s *Suite) TestRestore_DeadTokensAreDropped() {
	s.login()
	s.Provider.KillStoredTokens()

	resp := s.postJSON("/api/v1/auth/restore", dto.RestoreRequest{UserID: stubUser})
	resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)

	// The stale bundle is gone; the provider coming back does not help.
	s.Provider.Reset()
	retry := s.postJSON("/api/v1/auth/restore", dto.RestoreRequest{UserID: stubUser})
	defer retry.Body.Close()
	s.Equal(http.StatusNotFound, retry.StatusCode)
}

func (s *Suite) TestStatus() {
	authResp := s.login()

	req, _ := http.NewRequest("GET", s.BaseURL+"/api/v1/auth/status", nil)
	req.Header.Set(handler.SessionHeader, authResp.SessionHandle)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var statusResp dto.StatusResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&statusResp))
	s.True(statusResp.Authenticated)
}

func (s *Suite) TestStatus_NoHandle() {
	resp, err := http.Get(s.BaseURL + "/api/v1/auth/status")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var statusResp dto.StatusResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&statusResp))
	s.False(statusResp.Authenticated)
}

func (s *Suite) TestLogout() {
	authResp := s.login()

	req, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/logout", nil)
	req.Header.Set(handler.SessionHeader, authResp.SessionHandle)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	statusReq, _ := http.NewRequest("GET", s.BaseURL+"/api/v1/auth/status", nil)
	statusReq.Header.Set(handler.SessionHeader, authResp.SessionHandle)
	statusResp, err := http.DefaultClient.Do(statusReq)
	s.Require().NoError(err)
	defer statusResp.Body.Close()

	var status dto.StatusResponse
	s.Require().NoError(json.NewDecoder(statusResp.Body).Decode(&status))
	s.False(status.Authenticated, "handle must be dead after logout")

	// Stored tokens survive a plain logout, so restore still works.
	restoreResp := s.postJSON("/api/v1/auth/restore", dto.RestoreRequest{UserID: stubUser})
	defer restoreResp.Body.Close()
	s.Equal(http.StatusOK, restoreResp.StatusCode)
}

func (s *Suite) TestLogout_ClearStoredTokens() {
	authResp := s.login()

	raw, _ := json.Marshal(dto.LogoutRequest{ClearStoredTokens: true})
	req, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/logout", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handler.SessionHeader, authResp.SessionHandle)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	restoreResp := s.postJSON("/api/v1/auth/restore", dto.RestoreRequest{UserID: stubUser})
	defer restoreResp.Body.Close()
	s.Equal(http.StatusNotFound, restoreResp.StatusCode, "cleared tokens cannot restore a session")
}

func (s *Suite) TestLogout_UnknownHandle() {
	req, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/logout", nil)
	req.Header.Set(handler.SessionHeader, "never-issued")
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
}
