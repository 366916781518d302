package handler

import (
	"errors"
	"net/http"

	"github.com/akosolapov/wearsync/internal/domain"
	"github.com/akosolapov/wearsync/internal/dto"
	"github.com/akosolapov/wearsync/internal/service"
	"github.com/gin-gonic/gin"
)

// SessionHeader carries the opaque session handle on authenticated calls.
const SessionHeader = "X-Session-Token"

// AuthHandler handles auth/session lifecycle requests
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login handles password login. An account that needs a second factor gets
// a 200 with requires_mfa set instead of an error.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAuthResponse(result))
}

// SubmitMFACode handles MFA code submission for a pending challenge.
func (h *AuthHandler) SubmitMFACode(c *gin.Context) {
	var req dto.MFARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	result, err := h.authService.SubmitMFACode(c.Request.Context(), req.MFAHandle, req.Code)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAuthResponse(result))
}

// Restore handles token-based session restore.
func (h *AuthHandler) Restore(c *gin.Context) {
	var req dto.RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	result, err := h.authService.Restore(c.Request.Context(), req.UserID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAuthResponse(result))
}

// Logout handles logout. It succeeds for unknown handles too.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	// An empty body means a plain logout without clearing tokens.
	_ = c.ShouldBindJSON(&req)

	handle := c.GetHeader(SessionHeader)
	if err := h.authService.Logout(c.Request.Context(), handle, req.ClearStoredTokens); err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Logged out successfully",
	})
}

// Status reports whether the presented handle maps to a live session. An
// absent or unknown handle is a normal negative answer, not an error.
func (h *AuthHandler) Status(c *gin.Context) {
	handle := c.GetHeader(SessionHeader)

	c.JSON(http.StatusOK, dto.StatusResponse{
		Authenticated: handle != "" && h.authService.Status(handle),
	})
}

func toAuthResponse(result *service.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		Authenticated: result.Authenticated,
		SessionHandle: result.SessionHandle,
		UserID:        result.UserID,
		DisplayName:   result.DisplayName,
		RequiresMFA:   result.RequiresMFA,
		MFAHandle:     result.MFAHandle,
	}
}

// respondAuthError maps the error taxonomy to HTTP statuses.
func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Invalid credentials",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrMFACodeRejected):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "MFA code rejected",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrMFAChallengeNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "MFA challenge not found",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrNoStoredSession):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "No stored session",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Not authenticated",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrProviderUnavailable):
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Error:   "Provider unavailable",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
	}
}
