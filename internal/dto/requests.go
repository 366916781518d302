package dto

// LoginRequest represents a password login request
type LoginRequest struct {
	Username string `json:"username" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// MFARequest represents an MFA code submission
type MFARequest struct {
	MFAHandle string `json:"mfa_handle" binding:"required"`
	Code      string `json:"code" binding:"required"`
}

// RestoreRequest represents a token-based session restore request
type RestoreRequest struct {
	UserID string `json:"user_id" binding:"required,email"`
}

// LogoutRequest represents a logout request
type LogoutRequest struct {
	ClearStoredTokens bool `json:"clear_stored_tokens"`
}

// AuthResponse represents the outcome of login, mfa or restore
type AuthResponse struct {
	Authenticated bool   `json:"authenticated"`
	SessionHandle string `json:"session_handle,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	RequiresMFA   bool   `json:"requires_mfa,omitempty"`
	MFAHandle     string `json:"mfa_handle,omitempty"`
}

// StatusResponse reports whether a session handle is live
type StatusResponse struct {
	Authenticated bool `json:"authenticated"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
