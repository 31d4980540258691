package http

import "time"

// ErrorResponse represents a generic error payload.
type ErrorResponse struct {
	Error string `json:"error" example:"invalid credentials"`
}

// AuthUser models the sanitized user representation returned by auth endpoints.
type AuthUser struct {
	ID        string    `json:"id" example:"9fd13fd2-63c5-4f29-a210-4a1a8e285f74"`
	Email     string    `json:"email" example:"user@example.com"`
	FullName  *string   `json:"full_name,omitempty" example:"Avid Hiker"`
	CreatedAt time.Time `json:"created_at" example:"2026-01-01T12:00:00Z"`
	UpdatedAt time.Time `json:"updated_at" example:"2026-01-02T09:30:00Z"`
}

// AuthTokenResponse is returned by endpoints that issue bearer tokens.
type AuthTokenResponse struct {
	Token     string   `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	ExpiresAt string   `json:"expires_at" example:"2026-01-02T09:30:00Z"`
	User      AuthUser `json:"user"`
}

// SuccessResponse denotes a simple success flag.
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

// RegisterRequest carries email registration fields.
type RegisterRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"StrongPass!2345"`
}

// LoginRequest carries email login fields.
type LoginRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"StrongPass!2345"`
}

// GoogleLoginRequest carries the Google ID token for login.
type GoogleLoginRequest struct {
	IDToken string `json:"id_token" example:"eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// ChangePasswordRequest captures the payload for password updates.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" example:"OldPass!234567"`
	NewPassword     string `json:"new_password" example:"NewPass!456789"`
}
