package http

// ResetRequestBody captures the payload for requesting a reset code.
type ResetRequestBody struct {
	Email string `json:"email" example:"user@example.com"`
}

// ResetRequestResponse identifies the issued challenge. It never contains
// the code itself.
type ResetRequestResponse struct {
	OTPID     string `json:"otp_id" example:"6a4f2f1e-1c7b-4a5e-a938-f1ed9b1fad10"`
	ExpiresAt string `json:"expires_at" example:"2026-01-01T12:10:00Z"`
}

// ResetVerifyBody captures the payload for trading a code for a reset token.
type ResetVerifyBody struct {
	OTPID string `json:"otp_id" example:"6a4f2f1e-1c7b-4a5e-a938-f1ed9b1fad10"`
	Code  string `json:"code" example:"123456"`
	Email string `json:"email" example:"user@example.com"`
}

// ResetVerifyResponse carries the single-use reset token; it is returned
// exactly once and never retrievable again.
type ResetVerifyResponse struct {
	ResetToken     string `json:"reset_token" example:"lqX1kJ3v..."`
	TokenExpiresAt string `json:"token_expires_at" example:"2026-01-01T12:20:00Z"`
}

// ResetConfirmBody captures the payload for the final password change.
type ResetConfirmBody struct {
	Email           string `json:"email" example:"user@example.com"`
	Token           string `json:"token" example:"lqX1kJ3v..."`
	Password        string `json:"password" example:"NewPass!456789"`
	ConfirmPassword string `json:"confirm_password,omitempty" example:"NewPass!456789"`
}
