package domain

import (
	"time"

	"github.com/google/uuid"
)

// ResetChallenge tracks one in-flight password-reset attempt. Rows are
// immutable history: they are never deleted, only transitioned forward
// (pending -> verified -> consumed). Expiry and attempt exhaustion are
// derived at read time rather than stored as state transitions.
type ResetChallenge struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	Email               string     `db:"email" json:"email"`
	CodeHash            []byte     `db:"code_hash" json:"-"`
	CodeSalt            []byte     `db:"code_salt" json:"-"`
	CodeExpiresAt       time.Time  `db:"code_expires_at" json:"code_expires_at"`
	AttemptsRemaining   int        `db:"attempts_remaining" json:"attempts_remaining"`
	Verified            bool       `db:"verified" json:"verified"`
	ResetTokenHash      []byte     `db:"reset_token_hash" json:"-"`
	ResetTokenExpiresAt *time.Time `db:"reset_token_expires_at" json:"reset_token_expires_at,omitempty"`
	ConsumedAt          *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
}

// Consumed reports whether the challenge reached its terminal state.
func (c *ResetChallenge) Consumed() bool {
	return c.ConsumedAt != nil
}

// CodeUsable reports whether the one-time code can still be matched: not
// consumed, not yet verified, attempts remaining, and inside the code window.
func (c *ResetChallenge) CodeUsable(now time.Time) bool {
	return !c.Consumed() &&
		!c.Verified &&
		c.AttemptsRemaining > 0 &&
		now.Before(c.CodeExpiresAt)
}

// TokenUsable reports whether the issued reset token can still be spent.
func (c *ResetChallenge) TokenUsable(now time.Time) bool {
	return c.Verified &&
		!c.Consumed() &&
		len(c.ResetTokenHash) > 0 &&
		c.ResetTokenExpiresAt != nil &&
		now.Before(*c.ResetTokenExpiresAt)
}
