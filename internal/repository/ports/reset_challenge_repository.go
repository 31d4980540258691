package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aktivo-app/aktivo-backend/internal/domain"
)

// ResetChallengeRepository persists password-reset challenges. The store is
// authoritative: throttle decisions and single-use guarantees are derived
// from persisted rows, and every mutation that decides a race (attempt
// decrement, verification, consumption) is a single conditional update.
type ResetChallengeRepository interface {
	Create(ctx context.Context, email string, codeHash, codeSalt []byte, codeExpiresAt time.Time, attempts int) (*domain.ResetChallenge, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.ResetChallenge, error)

	// FindLatestByEmail returns the most recently created challenge for an
	// email regardless of state; it backs the resend rate limit.
	FindLatestByEmail(ctx context.Context, email string) (*domain.ResetChallenge, error)

	// DecrementAttempts atomically lowers attempts_remaining by one while it
	// is still positive, returning the new count. sql.ErrNoRows when no
	// attempt was left to burn.
	DecrementAttempts(ctx context.Context, id uuid.UUID) (int, error)

	// MarkVerified flips an unverified, unconsumed challenge to verified and
	// records the reset-token hash and expiry. sql.ErrNoRows when a
	// concurrent verify already won.
	MarkVerified(ctx context.Context, id uuid.UUID, tokenHash []byte, tokenExpiresAt time.Time) error

	// ConsumeByTokenHash sets consumed_at on the single verified, unconsumed,
	// unexpired challenge matching email and token hash. The guard on
	// consumed_at IS NULL makes concurrent consumers race for exactly one
	// winner; losers get sql.ErrNoRows.
	ConsumeByTokenHash(ctx context.Context, email string, tokenHash []byte, now time.Time) (*domain.ResetChallenge, error)

	// Reopen clears consumed_at again. Compensation used only when the
	// credential update of a consume winner failed, so the token stays
	// spendable until its expiry.
	Reopen(ctx context.Context, id uuid.UUID) error
}
