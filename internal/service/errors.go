package service

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrInvalidEmail rejects malformed reset targets before any state change.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrResetRateLimited means a live challenge for the email is younger
	// than the resend interval.
	ErrResetRateLimited = errors.New("reset requested too recently")

	// ErrDeliveryFailed means the code could not be handed to the mail sink.
	ErrDeliveryFailed = errors.New("could not deliver reset code")

	// ErrOTPInvalidOrExpired is deliberately indistinguishable across a
	// missing challenge, a wrong email, a consumed or expired challenge, and
	// a wrong code, so callers cannot probe challenge state.
	ErrOTPInvalidOrExpired = errors.New("invalid or expired code")

	// ErrTooManyAttempts means attempts_remaining reached zero; the
	// challenge is permanently dead for code matching even before expiry.
	ErrTooManyAttempts = errors.New("too many incorrect attempts")

	// ErrInvalidOrExpiredToken covers unknown, expired and already-consumed
	// reset tokens with a single message.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")

	// ErrPasswordPolicy rejects new passwords before any state change.
	ErrPasswordPolicy = errors.New("password does not meet policy")

	// ErrCredentialUpdateFailed means the account credential could not be
	// written; the challenge stays verified-but-unconsumed so the same token
	// can be retried until it expires.
	ErrCredentialUpdateFailed = errors.New("could not update credentials")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
)

// RateLimitedError carries the retry-after hint for the UX while unwrapping
// to ErrResetRateLimited for errors.Is.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s, retry in %s", ErrResetRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Unwrap() error { return ErrResetRateLimited }

// OTPMismatchError reports a wrong-code comparison together with the number
// of attempts still available. It unwraps to ErrOTPInvalidOrExpired so the
// caller-visible wording stays identical to every other code failure.
type OTPMismatchError struct {
	AttemptsLeft int
}

func (e *OTPMismatchError) Error() string {
	return fmt.Sprintf("%s (%d attempts left)", ErrOTPInvalidOrExpired, e.AttemptsLeft)
}

func (e *OTPMismatchError) Unwrap() error { return ErrOTPInvalidOrExpired }

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
