package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aktivo-app/aktivo-backend/internal/repository/ports"
	"github.com/aktivo-app/aktivo-backend/internal/util"
)

// ResetCodeMailer delivers the raw one-time code out-of-band. The HTTP
// response never carries the code, so a delivery failure cannot leak it.
type ResetCodeMailer interface {
	SendPasswordReset(ctx context.Context, email, code string) error
}

// ResetConfig tunes the reset flow policy. Zero values fall back to the
// platform defaults.
type ResetConfig struct {
	OTPDigits      int
	CodeTTL        time.Duration
	TokenTTL       time.Duration
	MaxAttempts    int
	ResendInterval time.Duration
}

func (c ResetConfig) withDefaults() ResetConfig {
	if c.OTPDigits <= 0 {
		c.OTPDigits = 6
	}
	if c.CodeTTL <= 0 {
		c.CodeTTL = 10 * time.Minute
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 10 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.ResendInterval <= 0 {
		c.ResendInterval = time.Minute
	}
	return c
}

// ResetService orchestrates the three-phase password-reset protocol:
// RequestReset issues a challenge and mails the code, VerifyCode trades the
// code for a single-use reset token, ResetPassword spends the token. All
// throttle state lives in the challenge store, so the flow stays correct
// across restarts and multiple instances.
type ResetService struct {
	challenges ports.ResetChallengeRepository
	users      ports.UserRepository
	sessions   ports.SessionRepository
	mailer     ResetCodeMailer
	config     ResetConfig
	now        func() time.Time
}

func NewResetService(
	challenges ports.ResetChallengeRepository,
	users ports.UserRepository,
	sessions ports.SessionRepository,
	mailer ResetCodeMailer,
	config ResetConfig,
) *ResetService {
	return &ResetService{
		challenges: challenges,
		users:      users,
		sessions:   sessions,
		mailer:     mailer,
		config:     config.withDefaults(),
		now:        time.Now,
	}
}

type ResetRequestResult struct {
	OTPID     uuid.UUID
	ExpiresAt time.Time
}

type ResetVerifyResult struct {
	ResetToken     string
	TokenExpiresAt time.Time
}

// RequestReset creates a challenge for the email and mails the code. The
// most recent challenge per email is the live one for rate limiting: a
// second request inside the resend interval fails without issuing a code.
func (s *ResetService) RequestReset(ctx context.Context, email string) (*ResetRequestResult, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidEmail
	}

	now := s.now()
	latest, err := s.challenges.FindLatestByEmail(ctx, normalized)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if latest != nil {
		if elapsed := now.Sub(latest.CreatedAt); elapsed < s.config.ResendInterval {
			return nil, &RateLimitedError{RetryAfter: s.config.ResendInterval - elapsed}
		}
	}

	code, err := util.GenerateNumericOTP(s.config.OTPDigits)
	if err != nil {
		return nil, err
	}
	codeHash, codeSalt, err := util.DeriveSecret(code)
	if err != nil {
		return nil, err
	}

	challenge, err := s.challenges.Create(ctx, normalized, codeHash, codeSalt, now.Add(s.config.CodeTTL), s.config.MaxAttempts)
	if err != nil {
		return nil, err
	}

	// The challenge row stays in place on delivery failure: it keeps the
	// resend throttle counting and the row is unusable without the code.
	if err := s.mailer.SendPasswordReset(ctx, normalized, code); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	return &ResetRequestResult{OTPID: challenge.ID, ExpiresAt: challenge.CodeExpiresAt}, nil
}

// VerifyCode checks the submitted code against a challenge and, on the first
// match, issues the single-use reset token. Verification is one-shot: once a
// challenge is verified, further VerifyCode calls fail like any other dead
// challenge. Failures before the hash comparison never burn an attempt.
func (s *ResetService) VerifyCode(ctx context.Context, otpID, code, email string) (*ResetVerifyResult, error) {
	challengeID, err := uuid.Parse(strings.TrimSpace(otpID))
	if err != nil {
		return nil, ErrOTPInvalidOrExpired
	}
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, ErrOTPInvalidOrExpired
	}

	challenge, err := s.challenges.FindByID(ctx, challengeID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrOTPInvalidOrExpired
		}
		return nil, err
	}

	// An email mismatch reads exactly like a wrong code so callers cannot
	// learn which emails have outstanding challenges.
	if challenge.Email != normalized {
		return nil, ErrOTPInvalidOrExpired
	}
	if challenge.Consumed() || challenge.Verified {
		return nil, ErrOTPInvalidOrExpired
	}
	if challenge.AttemptsRemaining <= 0 {
		return nil, ErrTooManyAttempts
	}
	now := s.now()
	if !now.Before(challenge.CodeExpiresAt) {
		return nil, ErrOTPInvalidOrExpired
	}

	code = strings.TrimSpace(code)
	if len(code) != s.config.OTPDigits || !util.IsNumericCode(code) {
		// Malformed input can never match; reject without burning an attempt.
		return nil, ErrOTPInvalidOrExpired
	}

	if !util.VerifySecret(code, challenge.CodeSalt, challenge.CodeHash) {
		remaining, err := s.challenges.DecrementAttempts(ctx, challenge.ID)
		if err != nil {
			if isNotFound(err) {
				// A concurrent guess burned the last attempt first.
				return nil, ErrTooManyAttempts
			}
			return nil, err
		}
		return nil, &OTPMismatchError{AttemptsLeft: remaining}
	}

	token, err := util.GenerateResetToken()
	if err != nil {
		return nil, err
	}
	tokenExpiresAt := now.Add(s.config.TokenTTL)
	if err := s.challenges.MarkVerified(ctx, challenge.ID, util.HashResetToken(token), tokenExpiresAt); err != nil {
		if isNotFound(err) {
			// A concurrent verify already claimed the challenge.
			return nil, ErrOTPInvalidOrExpired
		}
		return nil, err
	}

	return &ResetVerifyResult{ResetToken: token, TokenExpiresAt: tokenExpiresAt}, nil
}

// ResetPassword spends the reset token and writes the new credential. The
// consume is a conditional update on consumed_at, so concurrent calls with
// the same token produce exactly one winner; everyone else sees the same
// generic token failure as expired or never-issued tokens.
func (s *ResetService) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return ErrInvalidOrExpiredToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidOrExpiredToken
	}
	// Policy runs before any state change so a weak password never spends
	// the token.
	if err := util.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}

	challenge, err := s.challenges.ConsumeByTokenHash(ctx, normalized, util.HashResetToken(token), s.now())
	if err != nil {
		if isNotFound(err) {
			return ErrInvalidOrExpiredToken
		}
		return err
	}

	user, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		s.reopen(ctx, challenge.ID)
		if isNotFound(err) {
			return ErrCredentialUpdateFailed
		}
		return fmt.Errorf("%w: %v", ErrCredentialUpdateFailed, err)
	}

	passwordHash, passwordSalt, err := util.DeriveSecret(newPassword)
	if err != nil {
		s.reopen(ctx, challenge.ID)
		return fmt.Errorf("%w: %v", ErrCredentialUpdateFailed, err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash, passwordSalt); err != nil {
		s.reopen(ctx, challenge.ID)
		return fmt.Errorf("%w: %v", ErrCredentialUpdateFailed, err)
	}

	// The credential is rotated; outstanding logins must not survive it.
	if err := s.sessions.DeactivateAllForUser(ctx, user.ID); err != nil {
		log.Printf("reset: deactivate sessions for %s: %v", user.ID, err)
	}

	return nil
}

// reopen undoes a consume whose credential write failed, keeping the token
// spendable until its expiry. Best effort: a failure here only costs the user
// a fresh request.
func (s *ResetService) reopen(ctx context.Context, id uuid.UUID) {
	if err := s.challenges.Reopen(ctx, id); err != nil {
		log.Printf("reset: reopen challenge %s: %v", id, err)
	}
}

// NormalizeEmail trims and lower-cases an email and checks its basic shape.
// Full mailbox validation stays with the caller; this guard only keeps junk
// out of the challenge store.
func NormalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", ErrInvalidEmail
	}
	at := strings.IndexByte(normalized, '@')
	if at <= 0 || at == len(normalized)-1 {
		return "", ErrInvalidEmail
	}
	if strings.ContainsAny(normalized, " \t\r\n") {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}
