package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aktivo-app/aktivo-backend/internal/domain"
	"github.com/aktivo-app/aktivo-backend/internal/util"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeChallengeRepo mirrors the conditional-update semantics of the Postgres
// repository: every mutation checks its guard under one lock, the way the
// database evaluates a conditional UPDATE on one row.
type fakeChallengeRepo struct {
	mu         sync.Mutex
	clock      *fakeClock
	challenges map[uuid.UUID]*domain.ResetChallenge

	createErr  error
	consumeErr error
}

func newFakeChallengeRepo(clock *fakeClock) *fakeChallengeRepo {
	return &fakeChallengeRepo{
		clock:      clock,
		challenges: make(map[uuid.UUID]*domain.ResetChallenge),
	}
}

func copyChallenge(c *domain.ResetChallenge) *domain.ResetChallenge {
	dup := *c
	if c.ResetTokenExpiresAt != nil {
		t := *c.ResetTokenExpiresAt
		dup.ResetTokenExpiresAt = &t
	}
	if c.ConsumedAt != nil {
		t := *c.ConsumedAt
		dup.ConsumedAt = &t
	}
	return &dup
}

func (f *fakeChallengeRepo) Create(ctx context.Context, email string, codeHash, codeSalt []byte, codeExpiresAt time.Time, attempts int) (*domain.ResetChallenge, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	challenge := &domain.ResetChallenge{
		ID:                uuid.New(),
		Email:             email,
		CodeHash:          append([]byte(nil), codeHash...),
		CodeSalt:          append([]byte(nil), codeSalt...),
		CodeExpiresAt:     codeExpiresAt,
		AttemptsRemaining: attempts,
		CreatedAt:         f.clock.Now(),
	}
	f.challenges[challenge.ID] = challenge
	return copyChallenge(challenge), nil
}

func (f *fakeChallengeRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.ResetChallenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	challenge, ok := f.challenges[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return copyChallenge(challenge), nil
}

func (f *fakeChallengeRepo) FindLatestByEmail(ctx context.Context, email string) (*domain.ResetChallenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *domain.ResetChallenge
	for _, challenge := range f.challenges {
		if challenge.Email != email {
			continue
		}
		if latest == nil || challenge.CreatedAt.After(latest.CreatedAt) {
			latest = challenge
		}
	}
	if latest == nil {
		return nil, sql.ErrNoRows
	}
	return copyChallenge(latest), nil
}

func (f *fakeChallengeRepo) DecrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	challenge, ok := f.challenges[id]
	if !ok || challenge.AttemptsRemaining <= 0 {
		return 0, sql.ErrNoRows
	}
	challenge.AttemptsRemaining--
	return challenge.AttemptsRemaining, nil
}

func (f *fakeChallengeRepo) MarkVerified(ctx context.Context, id uuid.UUID, tokenHash []byte, tokenExpiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	challenge, ok := f.challenges[id]
	if !ok || challenge.Verified || challenge.ConsumedAt != nil {
		return sql.ErrNoRows
	}
	challenge.Verified = true
	challenge.ResetTokenHash = append([]byte(nil), tokenHash...)
	expiry := tokenExpiresAt
	challenge.ResetTokenExpiresAt = &expiry
	return nil
}

func (f *fakeChallengeRepo) ConsumeByTokenHash(ctx context.Context, email string, tokenHash []byte, now time.Time) (*domain.ResetChallenge, error) {
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, challenge := range f.challenges {
		if challenge.Email != email ||
			!challenge.Verified ||
			challenge.ConsumedAt != nil ||
			!bytes.Equal(challenge.ResetTokenHash, tokenHash) ||
			challenge.ResetTokenExpiresAt == nil ||
			!challenge.ResetTokenExpiresAt.After(now) {
			continue
		}
		consumedAt := now
		challenge.ConsumedAt = &consumedAt
		return copyChallenge(challenge), nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeChallengeRepo) Reopen(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	challenge, ok := f.challenges[id]
	if !ok || challenge.ConsumedAt == nil {
		return sql.ErrNoRows
	}
	challenge.ConsumedAt = nil
	return nil
}

func (f *fakeChallengeRepo) get(t *testing.T, id uuid.UUID) *domain.ResetChallenge {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	challenge, ok := f.challenges[id]
	if !ok {
		t.Fatalf("challenge %s not found", id)
	}
	return copyChallenge(challenge)
}

type fakeResetUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User

	updateErr     error
	updatedHashes int
}

func newFakeResetUserRepo() *fakeResetUserRepo {
	return &fakeResetUserRepo{users: make(map[string]*domain.User)}
}

func (f *fakeResetUserRepo) add(email, password string) *domain.User {
	hash, salt, err := util.DeriveSecret(password)
	if err != nil {
		panic(err)
	}
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		PasswordSalt: salt,
	}
	f.users[email] = user
	return user
}

func (f *fakeResetUserRepo) CreateEmailUser(ctx context.Context, email string, passwordHash, passwordSalt []byte) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeResetUserRepo) UpsertGoogleUser(ctx context.Context, email string, fullName *string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeResetUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	dup := *user
	return &dup, nil
}

func (f *fakeResetUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ID == id {
			dup := *user
			return &dup, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeResetUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	for _, user := range f.users {
		if user.ID == id {
			user.PasswordHash = append([]byte(nil), passwordHash...)
			user.PasswordSalt = append([]byte(nil), passwordSalt...)
			f.updatedHashes++
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeSessionRepo struct {
	mu               sync.Mutex
	deactivatedUsers []uuid.UUID
}

func (f *fakeSessionRepo) CreateSession(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*domain.Session, error) {
	return &domain.Session{UserID: userID, Token: token, ExpiresAt: expiresAt, IsActive: true}, nil
}

func (f *fakeSessionRepo) FindActiveSession(ctx context.Context, token string) (*domain.Session, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeSessionRepo) DeactivateSession(ctx context.Context, token string) error {
	return nil
}

func (f *fakeSessionRepo) DeactivateAllForUser(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivatedUsers = append(f.deactivatedUsers, userID)
	return nil
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []string // codes in send order
	sendErr error
}

func (f *fakeMailer) SendPasswordReset(ctx context.Context, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, code)
	return nil
}

func (f *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatalf("no code was sent")
	}
	return f.sent[len(f.sent)-1]
}

type resetFixture struct {
	service    *ResetService
	clock      *fakeClock
	challenges *fakeChallengeRepo
	users      *fakeResetUserRepo
	sessions   *fakeSessionRepo
	mailer     *fakeMailer
}

func newResetFixture() *resetFixture {
	clock := newFakeClock()
	challenges := newFakeChallengeRepo(clock)
	users := newFakeResetUserRepo()
	sessions := &fakeSessionRepo{}
	mailer := &fakeMailer{}

	svc := NewResetService(challenges, users, sessions, mailer, ResetConfig{
		OTPDigits:      6,
		CodeTTL:        10 * time.Minute,
		TokenTTL:       10 * time.Minute,
		MaxAttempts:    5,
		ResendInterval: time.Minute,
	})
	svc.now = clock.Now

	return &resetFixture{
		service:    svc,
		clock:      clock,
		challenges: challenges,
		users:      users,
		sessions:   sessions,
		mailer:     mailer,
	}
}

func TestRequestResetIssuesChallenge(t *testing.T) {
	f := newResetFixture()
	ctx := context.Background()

	result, err := f.service.RequestReset(ctx, "  User@X.com ")
	if err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	if result.OTPID == uuid.Nil {
		t.Fatalf("expected otp id to be set")
	}
	expectedExpiry := f.clock.Now().Add(10 * time.Minute)
	if !result.ExpiresAt.Equal(expectedExpiry) {
		t.Fatalf("expected expiry %s, got %s", expectedExpiry, result.ExpiresAt)
	}

	challenge := f.challenges.get(t, result.OTPID)
	if challenge.Email != "user@x.com" {
		t.Fatalf("expected normalized email, got %q", challenge.Email)
	}
	if challenge.AttemptsRemaining != 5 {
		t.Fatalf("expected 5 attempts, got %d", challenge.AttemptsRemaining)
	}

	code := f.mailer.lastCode(t)
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}
	if !util.VerifySecret(code, challenge.CodeSalt, challenge.CodeHash) {
		t.Fatalf("stored hash does not match the mailed code")
	}
}

func TestRequestResetRateLimitedWithinResendWindow(t *testing.T) {
	f := newResetFixture()
	ctx := context.Background()

	if _, err := f.service.RequestReset(ctx, "user@x.com"); err != nil {
		t.Fatalf("first RequestReset returned error: %v", err)
	}

	f.clock.Advance(20 * time.Second)
	_, err := f.service.RequestReset(ctx, "user@x.com")
	if !errors.Is(err, ErrResetRateLimited) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	var rateLimited *RateLimitedError
	if !errors.As(err, &rateLimited) {
		t.Fatalf("expected RateLimitedError, got %T", err)
	}
	if rateLimited.RetryAfter != 40*time.Second {
		t.Fatalf("expected 40s retry-after, got %s", rateLimited.RetryAfter)
	}

	f.clock.Advance(41 * time.Second)
	if _, err := f.service.RequestReset(ctx, "user@x.com"); err != nil {
		t.Fatalf("expected request after the window to succeed, got %v", err)
	}
}

func TestRequestResetInvalidEmail(t *testing.T) {
	f := newResetFixture()
	for _, email := range []string{"", "   ", "no-at-sign", "@x.com", "user@"} {
		if _, err := f.service.RequestReset(context.Background(), email); !errors.Is(err, ErrInvalidEmail) {
			t.Fatalf("expected ErrInvalidEmail for %q, got %v", email, err)
		}
	}
}

func TestRequestResetDeliveryFailureKeepsChallenge(t *testing.T) {
	f := newResetFixture()
	f.mailer.sendErr = errors.New("smtp unreachable")

	_, err := f.service.RequestReset(context.Background(), "user@x.com")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}

	// The row still exists and keeps the resend throttle counting.
	latest, err := f.challenges.FindLatestByEmail(context.Background(), "user@x.com")
	if err != nil {
		t.Fatalf("expected challenge to remain, got %v", err)
	}
	if latest == nil {
		t.Fatalf("expected challenge row")
	}
}

func requestAndVerify(t *testing.T, f *resetFixture, email string) (uuid.UUID, string) {
	t.Helper()
	ctx := context.Background()
	request, err := f.service.RequestReset(ctx, email)
	if err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	verify, err := f.service.VerifyCode(ctx, request.OTPID.String(), f.mailer.lastCode(t), email)
	if err != nil {
		t.Fatalf("VerifyCode returned error: %v", err)
	}
	return request.OTPID, verify.ResetToken
}

func TestVerifyCodeSuccessIsOneShot(t *testing.T) {
	f := newResetFixture()
	ctx := context.Background()

	request, err := f.service.RequestReset(ctx, "user@x.com")
	if err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	code := f.mailer.lastCode(t)

	result, err := f.service.VerifyCode(ctx, request.OTPID.String(), code, "user@x.com")
	if err != nil {
		t.Fatalf("VerifyCode returned error: %v", err)
	}
	if result.ResetToken == "" {
		t.Fatalf("expected reset token")
	}
	expectedExpiry := f.clock.Now().Add(10 * time.Minute)
	if !result.TokenExpiresAt.Equal(expectedExpiry) {
		t.Fatalf("expected token expiry %s, got %s", expectedExpiry, result.TokenExpiresAt)
	}

	// Verification is one-shot: the same correct code now fails.
	if _, err := f.service.VerifyCode(ctx, request.OTPID.String(), code, "user@x.com"); !errors.Is(err, ErrOTPInvalidOrExpired) {
		t.Fatalf("expected one-shot failure, got %v", err)
	}

	challenge := f.challenges.get(t, request.OTPID)
	if !challenge.Verified {
		t.Fatalf("expected challenge to be verified")
	}
	if challenge.CodeUsable(f.clock.Now()) {
		t.Fatalf("a verified challenge must not accept codes anymore")
	}
	if !challenge.TokenUsable(f.clock.Now()) {
		t.Fatalf("expected the token to be spendable")
	}
	if !util.VerifyResetToken(result.ResetToken, challenge.ResetTokenHash) {
		t.Fatalf("stored token hash does not match issued token")
	}
	if challenge.AttemptsRemaining != 5 {
		t.Fatalf("successful verify must not burn attempts, got %d", challenge.AttemptsRemaining)
	}
}

func TestVerifyCodeWrongCodeBurnsAttempts(t *testing.T) {
	f := newResetFixture()
	ctx := context.Background()

	request, err := f.service.RequestReset(ctx, "user@x.com")
	if err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	code := f.mailer.lastCode(t)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for i := 1; i <= 5; i++ {
		_, err := f.service.VerifyCode(ctx, request.OTPID.String(), wrong, "user@x.com")
		var mismatch *OTPMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("attempt %d: expected OTPMismatchError, got %v", i, err)
		}
		if !errors.Is(err, ErrOTPInvalidOrExpired) {
			t.Fatalf("mismatch must unwrap to the generic code failure")
		}
		if mismatch.AttemptsLeft != 5-i {
			t.Fatalf("attempt %d: expected %d attempts left, got %d", i, 5-i, mismatch.AttemptsLeft)
		}
	}

	// Exhausted: even the correct code is rejected now.
	if _, err := f.service.VerifyCode(ctx, request.OTPID.String(), code, "user@x.com"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestVerifyCodePreconditionFailuresDoNotBurnAttempts(t *testing.T) {
	f := newResetFixture()
	ctx := context.Background()

	request, err := f.service.RequestReset(ctx, "user@x.com")
	if err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}

	// Unknown challenge id.
	if _, err := f.service.VerifyCode(ctx, uuid.NewString(), "123456", "user@x.com"); !errors.Is(err, ErrOTPInvalidOrExpired) {
		t.Fatalf("expected generic failure for unknown challenge, got %v", err)
	}
	// Garbage challenge id.
	if _, err := f.service.VerifyCode(ctx, "not-a-uuid", "123456", "user@x.com"); !errors.Is(err, ErrOTPInvalidOrExpired) {
		t.Fatalf("expected generic failure for malformed challenge id, got %v", err)
	}
	// Wrong email reads identically to a wrong code.
	if _, err := f.service.VerifyCode(ctx, request.OTPID.String(), "123456", "other@x.com"); !errors.Is(err, ErrOTPInvalidOrExpired) {
		t.Fatalf("expected generic failure for email mismatch, got %v", err)
	}
	// Malformed code never reaches the comparison.
	if _, err := f.service.VerifyCode(ctx, request.OTPID.String(), "12 456", "user@x.com"); !errors.Is(err, ErrOTPInvalidOrExpired) {
		t.Fatalf("expected generic failure for malformed code, got %v", err)
	}

	if got := f.challenges.get(t, request.OTPID).AttemptsRemaining; got != 5 {
		t.Fatalf("precondition failures must not burn attempts, got %d", got)
	}
}

func TestVerifyCodeExpired(t *testing.T) {
	f := newResetFixture()
	ctx := context.Background()

	request, err := f.service.RequestReset(ctx, "user@x.com")
	if err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	code := f.mailer.lastCode(t)

	f.clock.Advance(10*time.Minute + time.Second)
	if _, err := f.service.VerifyCode(ctx, request.OTPID.String(), code, "user@x.com"); !errors.Is(err, ErrOTPInvalidOrExpired) {
		t.Fatalf("expected expiry failure, got %v", err)
	}
	if f.challenges.get(t, request.OTPID).CodeUsable(f.clock.Now()) {
		t.Fatalf("expired challenge must not be code-usable")
	}
}

func TestResetPasswordEndToEnd(t *testing.T) {
	f := newResetFixture()
	ctx := context.Background()
	user := f.users.add("a@x.com", "OldPassword!234")

	otpID, token := requestAndVerify(t, f, "a@x.com")

	if err := f.service.ResetPassword(ctx, "a@x.com", token, "NewPassword!234"); err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}

	stored, err := f.users.FindByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("FindByEmail returned error: %v", err)
	}
	if !util.VerifySecret("NewPassword!234", stored.PasswordSalt, stored.PasswordHash) {
		t.Fatalf("expected new password to verify")
	}
	if util.VerifySecret("OldPassword!234", stored.PasswordSalt, stored.PasswordHash) {
		t.Fatalf("expected old password to stop verifying")
	}

	challenge := f.challenges.get(t, otpID)
	if !challenge.Consumed() {
		t.Fatalf("expected challenge to be consumed")
	}

	if len(f.sessions.deactivatedUsers) != 1 || f.sessions.deactivatedUsers[0] != user.ID {
		t.Fatalf("expected sessions to be revoked for %s", user.ID)
	}

	// The token is spent: a second reset with it must fail.
	if err := f.service.ResetPassword(ctx, "a@x.com", token, "AnotherPass!234"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected spent token to fail, got %v", err)
	}
}

func TestResetPasswordExpiredToken(t *testing.T) {
	f := newResetFixture()
	f.users.add("a@x.com", "OldPassword!234")

	_, token := requestAndVerify(t, f, "a@x.com")

	f.clock.Advance(10*time.Minute + time.Second)
	err := f.service.ResetPassword(context.Background(), "a@x.com", token, "NewPassword!234")
	if !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected expired token failure, got %v", err)
	}
	if f.users.updatedHashes != 0 {
		t.Fatalf("expected no credential update on expired token")
	}
}

func TestResetPasswordUnknownToken(t *testing.T) {
	f := newResetFixture()
	f.users.add("a@x.com", "OldPassword!234")

	err := f.service.ResetPassword(context.Background(), "a@x.com", "never-issued", "NewPassword!234")
	if !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected unknown token failure, got %v", err)
	}
}

func TestResetPasswordWeakPasswordLeavesTokenUsable(t *testing.T) {
	f := newResetFixture()
	ctx := context.Background()
	f.users.add("a@x.com", "OldPassword!234")

	_, token := requestAndVerify(t, f, "a@x.com")

	if err := f.service.ResetPassword(ctx, "a@x.com", token, "weak"); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected policy failure, got %v", err)
	}
	// Policy failures happen before the consume; the token still works.
	if err := f.service.ResetPassword(ctx, "a@x.com", token, "NewPassword!234"); err != nil {
		t.Fatalf("expected retry with strong password to succeed, got %v", err)
	}
}

func TestResetPasswordCredentialFailureReopensChallenge(t *testing.T) {
	f := newResetFixture()
	ctx := context.Background()
	f.users.add("a@x.com", "OldPassword!234")

	otpID, token := requestAndVerify(t, f, "a@x.com")

	f.users.updateErr = errors.New("database unavailable")
	if err := f.service.ResetPassword(ctx, "a@x.com", token, "NewPassword!234"); !errors.Is(err, ErrCredentialUpdateFailed) {
		t.Fatalf("expected credential failure, got %v", err)
	}
	if f.challenges.get(t, otpID).Consumed() {
		t.Fatalf("expected challenge to be reopened after credential failure")
	}

	f.users.updateErr = nil
	if err := f.service.ResetPassword(ctx, "a@x.com", token, "NewPassword!234"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}

func TestResetPasswordConcurrentSingleWinner(t *testing.T) {
	f := newResetFixture()
	f.users.add("a@x.com", "OldPassword!234")

	_, token := requestAndVerify(t, f, "a@x.com")

	const parallel = 8
	results := make(chan error, parallel)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < parallel; i++ {
		go func() {
			start.Wait()
			results <- f.service.ResetPassword(context.Background(), "a@x.com", token, "NewPassword!234")
		}()
	}
	start.Done()

	var successes, tokenFailures int
	for i := 0; i < parallel; i++ {
		err := <-results
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrInvalidOrExpiredToken):
			tokenFailures++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if successes != 1 {
		t.Fatalf("expected exactly one winner, got %d", successes)
	}
	if tokenFailures != parallel-1 {
		t.Fatalf("expected %d token failures, got %d", parallel-1, tokenFailures)
	}
	if f.users.updatedHashes != 1 {
		t.Fatalf("expected exactly one credential update, got %d", f.users.updatedHashes)
	}
}
