package service

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/idtoken"

	"github.com/aktivo-app/aktivo-backend/internal/domain"
	"github.com/aktivo-app/aktivo-backend/internal/repository/ports"
	"github.com/aktivo-app/aktivo-backend/internal/util"
)

// AuthService owns the platform identity surface the reset flow collaborates
// with: email and Google sign-in, bearer-token authentication, and password
// changes for logged-in users.
type AuthService struct {
	users      ports.UserRepository
	sessions   ports.SessionRepository
	jwt        *util.JWTManager
	googleAud  string
	sessionTTL time.Duration
}

func NewAuthService(
	users ports.UserRepository,
	sessions ports.SessionRepository,
	jwtManager *util.JWTManager,
	googleAud string,
	sessionTTL time.Duration,
) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		users:      users,
		sessions:   sessions,
		jwt:        jwtManager,
		googleAud:  googleAud,
		sessionTTL: sessionTTL,
	}
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidEmail
	}
	if err := util.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}
	hash, salt, err := util.DeriveSecret(password)
	if err != nil {
		return nil, err
	}
	user, err := s.users.CreateEmailUser(ctx, normalized, hash, salt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.HasPassword() || !util.VerifySecret(password, user.PasswordSalt, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issueSession(ctx, user)
}

func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken string) (*LoginResult, error) {
	payload, err := idtoken.Validate(ctx, idToken, s.googleAud)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	email, _ := payload.Claims["email"].(string)
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	var fullName *string
	if name, ok := payload.Claims["name"].(string); ok && name != "" {
		fullName = &name
	}
	user, err := s.users.UpsertGoogleUser(ctx, normalized, fullName)
	if err != nil {
		return nil, err
	}
	return s.issueSession(ctx, user)
}

// Authenticate resolves a bearer token to its user. The JWT signature alone
// is not enough: the matching session row must still be active, so revoked
// sessions die immediately even before the token expires.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.jwt.Parse(token)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if _, err := s.sessions.FindActiveSession(ctx, token); err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeactivateSession(ctx, token)
}

func (s *AuthService) ChangePassword(ctx context.Context, user *domain.User, currentPassword, newPassword string) error {
	if user == nil {
		return ErrInvalidCredentials
	}
	if !user.HasPassword() || !util.VerifySecret(currentPassword, user.PasswordSalt, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := util.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}
	hash, salt, err := util.DeriveSecret(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, salt); err != nil {
		return err
	}
	return s.sessions.DeactivateAllForUser(ctx, user.ID)
}

func (s *AuthService) issueSession(ctx context.Context, user *domain.User) (*LoginResult, error) {
	token, expiresAt, err := s.jwt.Generate(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.CreateSession(ctx, user.ID, token, expiresAt); err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
