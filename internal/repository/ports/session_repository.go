package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aktivo-app/aktivo-backend/internal/domain"
)

type SessionRepository interface {
	CreateSession(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*domain.Session, error)
	FindActiveSession(ctx context.Context, token string) (*domain.Session, error)
	DeactivateSession(ctx context.Context, token string) error

	// DeactivateAllForUser revokes every active session of a user; called
	// after a credential change so stolen logins do not survive a reset.
	DeactivateAllForUser(ctx context.Context, userID uuid.UUID) error
}
