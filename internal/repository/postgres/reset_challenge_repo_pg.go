package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aktivo-app/aktivo-backend/internal/domain"
)

const resetChallengeColumns = `id, email, code_hash, code_salt, code_expires_at, attempts_remaining, verified, reset_token_hash, reset_token_expires_at, consumed_at, created_at`

type ResetChallengeRepository struct {
	db *sqlx.DB
}

func NewResetChallengeRepo(db *sqlx.DB) *ResetChallengeRepository {
	return &ResetChallengeRepository{db: db}
}

func (r *ResetChallengeRepository) Create(ctx context.Context, email string, codeHash, codeSalt []byte, codeExpiresAt time.Time, attempts int) (*domain.ResetChallenge, error) {
	const query = `
        INSERT INTO reset_challenge (email, code_hash, code_salt, code_expires_at, attempts_remaining)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING ` + resetChallengeColumns + `
    `
	row := r.db.QueryRowxContext(ctx, query, email, codeHash, codeSalt, codeExpiresAt, attempts)
	var challenge domain.ResetChallenge
	if err := row.StructScan(&challenge); err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (r *ResetChallengeRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ResetChallenge, error) {
	const query = `
        SELECT ` + resetChallengeColumns + `
        FROM reset_challenge
        WHERE id = $1
    `
	var challenge domain.ResetChallenge
	if err := r.db.GetContext(ctx, &challenge, query, id); err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (r *ResetChallengeRepository) FindLatestByEmail(ctx context.Context, email string) (*domain.ResetChallenge, error) {
	const query = `
        SELECT ` + resetChallengeColumns + `
        FROM reset_challenge
        WHERE email = $1
        ORDER BY created_at DESC
        LIMIT 1
    `
	var challenge domain.ResetChallenge
	if err := r.db.GetContext(ctx, &challenge, query, email); err != nil {
		return nil, err
	}
	return &challenge, nil
}

// DecrementAttempts burns one verification attempt. The attempts_remaining > 0
// guard makes concurrent wrong guesses race on the database row instead of a
// stale in-memory count.
func (r *ResetChallengeRepository) DecrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	const query = `
        UPDATE reset_challenge
        SET attempts_remaining = attempts_remaining - 1
        WHERE id = $1 AND attempts_remaining > 0
        RETURNING attempts_remaining
    `
	var remaining int
	if err := r.db.GetContext(ctx, &remaining, query, id); err != nil {
		return 0, err
	}
	return remaining, nil
}

func (r *ResetChallengeRepository) MarkVerified(ctx context.Context, id uuid.UUID, tokenHash []byte, tokenExpiresAt time.Time) error {
	const query = `
        UPDATE reset_challenge
        SET verified = TRUE,
            reset_token_hash = $2,
            reset_token_expires_at = $3
        WHERE id = $1 AND verified = FALSE AND consumed_at IS NULL
    `
	result, err := r.db.ExecContext(ctx, query, id, tokenHash, tokenExpiresAt)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ConsumeByTokenHash spends the reset token. The consumed_at IS NULL predicate
// is the compare-and-set that guarantees exactly one winner among concurrent
// resets carrying the same token.
func (r *ResetChallengeRepository) ConsumeByTokenHash(ctx context.Context, email string, tokenHash []byte, now time.Time) (*domain.ResetChallenge, error) {
	const query = `
        UPDATE reset_challenge
        SET consumed_at = $3
        WHERE email = $1
          AND reset_token_hash = $2
          AND verified = TRUE
          AND consumed_at IS NULL
          AND reset_token_expires_at > $3
        RETURNING ` + resetChallengeColumns + `
	`
	row := r.db.QueryRowxContext(ctx, query, email, tokenHash, now)
	var challenge domain.ResetChallenge
	if err := row.StructScan(&challenge); err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (r *ResetChallengeRepository) Reopen(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE reset_challenge
        SET consumed_at = NULL
        WHERE id = $1 AND consumed_at IS NOT NULL
    `
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
