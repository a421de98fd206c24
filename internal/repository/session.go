package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/teashop/internal/domain/auth"
)

const (
	getSessionByHashSQL = `SELECT user_id, token_hash, name
		FROM user_sessions WHERE token_hash = $1 AND active = TRUE`

	upsertSessionSQL = `INSERT INTO user_sessions (user_id, token_hash, name, active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (token_hash) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			name = EXCLUDED.name,
			active = TRUE`
)

var _ auth.Repository = (*SessionRepository)(nil)

// SessionRepository provides login-session lookups backed by PostgreSQL.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a SessionRepository that uses the given pool.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// FindByTokenHash looks up an active login session by its HMAC-SHA256 token
// hash.
func (r *SessionRepository) FindByTokenHash(ctx context.Context, hash string) (*auth.Identity, error) {
	var ident auth.Identity
	err := r.pool.QueryRow(ctx, getSessionByHashSQL, hash).Scan(
		&ident.UserID, &ident.TokenHash, &ident.Name,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", err)
		}
		return nil, fmt.Errorf("finding session by token hash: %w", err)
	}
	return &ident, nil
}

// UpsertSession stores a login session row. Used by the seed command to mint
// test sessions.
func (r *SessionRepository) UpsertSession(ctx context.Context, userID, tokenHash, name string) error {
	_, err := r.pool.Exec(ctx, upsertSessionSQL, userID, tokenHash, name)
	if err != nil {
		return fmt.Errorf("upserting session for user %q: %w", userID, err)
	}
	return nil
}
