package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/transitlk/bus-seat-reservation/internal/model"
)

// ErrTokenInvalid is returned when a refresh token hash does not
// resolve to a live session: unknown, expired or revoked all look the
// same to the caller so a probing client learns nothing.
var ErrTokenInvalid = errors.New("refresh token invalid")

// TokenRepo persists refresh token sessions. Only the SHA-256 hash of a
// token is ever stored; revocation is a timestamp rather than a delete
// so the session history stays auditable.
type TokenRepo struct {
	db *sql.DB
}

// NewTokenRepo returns a TokenRepo bound to the given database.
func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// StoreRefresh records a new refresh session for a user.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	const q = `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, userID, tokenHash, exp)
	return err
}

// getByHash loads the session row for a token hash, or ErrTokenInvalid
// when no such row exists.
func (r *TokenRepo) getByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	const q = `SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
	           FROM refresh_tokens WHERE token_hash = ? LIMIT 1`
	var t model.RefreshToken
	var revoked sql.NullTime
	err := r.db.QueryRowContext(ctx, q, tokenHash).Scan(
		&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &revoked, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if revoked.Valid {
		rv := revoked.Time
		t.RevokedAt = &rv
	}
	return &t, nil
}

// ValidateRefresh resolves a token hash to the owning user ID. Revoked
// and expired sessions fail with ErrTokenInvalid exactly like unknown
// hashes.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	t, err := r.getByHash(ctx, tokenHash)
	if err != nil {
		return 0, err
	}
	if t.RevokedAt != nil {
		return 0, ErrTokenInvalid
	}
	if time.Now().UTC().After(t.ExpiresAt) {
		return 0, ErrTokenInvalid
	}
	return t.UserID, nil
}

// RevokeByHash ends the single session behind a token hash. Revoking an
// already revoked token is a no-op.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	const q = `UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE token_hash = ? AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, tokenHash)
	return err
}

// RevokeAllForUser ends every live session of a user, logging them out
// across all devices.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	const q = `UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE user_id = ? AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, userID)
	return err
}
