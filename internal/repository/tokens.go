package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MatejStrlek/uni-course-management/internal/model"
)

// ReplaceRefreshToken deletes every refresh token belonging to the user and
// inserts the new one in the same transaction, so each user holds at most
// one live token at any moment.
func (s *Store) ReplaceRefreshToken(ctx context.Context, t model.RefreshToken) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, t.UserID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO refresh_tokens (id, user_id, token_hash, created_at, expires_at, revoked)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, t.ID, t.UserID, t.TokenHash, t.CreatedAt, t.ExpiresAt, t.Revoked)
		return err
	})
}

func (s *Store) RefreshTokenByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	var t model.RefreshToken
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash, created_at, expires_at, revoked
		FROM refresh_tokens
		WHERE token_hash = $1
	`, tokenHash)
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt, &t.Revoked)
	return t, mapErr(err)
}

func (s *Store) DeleteRefreshToken(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id)
	return err
}

func (s *Store) DeleteRefreshTokensByUser(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	return err
}

// DeleteExpiredRefreshTokens purges tokens whose expiry is at or before the
// given instant and returns how many rows were removed.
func (s *Store) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
