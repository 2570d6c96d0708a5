package store

import (
	"context"
	"time"

	"github.com/fleema/fleetcore/internal/domain"
	"github.com/google/uuid"
)

// TokenStore keeps one opaque token per user in auth_tokens. The unique
// user_id column lets issuance and rotation run as single upserts, so a
// concurrent reader sees either the old key or the new one, never neither.
type TokenStore struct {
	db Querier
}

func NewTokenStore(db Querier) *TokenStore {
	return &TokenStore{db: db}
}

func (s *TokenStore) GetOrCreate(ctx context.Context, userID uuid.UUID, key string, staleBefore time.Time) (*domain.Token, error) {
	t := &domain.Token{UserID: userID}
	err := s.db.QueryRow(ctx,
		`INSERT INTO auth_tokens (key, user_id) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET
		     key = CASE WHEN auth_tokens.created_at < $3 THEN EXCLUDED.key ELSE auth_tokens.key END,
		     created_at = CASE WHEN auth_tokens.created_at < $3 THEN now() ELSE auth_tokens.created_at END
		 RETURNING key, created_at`,
		key, userID, staleBefore,
	).Scan(&t.Key, &t.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return t, nil
}

func (s *TokenStore) Replace(ctx context.Context, userID uuid.UUID, key string) (*domain.Token, error) {
	t := &domain.Token{UserID: userID}
	err := s.db.QueryRow(ctx,
		`INSERT INTO auth_tokens (key, user_id) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET key = EXCLUDED.key, created_at = now()
		 RETURNING key, created_at`,
		key, userID,
	).Scan(&t.Key, &t.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return t, nil
}

func (s *TokenStore) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM auth_tokens WHERE user_id = $1`, userID)
	return mapError(err)
}

func (s *TokenStore) GetByKey(ctx context.Context, key string) (*domain.Token, error) {
	t := &domain.Token{Key: key}
	err := s.db.QueryRow(ctx,
		`SELECT user_id, created_at FROM auth_tokens WHERE key = $1`, key,
	).Scan(&t.UserID, &t.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return t, nil
}

func (s *TokenStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM auth_tokens WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}
