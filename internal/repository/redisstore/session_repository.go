package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/gdugdh24/rakshak-backend/internal/repository"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

type sessionRepository struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) repository.SessionRepository {
	return &sessionRepository{client: client}
}

func sessionKey(tokenHash string) string {
	return sessionKeyPrefix + tokenHash
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired: %w", domain.ErrInvalidInput)
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return wrap(r.client.Set(ctx, sessionKey(session.TokenHash), payload, ttl).Err())
}

func (r *sessionRepository) GetByToken(ctx context.Context, tokenHash string) (*domain.Session, error) {
	payload, err := r.client.Get(ctx, sessionKey(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, wrap(err)
	}
	var session domain.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

func (r *sessionRepository) DeleteByToken(ctx context.Context, tokenHash string) error {
	return wrap(r.client.Del(ctx, sessionKey(tokenHash)).Err())
}
