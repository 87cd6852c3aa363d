package repository

import (
	"context"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
)

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByToken(ctx context.Context, tokenHash string) (*domain.Session, error)
	DeleteByToken(ctx context.Context, tokenHash string) error
}
