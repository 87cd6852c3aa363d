package memory

import (
	"context"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
)

type sessionRepo Store

func (r *sessionRepo) Create(ctx context.Context, session *domain.Session) error {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	c := *session
	s.sessions[session.TokenHash] = &c
	return nil
}

func (r *sessionRepo) GetByToken(ctx context.Context, tokenHash string) (*domain.Session, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	session, ok := s.sessions[tokenHash]
	if !ok || session.IsExpired() {
		return nil, domain.ErrSessionNotFound
	}
	c := *session
	return &c, nil
}

func (r *sessionRepo) DeleteByToken(ctx context.Context, tokenHash string) error {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	delete(s.sessions, tokenHash)
	return nil
}
