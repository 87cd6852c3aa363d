package repository

import (
	"context"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)
	// AwardPoints adds points to the score, recomputes the rank and bumps the
	// help count atomically.
	AwardPoints(ctx context.Context, id string, points int) (*domain.User, error)
	UpdateLocation(ctx context.Context, id string, point domain.GeoPoint) error
	SetEmergencyContacts(ctx context.Context, id string, contacts domain.Contacts) error
	TopByScore(ctx context.Context, limit int) ([]*domain.User, error)
	List(ctx context.Context, limit int) ([]*domain.User, error)
	CountAvailable(ctx context.Context) (int, error)
	SumHelpCount(ctx context.Context) (int, error)
}
