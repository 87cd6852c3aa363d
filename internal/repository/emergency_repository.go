package repository

import (
	"context"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
)

type EmergencyRepository interface {
	Create(ctx context.Context, session *domain.EmergencySession) error
	GetByID(ctx context.Context, id string) (*domain.EmergencySession, error)
	// Accept assigns helperID only while the session is still REQUESTED and
	// active and helperID holds no other accepted session. It fails with
	// ErrAlreadyAssigned, ErrHelperBusy or ErrInvalidTransition otherwise.
	Accept(ctx context.Context, id, helperID string, at time.Time) (*domain.EmergencySession, error)
	Resolve(ctx context.Context, id string, at time.Time) (*domain.EmergencySession, error)
	Classify(ctx context.Context, id string, t domain.EmergencyType, s domain.Severity) (*domain.EmergencySession, error)
	Decline(ctx context.Context, id, helperID string) error
	// ListOpen returns active REQUESTED sessions that helperID neither
	// started nor declined.
	ListOpen(ctx context.Context, helperID string) ([]*domain.EmergencySession, error)
	CountOpen(ctx context.Context) (int, error)
}

// EmergencyEventBus fans emergency changes out to every server instance.
type EmergencyEventBus interface {
	Publish(ctx context.Context, event domain.EmergencyEvent) error
	// Subscribe delivers events until ctx ends. The error channel receives at
	// most one value and is closed once the subscription is over.
	Subscribe(ctx context.Context) (<-chan domain.EmergencyEvent, <-chan error, error)
}
