package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/gdugdh24/rakshak-backend/internal/repository"
	"github.com/jmoiron/sqlx"
)

const emergencyColumns = `id, user_id, user_name, user_phone, lat, lng, status, type,
	severity, helper_id, active, start_time, accepted_time, end_time`

type emergencyRepository struct {
	db *sqlx.DB
}

func NewEmergencyRepository(db *sqlx.DB) repository.EmergencyRepository {
	return &emergencyRepository{db: db}
}

func (r *emergencyRepository) Create(ctx context.Context, s *domain.EmergencySession) error {
	query := `
		INSERT INTO emergencies (
			id, user_id, user_name, user_phone, lat, lng,
			status, type, severity, active, start_time
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.UserName, s.UserPhone, s.Lat, s.Lng,
		s.Status, s.Type, s.Severity, s.Active, s.StartTime,
	)
	if isForeignKeyViolation(err) {
		return domain.ErrUserNotFound
	}
	return wrap(err)
}

func (r *emergencyRepository) GetByID(ctx context.Context, id string) (*domain.EmergencySession, error) {
	var s domain.EmergencySession
	query := `SELECT ` + emergencyColumns + ` FROM emergencies WHERE id = $1`
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEmergencyNotFound
		}
		return nil, wrap(err)
	}
	return &s, nil
}

// Accept is a compare-and-set on the REQUESTED state and on the helper
// having no other accepted session, so concurrent accepts cannot double-assign.
func (r *emergencyRepository) Accept(ctx context.Context, id, helperID string, at time.Time) (*domain.EmergencySession, error) {
	query := `
		UPDATE emergencies
		SET status = 'ACCEPTED', helper_id = $2, accepted_time = $3
		WHERE id = $1 AND status = 'REQUESTED' AND active
		  AND NOT EXISTS (
			SELECT 1 FROM emergencies busy
			WHERE busy.helper_id = $2 AND busy.active AND busy.status = 'ACCEPTED'
		  )
		RETURNING ` + emergencyColumns
	s, err := r.updateOne(ctx, query, id, helperID, at)
	if !errors.Is(err, sql.ErrNoRows) {
		return s, err
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case current.HelperID != nil:
		return nil, domain.ErrAlreadyAssigned
	case current.Active && current.Status == domain.StatusRequested:
		return nil, domain.ErrHelperBusy
	default:
		return nil, domain.ErrInvalidTransition
	}
}

func (r *emergencyRepository) Resolve(ctx context.Context, id string, at time.Time) (*domain.EmergencySession, error) {
	query := `
		UPDATE emergencies
		SET status = 'RESOLVED', active = FALSE, end_time = $2
		WHERE id = $1 AND status IN ('REQUESTED', 'ACCEPTED')
		RETURNING ` + emergencyColumns
	return r.updateOrExplain(ctx, query, id, at)
}

func (r *emergencyRepository) Classify(ctx context.Context, id string, t domain.EmergencyType, sev domain.Severity) (*domain.EmergencySession, error) {
	query := `
		UPDATE emergencies
		SET type = $2, severity = $3
		WHERE id = $1 AND active
		RETURNING ` + emergencyColumns
	return r.updateOrExplain(ctx, query, id, t, sev)
}

// updateOrExplain runs a conditional update and, when no row matched, tells
// a missing session apart from one in the wrong state.
func (r *emergencyRepository) updateOrExplain(ctx context.Context, query, id string, args ...interface{}) (*domain.EmergencySession, error) {
	s, err := r.updateOne(ctx, query, append([]interface{}{id}, args...)...)
	if !errors.Is(err, sql.ErrNoRows) {
		return s, err
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, domain.ErrInvalidTransition
}

func (r *emergencyRepository) updateOne(ctx context.Context, query string, args ...interface{}) (*domain.EmergencySession, error) {
	var s domain.EmergencySession
	if err := r.db.GetContext(ctx, &s, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, wrap(err)
	}
	return &s, nil
}

func (r *emergencyRepository) Decline(ctx context.Context, id, helperID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO emergency_declines (emergency_id, helper_id)
		VALUES ($1, $2)
		ON CONFLICT (emergency_id, helper_id) DO NOTHING`,
		id, helperID,
	)
	if isForeignKeyViolation(err) {
		return domain.ErrEmergencyNotFound
	}
	return wrap(err)
}

func (r *emergencyRepository) ListOpen(ctx context.Context, helperID string) ([]*domain.EmergencySession, error) {
	sessions := []*domain.EmergencySession{}
	query := `
		SELECT ` + emergencyColumns + `
		FROM emergencies e
		WHERE e.active AND e.status = 'REQUESTED' AND e.user_id <> $1
		  AND NOT EXISTS (
			SELECT 1 FROM emergency_declines d
			WHERE d.emergency_id = e.id AND d.helper_id = $1
		  )
		ORDER BY e.start_time DESC
	`
	if err := r.db.SelectContext(ctx, &sessions, query, helperID); err != nil {
		return nil, wrap(err)
	}
	return sessions, nil
}

func (r *emergencyRepository) CountOpen(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM emergencies WHERE active`); err != nil {
		return 0, wrap(err)
	}
	return n, nil
}
