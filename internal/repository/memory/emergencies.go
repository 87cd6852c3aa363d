package memory

import (
	"context"
	"sort"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
)

type emergencyRepo Store

func cloneEmergency(e *domain.EmergencySession) *domain.EmergencySession {
	c := *e
	return &c
}

func (r *emergencyRepo) Create(ctx context.Context, e *domain.EmergencySession) error {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if _, ok := s.users[e.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	s.emergencies[e.ID] = cloneEmergency(e)
	return nil
}

func (r *emergencyRepo) GetByID(ctx context.Context, id string) (*domain.EmergencySession, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	e, ok := s.emergencies[id]
	if !ok {
		return nil, domain.ErrEmergencyNotFound
	}
	return cloneEmergency(e), nil
}

func (r *emergencyRepo) Accept(ctx context.Context, id, helperID string, at time.Time) (*domain.EmergencySession, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	e, ok := s.emergencies[id]
	if !ok {
		return nil, domain.ErrEmergencyNotFound
	}
	if e.Status != domain.StatusRequested || !e.Active {
		if e.HelperID != nil {
			return nil, domain.ErrAlreadyAssigned
		}
		return nil, domain.ErrInvalidTransition
	}
	for _, other := range s.emergencies {
		if other.Active && other.Status == domain.StatusAccepted && other.HelperID != nil && *other.HelperID == helperID {
			return nil, domain.ErrHelperBusy
		}
	}
	h := helperID
	e.Status, e.HelperID, e.AcceptedTime = domain.StatusAccepted, &h, &at
	return cloneEmergency(e), nil
}

func (r *emergencyRepo) Resolve(ctx context.Context, id string, at time.Time) (*domain.EmergencySession, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	e, ok := s.emergencies[id]
	if !ok {
		return nil, domain.ErrEmergencyNotFound
	}
	if !e.Status.CanTransition(domain.StatusResolved) {
		return nil, domain.ErrInvalidTransition
	}
	e.Status, e.Active, e.EndTime = domain.StatusResolved, false, &at
	return cloneEmergency(e), nil
}

func (r *emergencyRepo) Classify(ctx context.Context, id string, t domain.EmergencyType, sev domain.Severity) (*domain.EmergencySession, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	e, ok := s.emergencies[id]
	if !ok {
		return nil, domain.ErrEmergencyNotFound
	}
	if !e.Active {
		return nil, domain.ErrInvalidTransition
	}
	e.Type, e.Severity = t, sev
	return cloneEmergency(e), nil
}

func (r *emergencyRepo) Decline(ctx context.Context, id, helperID string) error {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if _, ok := s.emergencies[id]; !ok {
		return domain.ErrEmergencyNotFound
	}
	if s.declines[id] == nil {
		s.declines[id] = map[string]bool{}
	}
	s.declines[id][helperID] = true
	return nil
}

func (r *emergencyRepo) ListOpen(ctx context.Context, helperID string) ([]*domain.EmergencySession, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	out := []*domain.EmergencySession{}
	for id, e := range s.emergencies {
		if !e.Active || e.Status != domain.StatusRequested || e.UserID == helperID || s.declines[id][helperID] {
			continue
		}
		out = append(out, cloneEmergency(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *emergencyRepo) CountOpen(ctx context.Context) (int, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.emergencies {
		if e.Active {
			n++
		}
	}
	return n, nil
}
