// Package memory implements the repository interfaces on in-process maps.
// It backs the usecase and handler tests and keeps the same transactional
// guarantees as the Postgres implementation by serializing every call.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/gdugdh24/rakshak-backend/internal/repository"
)

type Store struct {
	mu          sync.Mutex
	users       map[string]*domain.User
	rels        map[string]*domain.Relationship
	emergencies map[string]*domain.EmergencySession
	declines    map[string]map[string]bool
	sessions    map[string]*domain.Session

	subsMu sync.Mutex
	subs   []*subscriber

	// err, when set, is returned by every call.
	err error
}

func NewStore() *Store {
	return &Store{
		users:       map[string]*domain.User{},
		rels:        map[string]*domain.Relationship{},
		emergencies: map[string]*domain.EmergencySession{},
		declines:    map[string]map[string]bool{},
		sessions:    map[string]*domain.Session{},
	}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *Store) lock() error {
	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Users() repository.UserRepository                 { return (*userRepo)(s) }
func (s *Store) Relationships() repository.RelationshipRepository { return (*relRepo)(s) }
func (s *Store) Emergencies() repository.EmergencyRepository      { return (*emergencyRepo)(s) }
func (s *Store) Sessions() repository.SessionRepository           { return (*sessionRepo)(s) }
func (s *Store) Events() repository.EmergencyEventBus             { return (*eventBus)(s) }

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.Badges = append([]string{}, u.Badges...)
	c.BlockedUsers = append([]string{}, u.BlockedUsers...)
	c.EmergencyContacts = append(domain.Contacts{}, u.EmergencyContacts...)
	c.SafeLocations = append(domain.SafeLocations{}, u.SafeLocations...)
	return &c
}

type userRepo Store

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return domain.ErrUserAlreadyExists
	}
	if user.Email != nil {
		for _, u := range s.users {
			if u.Email != nil && strings.EqualFold(*u.Email, *user.Email) {
				return domain.ErrUserAlreadyExists
			}
		}
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email != nil && strings.EqualFold(*u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *userRepo) Update(ctx context.Context, id string, p domain.UserPatch) (*domain.User, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.PhotoURL != nil {
		u.PhotoURL = *p.PhotoURL
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsAvailable != nil {
		u.IsAvailable = *p.IsAvailable
	}
	if p.SafeLocations != nil {
		u.SafeLocations = append(domain.SafeLocations{}, (*p.SafeLocations)...)
	}
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

func (r *userRepo) AwardPoints(ctx context.Context, id string, points int) (*domain.User, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Score += points
	u.Rank = domain.PromoteRank(u.Rank, u.Score)
	u.HelpCount++
	return cloneUser(u), nil
}

func (r *userRepo) UpdateLocation(ctx context.Context, id string, point domain.GeoPoint) error {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	lat, lng, now := point.Lat, point.Lng, time.Now()
	u.LocationLat, u.LocationLng, u.LastActive = &lat, &lng, &now
	return nil
}

func (r *userRepo) SetEmergencyContacts(ctx context.Context, id string, contacts domain.Contacts) error {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.EmergencyContacts = append(domain.Contacts{}, contacts...)
	return nil
}

func (r *userRepo) sorted(less func(a, b *domain.User) bool, limit int) []*domain.User {
	s := (*Store)(r)
	all := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, cloneUser(u))
	}
	sort.Slice(all, func(i, j int) bool { return less(all[i], all[j]) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

func (r *userRepo) TopByScore(ctx context.Context, limit int) ([]*domain.User, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return r.sorted(func(a, b *domain.User) bool {
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.ID < b.ID
	}, limit), nil
}

func (r *userRepo) List(ctx context.Context, limit int) ([]*domain.User, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return r.sorted(func(a, b *domain.User) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	}, limit), nil
}

func (r *userRepo) CountAvailable(ctx context.Context) (int, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.users {
		if u.IsAvailable {
			n++
		}
	}
	return n, nil
}

func (r *userRepo) SumHelpCount(ctx context.Context) (int, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.users {
		n += u.HelpCount
	}
	return n, nil
}
