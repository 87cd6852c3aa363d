package memory

import (
	"context"
	"sort"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
)

type relRepo Store

func (r *relRepo) adjust(followerID, followingID string, delta int) {
	s := (*Store)(r)
	if u, ok := s.users[followerID]; ok {
		u.Following = max0(u.Following + delta)
	}
	if u, ok := s.users[followingID]; ok {
		u.Followers = max0(u.Followers + delta)
	}
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func (r *relRepo) Follow(ctx context.Context, followerID, followingID string) (bool, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.mu.Unlock()
	if _, ok := s.users[followerID]; !ok {
		return false, domain.ErrUserNotFound
	}
	if _, ok := s.users[followingID]; !ok {
		return false, domain.ErrUserNotFound
	}
	id := domain.RelationshipID(followerID, followingID)
	if _, ok := s.rels[id]; ok {
		return false, nil
	}
	s.rels[id] = &domain.Relationship{ID: id, FollowerID: followerID, FollowingID: followingID, CreatedAt: time.Now()}
	r.adjust(followerID, followingID, 1)
	return true, nil
}

func (r *relRepo) Unfollow(ctx context.Context, followerID, followingID string) (bool, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.mu.Unlock()
	return r.unfollowLocked(followerID, followingID), nil
}

func (r *relRepo) unfollowLocked(followerID, followingID string) bool {
	s := (*Store)(r)
	id := domain.RelationshipID(followerID, followingID)
	if _, ok := s.rels[id]; !ok {
		return false
	}
	delete(s.rels, id)
	r.adjust(followerID, followingID, -1)
	return true
}

func (r *relRepo) Get(ctx context.Context, followerID, followingID string) (*domain.Relationship, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	rel, ok := s.rels[domain.RelationshipID(followerID, followingID)]
	if !ok {
		return nil, domain.ErrRelationshipNotFound
	}
	c := *rel
	return &c, nil
}

func (r *relRepo) SetPriority(ctx context.Context, followerID, followingID string, priority bool) error {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	rel, ok := s.rels[domain.RelationshipID(followerID, followingID)]
	if !ok {
		return domain.ErrRelationshipNotFound
	}
	rel.IsPriority = priority
	return nil
}

func (r *relRepo) Block(ctx context.Context, userID, targetID string) error {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	r.unfollowLocked(userID, targetID)
	r.unfollowLocked(targetID, userID)
	if !u.HasBlocked(targetID) {
		u.BlockedUsers = append(u.BlockedUsers, targetID)
	}
	return nil
}

func (r *relRepo) Unblock(ctx context.Context, userID, targetID string) error {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	kept := u.BlockedUsers[:0]
	for _, id := range u.BlockedUsers {
		if id != targetID {
			kept = append(kept, id)
		}
	}
	u.BlockedUsers = kept
	return nil
}

func (r *relRepo) edges(match func(*domain.Relationship) bool) []*domain.Relationship {
	s := (*Store)(r)
	out := []*domain.Relationship{}
	for _, rel := range s.rels {
		if match(rel) {
			out = append(out, rel)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsPriority != out[j].IsPriority {
			return out[i].IsPriority
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *relRepo) connection(userID string, priority bool) (domain.Connection, bool) {
	u, ok := (*Store)(r).users[userID]
	if !ok {
		return domain.Connection{}, false
	}
	return domain.Connection{
		ID:          u.ID,
		Name:        u.Name,
		Role:        u.Rank,
		Score:       u.Score,
		IsPriority:  priority,
		Avatar:      u.PhotoURL,
		TrustRating: u.TrustRating,
	}, true
}

func (r *relRepo) ListFollowing(ctx context.Context, userID string) ([]domain.Connection, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	out := []domain.Connection{}
	for _, rel := range r.edges(func(rel *domain.Relationship) bool { return rel.FollowerID == userID }) {
		if c, ok := r.connection(rel.FollowingID, rel.IsPriority); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *relRepo) ListFollowers(ctx context.Context, userID string) ([]domain.Connection, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	out := []domain.Connection{}
	for _, rel := range r.edges(func(rel *domain.Relationship) bool { return rel.FollowingID == userID }) {
		if c, ok := r.connection(rel.FollowerID, false); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *relRepo) FollowerIDs(ctx context.Context, userID string) ([]string, error) {
	s := (*Store)(r)
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	ids := []string{}
	for _, rel := range r.edges(func(rel *domain.Relationship) bool { return rel.FollowingID == userID }) {
		ids = append(ids, rel.FollowerID)
	}
	return ids, nil
}
