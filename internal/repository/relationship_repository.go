package repository

import (
	"context"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
)

// RelationshipRepository keeps follow edges and the denormalized follower/
// following counters on users in sync.
type RelationshipRepository interface {
	// Follow creates the edge and reports whether it was new. Counters only
	// move when it was.
	Follow(ctx context.Context, followerID, followingID string) (bool, error)
	// Unfollow deletes the edge and reports whether it existed.
	Unfollow(ctx context.Context, followerID, followingID string) (bool, error)
	Get(ctx context.Context, followerID, followingID string) (*domain.Relationship, error)
	SetPriority(ctx context.Context, followerID, followingID string, priority bool) error
	// Block removes both edges between the users and adds target to the
	// blocked set of userID.
	Block(ctx context.Context, userID, targetID string) error
	Unblock(ctx context.Context, userID, targetID string) error
	ListFollowing(ctx context.Context, userID string) ([]domain.Connection, error)
	ListFollowers(ctx context.Context, userID string) ([]domain.Connection, error)
	// FollowerIDs returns the followers of userID, priority edges first.
	FollowerIDs(ctx context.Context, userID string) ([]string, error)
}
