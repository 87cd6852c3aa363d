package domain

import "time"

// Relationship is a directed follow edge. Its ID is "{follower}_{following}",
// so there is at most one edge per ordered pair.
type Relationship struct {
	ID          string    `json:"id" db:"id"`
	FollowerID  string    `json:"follower_id" db:"follower_id"`
	FollowingID string    `json:"following_id" db:"following_id"`
	IsPriority  bool      `json:"is_priority" db:"is_priority"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

func RelationshipID(followerID, followingID string) string {
	return followerID + "_" + followingID
}

// Connection is a user as seen from the other end of an edge.
type Connection struct {
	ID          string  `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Role        string  `json:"role" db:"rank"`
	Score       int     `json:"score" db:"score"`
	IsPriority  bool    `json:"is_priority" db:"is_priority"`
	Avatar      string  `json:"avatar" db:"photo_url"`
	TrustRating float64 `json:"trust_rating" db:"trust_rating"`
}
