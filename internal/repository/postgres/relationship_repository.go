package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/gdugdh24/rakshak-backend/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type relationshipRepository struct {
	db *sqlx.DB
}

func NewRelationshipRepository(db *sqlx.DB) repository.RelationshipRepository {
	return &relationshipRepository{db: db}
}

type edge struct {
	FollowerID  string `db:"follower_id"`
	FollowingID string `db:"following_id"`
}

func (r *relationshipRepository) Follow(ctx context.Context, followerID, followingID string) (bool, error) {
	var created bool
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO relationships (id, follower_id, following_id, is_priority)
			VALUES ($1, $2, $3, FALSE)
			ON CONFLICT (id) DO NOTHING`,
			domain.RelationshipID(followerID, followingID), followerID, followingID,
		)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		created = true
		return adjustCounters(ctx, tx, followerID, followingID, 1)
	})
	return created, err
}

func (r *relationshipRepository) Unfollow(ctx context.Context, followerID, followingID string) (bool, error) {
	var deleted bool
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM relationships WHERE id = $1`,
			domain.RelationshipID(followerID, followingID),
		)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		deleted = true
		return adjustCounters(ctx, tx, followerID, followingID, -1)
	})
	return deleted, err
}

func (r *relationshipRepository) Get(ctx context.Context, followerID, followingID string) (*domain.Relationship, error) {
	var rel domain.Relationship
	query := `SELECT id, follower_id, following_id, is_priority, created_at FROM relationships WHERE id = $1`
	if err := r.db.GetContext(ctx, &rel, query, domain.RelationshipID(followerID, followingID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRelationshipNotFound
		}
		return nil, wrap(err)
	}
	return &rel, nil
}

func (r *relationshipRepository) SetPriority(ctx context.Context, followerID, followingID string, priority bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE relationships SET is_priority = $1 WHERE id = $2`,
		priority, domain.RelationshipID(followerID, followingID),
	)
	if err != nil {
		return wrap(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return wrap(err)
	}
	if rows == 0 {
		return domain.ErrRelationshipNotFound
	}
	return nil
}

func (r *relationshipRepository) Block(ctx context.Context, userID, targetID string) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		var removed []edge
		err := tx.SelectContext(ctx, &removed, `
			DELETE FROM relationships WHERE id IN ($1, $2)
			RETURNING follower_id, following_id`,
			domain.RelationshipID(userID, targetID), domain.RelationshipID(targetID, userID),
		)
		if err != nil {
			return err
		}
		for _, e := range removed {
			if err := adjustCounters(ctx, tx, e.FollowerID, e.FollowingID, -1); err != nil {
				return err
			}
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE users
			SET blocked_users = CASE WHEN $2 = ANY(blocked_users) THEN blocked_users
			                         ELSE array_append(blocked_users, $2) END,
			    updated_at = CURRENT_TIMESTAMP
			WHERE id = $1`,
			userID, targetID,
		)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrUserNotFound
		}
		return nil
	})
}

func (r *relationshipRepository) Unblock(ctx context.Context, userID, targetID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET blocked_users = array_remove(blocked_users, $2), updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`,
		userID, targetID,
	)
	if err != nil {
		return wrap(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return wrap(err)
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *relationshipRepository) ListFollowing(ctx context.Context, userID string) ([]domain.Connection, error) {
	conns := []domain.Connection{}
	query := `
		SELECT u.id, u.name, u.rank, u.score, r.is_priority, u.photo_url, u.trust_rating
		FROM relationships r
		JOIN users u ON u.id = r.following_id
		WHERE r.follower_id = $1
		ORDER BY r.is_priority DESC, r.created_at
	`
	if err := r.db.SelectContext(ctx, &conns, query, userID); err != nil {
		return nil, wrap(err)
	}
	return conns, nil
}

// ListFollowers never reports priority; it belongs to the follower's side.
func (r *relationshipRepository) ListFollowers(ctx context.Context, userID string) ([]domain.Connection, error) {
	conns := []domain.Connection{}
	query := `
		SELECT u.id, u.name, u.rank, u.score, FALSE AS is_priority, u.photo_url, u.trust_rating
		FROM relationships r
		JOIN users u ON u.id = r.follower_id
		WHERE r.following_id = $1
		ORDER BY r.created_at
	`
	if err := r.db.SelectContext(ctx, &conns, query, userID); err != nil {
		return nil, wrap(err)
	}
	return conns, nil
}

func (r *relationshipRepository) FollowerIDs(ctx context.Context, userID string) ([]string, error) {
	var ids pq.StringArray
	query := `
		SELECT COALESCE(array_agg(follower_id ORDER BY is_priority DESC, created_at), '{}')
		FROM relationships
		WHERE following_id = $1
	`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&ids); err != nil {
		return nil, wrap(err)
	}
	return ids, nil
}

func (r *relationshipRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if isForeignKeyViolation(err) {
			return domain.ErrUserNotFound
		}
		return wrap(err)
	}
	return wrap(tx.Commit())
}

// adjustCounters moves the following count of followerID and the followers
// count of followingID by delta, never below zero.
func adjustCounters(ctx context.Context, tx *sqlx.Tx, followerID, followingID string, delta int) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET following = GREATEST(following + $1, 0) WHERE id = $2`,
		delta, followerID,
	); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET followers = GREATEST(followers + $1, 0) WHERE id = $2`,
		delta, followingID,
	)
	return err
}
