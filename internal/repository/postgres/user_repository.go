package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/gdugdh24/rakshak-backend/internal/repository"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, email, name, photo_url, role, phone, is_phone_verified,
	score, rank, trust_rating, badges, followers, following, is_available,
	location_lat, location_lng, last_active, blocked_users,
	emergency_contacts, safe_locations, help_count, password_hash,
	created_at, updated_at`

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (
			id, email, name, photo_url, role, phone, is_phone_verified,
			score, rank, trust_rating, badges, is_available,
			blocked_users, emergency_contacts, safe_locations, help_count, password_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(
		ctx, query,
		user.ID, user.Email, user.Name, user.PhotoURL, user.Role, user.Phone, user.IsPhoneVerified,
		user.Score, user.Rank, user.TrustRating, user.Badges, user.IsAvailable,
		user.BlockedUsers, user.EmergencyContacts, user.SafeLocations, user.HelpCount, user.PasswordHash,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserAlreadyExists
		}
		return wrap(err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *userRepository) getOne(ctx context.Context, query string, args ...interface{}) (*domain.User, error) {
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, wrap(err)
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	if patch.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	sets := []string{}
	args := []interface{}{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.PhotoURL != nil {
		add("photo_url", *patch.PhotoURL)
	}
	if patch.Phone != nil {
		add("phone", *patch.Phone)
	}
	if patch.Role != nil {
		add("role", *patch.Role)
	}
	if patch.IsAvailable != nil {
		add("is_available", *patch.IsAvailable)
	}
	if patch.SafeLocations != nil {
		add("safe_locations", *patch.SafeLocations)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE users SET %s, updated_at = CURRENT_TIMESTAMP WHERE id = $%d RETURNING `+userColumns,
		strings.Join(sets, ", "), len(args),
	)
	return r.getOne(ctx, query, args...)
}

func (r *userRepository) AwardPoints(ctx context.Context, id string, points int) (*domain.User, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, wrap(err)
	}
	defer func() { _ = tx.Rollback() }()

	var user domain.User
	err = tx.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, wrap(err)
	}

	score := user.Score + points
	rank := domain.PromoteRank(user.Rank, score)

	var updated domain.User
	err = tx.GetContext(ctx, &updated, `
		UPDATE users
		SET score = $1, rank = $2, help_count = help_count + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
		RETURNING `+userColumns,
		score, rank, id,
	)
	if err != nil {
		return nil, wrap(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrap(err)
	}
	return &updated, nil
}

func (r *userRepository) UpdateLocation(ctx context.Context, id string, point domain.GeoPoint) error {
	query := `
		UPDATE users
		SET location_lat = $1, location_lng = $2, last_active = CURRENT_TIMESTAMP
		WHERE id = $3
	`
	return r.execOne(ctx, query, point.Lat, point.Lng, id)
}

func (r *userRepository) SetEmergencyContacts(ctx context.Context, id string, contacts domain.Contacts) error {
	query := `UPDATE users SET emergency_contacts = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	return r.execOne(ctx, query, contacts, id)
}

func (r *userRepository) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
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

func (r *userRepository) TopByScore(ctx context.Context, limit int) ([]*domain.User, error) {
	users := []*domain.User{}
	query := `SELECT ` + userColumns + ` FROM users ORDER BY score DESC, id LIMIT $1`
	if err := r.db.SelectContext(ctx, &users, query, limit); err != nil {
		return nil, wrap(err)
	}
	return users, nil
}

func (r *userRepository) List(ctx context.Context, limit int) ([]*domain.User, error) {
	users := []*domain.User{}
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at LIMIT $1`
	if err := r.db.SelectContext(ctx, &users, query, limit); err != nil {
		return nil, wrap(err)
	}
	return users, nil
}

func (r *userRepository) CountAvailable(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE is_available`); err != nil {
		return 0, wrap(err)
	}
	return n, nil
}

func (r *userRepository) SumHelpCount(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COALESCE(SUM(help_count), 0) FROM users`); err != nil {
		return 0, wrap(err)
	}
	return n, nil
}
