package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/gdugdh24/rakshak-backend/internal/health"
	"github.com/gdugdh24/rakshak-backend/internal/repository"
	"github.com/gdugdh24/rakshak-backend/internal/repository/mock"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	leaderboardSize     = 10
	communityListSize   = 10
	leaderboardCacheTTL = 30 * time.Second
	statsCacheTTL       = 60 * time.Second
	statsCacheKey       = "community:stats"
)

// Shown until response times are measured per session.
const (
	defaultAvgResponseTime = "3.2m"
	defaultSafetyIndex     = "94%"
)

type ProfileUseCase struct {
	userRepo      repository.UserRepository
	emergencyRepo repository.EmergencyRepository
	breaker       *health.Breaker
	cache         *gocache.Cache
	validate      *validator.Validate
	logger        *zap.Logger
}

func NewProfileUseCase(
	userRepo repository.UserRepository,
	emergencyRepo repository.EmergencyRepository,
	breaker *health.Breaker,
	logger *zap.Logger,
) *ProfileUseCase {
	return &ProfileUseCase{
		userRepo:      userRepo,
		emergencyRepo: emergencyRepo,
		breaker:       breaker,
		cache:         gocache.New(leaderboardCacheTTL, time.Minute),
		validate:      validator.New(),
		logger:        logger,
	}
}

// UpdateProfileRequest represents profile update request. AUTHORITY is not
// self-assignable.
type UpdateProfileRequest struct {
	Name          *string               `json:"name" binding:"omitempty,min=1,max=100"`
	PhotoURL      *string               `json:"photo_url" binding:"omitempty,url"`
	Phone         *string               `json:"phone" binding:"omitempty,max=32"`
	Role          *domain.UserRole      `json:"role" binding:"omitempty,oneof=USER HELPER"`
	IsAvailable   *bool                 `json:"is_available"`
	SafeLocations *domain.SafeLocations `json:"safe_locations" binding:"omitempty,max=20"`
}

func (r *UpdateProfileRequest) Patch() domain.UserPatch {
	return domain.UserPatch{
		Name:          r.Name,
		PhotoURL:      r.PhotoURL,
		Phone:         r.Phone,
		Role:          r.Role,
		IsAvailable:   r.IsAvailable,
		SafeLocations: r.SafeLocations,
	}
}

// offline reports whether the call should be served from the simulated
// dataset, tripping the breaker when err is an outage.
func (uc *ProfileUseCase) offline(err error, op string) bool {
	if uc.breaker.Observe(err) {
		uc.logger.Warn("profile store unavailable", zap.String("op", op), zap.Error(err))
		return true
	}
	return false
}

// GetOrCreateProfile returns the stored profile for identity, creating it
// with defaults when missing.
func (uc *ProfileUseCase) GetOrCreateProfile(ctx context.Context, identity domain.AuthIdentity) (*domain.User, error) {
	if identity.UID == "" {
		return nil, domain.ErrInvalidInput
	}
	if uc.breaker.Compromised() {
		return mock.Profile(identity), nil
	}

	user, err := uc.userRepo.GetByID(ctx, identity.UID)
	if err == nil {
		return user, nil
	}
	if uc.offline(err, "get_or_create") {
		return mock.Profile(identity), nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	user = NewDefaultUser(identity)
	if err := uc.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return uc.userRepo.GetByID(ctx, identity.UID)
		}
		if uc.offline(err, "create") {
			return mock.Profile(identity), nil
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	uc.logger.Info("profile created", zap.String("user_id", user.ID))
	return user, nil
}

// NewDefaultUser builds the profile of a first-time user.
func NewDefaultUser(identity domain.AuthIdentity) *domain.User {
	name := identity.DisplayName
	if name == "" {
		name = domain.DefaultUserName
	}
	photo := identity.PhotoURL
	if photo == "" {
		photo = domain.AvatarURL(name)
	}
	var email *string
	if identity.Email != "" {
		e := strings.ToLower(identity.Email)
		email = &e
	}
	return &domain.User{
		ID:                identity.UID,
		Email:             email,
		Name:              name,
		PhotoURL:          photo,
		Role:              domain.RoleUser,
		Phone:             identity.PhoneNumber,
		IsPhoneVerified:   identity.PhoneNumber != "",
		Score:             0,
		Rank:              domain.DefaultRank,
		TrustRating:       100,
		Badges:            []string{},
		IsAvailable:       true,
		BlockedUsers:      []string{},
		EmergencyContacts: domain.Contacts{},
		SafeLocations:     domain.SafeLocations{},
	}
}

func (uc *ProfileUseCase) GetProfile(ctx context.Context, id string) (*domain.User, error) {
	if uc.breaker.Compromised() {
		return mock.User(id), nil
	}
	user, err := uc.userRepo.GetByID(ctx, id)
	if uc.offline(err, "get") {
		return mock.User(id), nil
	}
	return user, err
}

// UpdateProfile merges patch into the profile. Concurrent updates are last
// write wins per field.
func (uc *ProfileUseCase) UpdateProfile(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	if patch.Role != nil && *patch.Role == domain.RoleAuthority {
		return nil, domain.ErrInvalidInput
	}
	if uc.breaker.Compromised() {
		return applyPatch(mock.User(id), patch), nil
	}
	user, err := uc.userRepo.Update(ctx, id, patch)
	if uc.offline(err, "update") {
		return applyPatch(mock.User(id), patch), nil
	}
	if err != nil {
		return nil, err
	}
	uc.cache.Flush()
	return user, nil
}

func applyPatch(u *domain.User, p domain.UserPatch) *domain.User {
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
		u.SafeLocations = *p.SafeLocations
	}
	return u
}

func (uc *ProfileUseCase) SetAvailability(ctx context.Context, id string, available bool) (*domain.User, error) {
	return uc.UpdateProfile(ctx, id, domain.UserPatch{IsAvailable: &available})
}

// AwardPoints adds a non-negative number of points. The rank only ever
// moves up.
func (uc *ProfileUseCase) AwardPoints(ctx context.Context, id string, points int) (*domain.User, error) {
	if points < 0 {
		return nil, domain.ErrInvalidInput
	}
	if uc.breaker.Compromised() {
		return simulatedAward(id, points), nil
	}
	user, err := uc.userRepo.AwardPoints(ctx, id, points)
	if uc.offline(err, "award_points") {
		return simulatedAward(id, points), nil
	}
	if err != nil {
		return nil, err
	}
	uc.cache.Delete(leaderboardKey("weekly"))
	uc.cache.Delete(leaderboardKey("all-time"))
	uc.logger.Info("points awarded",
		zap.String("user_id", id), zap.Int("points", points),
		zap.Int("score", user.Score), zap.String("rank", user.Rank))
	return user, nil
}

func simulatedAward(id string, points int) *domain.User {
	u := mock.User(id)
	u.Score += points
	u.Rank = domain.PromoteRank(u.Rank, u.Score)
	u.HelpCount++
	return u
}

func (uc *ProfileUseCase) UpdateLocation(ctx context.Context, id string, point domain.GeoPoint) error {
	if !point.Valid() {
		return domain.ErrInvalidInput
	}
	if uc.breaker.Compromised() {
		return nil
	}
	err := uc.userRepo.UpdateLocation(ctx, id, point)
	if uc.offline(err, "update_location") {
		return nil
	}
	return err
}

// AddEmergencyContact stores contact, replacing one with the same id.
func (uc *ProfileUseCase) AddEmergencyContact(ctx context.Context, id string, contact domain.Contact) (*domain.User, error) {
	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	if err := uc.validate.Struct(contact); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	return uc.editContacts(ctx, id, func(contacts domain.Contacts) domain.Contacts {
		out := make(domain.Contacts, 0, len(contacts)+1)
		for _, c := range contacts {
			if c.ID != contact.ID {
				out = append(out, c)
			}
		}
		return append(out, contact)
	})
}

func (uc *ProfileUseCase) RemoveEmergencyContact(ctx context.Context, id, contactID string) (*domain.User, error) {
	return uc.editContacts(ctx, id, func(contacts domain.Contacts) domain.Contacts {
		out := make(domain.Contacts, 0, len(contacts))
		for _, c := range contacts {
			if c.ID != contactID {
				out = append(out, c)
			}
		}
		return out
	})
}

func (uc *ProfileUseCase) editContacts(ctx context.Context, id string, edit func(domain.Contacts) domain.Contacts) (*domain.User, error) {
	if uc.breaker.Compromised() {
		u := mock.User(id)
		u.EmergencyContacts = edit(u.EmergencyContacts)
		return u, nil
	}

	user, err := uc.userRepo.GetByID(ctx, id)
	if uc.offline(err, "edit_contacts") {
		u := mock.User(id)
		u.EmergencyContacts = edit(u.EmergencyContacts)
		return u, nil
	}
	if err != nil {
		return nil, err
	}

	user.EmergencyContacts = edit(user.EmergencyContacts)
	err = uc.userRepo.SetEmergencyContacts(ctx, id, user.EmergencyContacts)
	if uc.offline(err, "edit_contacts") {
		return user, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func leaderboardKey(period string) string {
	return "leaderboard:" + period
}

// Leaderboard returns at most ten profiles ordered by score descending.
// Both periods rank by lifetime score.
func (uc *ProfileUseCase) Leaderboard(ctx context.Context, period string) ([]*domain.User, error) {
	if period == "" {
		period = "all-time"
	}
	if period != "weekly" && period != "all-time" {
		return nil, domain.ErrInvalidInput
	}
	if uc.breaker.Compromised() {
		return mock.Leaderboard(), nil
	}
	if cached, ok := uc.cache.Get(leaderboardKey(period)); ok {
		return cached.([]*domain.User), nil
	}

	users, err := uc.userRepo.TopByScore(ctx, leaderboardSize)
	if uc.offline(err, "leaderboard") {
		return mock.Leaderboard(), nil
	}
	if err != nil {
		return nil, err
	}
	uc.cache.Set(leaderboardKey(period), users, leaderboardCacheTTL)
	return users, nil
}

func (uc *ProfileUseCase) CommunityUsers(ctx context.Context) ([]*domain.User, error) {
	if uc.breaker.Compromised() {
		return mock.CommunityUsers(), nil
	}
	users, err := uc.userRepo.List(ctx, communityListSize)
	if uc.offline(err, "community_users") {
		return mock.CommunityUsers(), nil
	}
	return users, err
}

func (uc *ProfileUseCase) CommunityStats(ctx context.Context) (domain.CommunityStats, error) {
	if uc.breaker.Compromised() {
		return mock.CommunityStats(), nil
	}
	if cached, ok := uc.cache.Get(statsCacheKey); ok {
		return cached.(domain.CommunityStats), nil
	}

	stats := domain.CommunityStats{
		AvgResponseTime: defaultAvgResponseTime,
		SafetyIndex:     defaultSafetyIndex,
	}
	var err error
	if stats.TotalLivesImpacted, err = uc.userRepo.SumHelpCount(ctx); err != nil {
		return uc.statsFallback(err)
	}
	if stats.ActiveHelpers, err = uc.userRepo.CountAvailable(ctx); err != nil {
		return uc.statsFallback(err)
	}
	if stats.OpenEmergencies, err = uc.emergencyRepo.CountOpen(ctx); err != nil {
		return uc.statsFallback(err)
	}

	uc.cache.Set(statsCacheKey, stats, statsCacheTTL)
	return stats, nil
}

func (uc *ProfileUseCase) statsFallback(err error) (domain.CommunityStats, error) {
	if uc.offline(err, "community_stats") {
		return mock.CommunityStats(), nil
	}
	return domain.CommunityStats{}, err
}

// Badges returns the full catalog with the user's earned badges marked.
func (uc *ProfileUseCase) Badges(ctx context.Context, id string) ([]domain.Badge, error) {
	user, err := uc.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.BadgesFor(user.Badges), nil
}
