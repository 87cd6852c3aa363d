package profile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/gdugdh24/rakshak-backend/internal/health"
	"github.com/gdugdh24/rakshak-backend/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newUseCase(t *testing.T) (*ProfileUseCase, *memory.Store, *health.Breaker) {
	t.Helper()
	store := memory.NewStore()
	breaker := health.NewBreaker(time.Minute, zap.NewNop())
	return NewProfileUseCase(store.Users(), store.Emergencies(), breaker, zap.NewNop()), store, breaker
}

var outage = fmt.Errorf("%w: connection refused", domain.ErrBackendUnavailable)

func TestGetOrCreateProfileDefaults(t *testing.T) {
	uc, _, _ := newUseCase(t)
	ctx := context.Background()

	u, err := uc.GetOrCreateProfile(ctx, domain.AuthIdentity{UID: "uid-1"})
	require.NoError(t, err)

	assert.Equal(t, "Guardian", u.Name)
	assert.Equal(t, "https://ui-avatars.com/api/?name=Guardian&background=random", u.PhotoURL)
	assert.Equal(t, 0, u.Score)
	assert.Equal(t, "Bronze Helper", u.Rank)
	assert.Equal(t, 100.0, u.TrustRating)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.False(t, u.IsPhoneVerified)
	assert.False(t, u.IsOfflineMode)

	again, err := uc.GetOrCreateProfile(ctx, domain.AuthIdentity{UID: "uid-1", DisplayName: "Other"})
	require.NoError(t, err)
	assert.Equal(t, "Guardian", again.Name, "existing profile is returned as stored")
}

func TestGetOrCreateProfilePhoneVerified(t *testing.T) {
	uc, _, _ := newUseCase(t)

	u, err := uc.GetOrCreateProfile(context.Background(), domain.AuthIdentity{UID: "uid-2", DisplayName: "Asha", PhoneNumber: "+911"})
	require.NoError(t, err)
	assert.True(t, u.IsPhoneVerified)
	assert.Equal(t, "Asha", u.Name)
}

func TestGetOrCreateProfileRequiresUID(t *testing.T) {
	uc, _, _ := newUseCase(t)

	_, err := uc.GetOrCreateProfile(context.Background(), domain.AuthIdentity{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOutageSwitchesToSimulatedProfile(t *testing.T) {
	uc, store, breaker := newUseCase(t)
	store.FailWith(outage)

	start := time.Now()
	u, err := uc.GetOrCreateProfile(context.Background(), domain.AuthIdentity{UID: "uid-3", DisplayName: "Ravi"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	assert.True(t, breaker.Compromised())
	assert.True(t, u.IsOfflineMode)
	assert.Equal(t, "uid-3", u.ID)
	assert.Equal(t, "Ravi", u.Name)

	// Later calls short-circuit without touching the store.
	store.FailWith(nil)
	u, err = uc.GetProfile(context.Background(), "uid-3")
	require.NoError(t, err)
	assert.True(t, u.IsOfflineMode)
}

func TestAwardPointsRankNeverDrops(t *testing.T) {
	uc, store, _ := newUseCase(t)
	ctx := context.Background()
	require.NoError(t, store.Users().Create(ctx, &domain.User{ID: "h", Name: "H", Rank: domain.DefaultRank}))

	steps := []struct {
		points int
		score  int
		rank   string
	}{
		{0, 0, "Bronze Helper"},
		{499, 499, "Bronze Helper"},
		{1, 500, "Silver Helper"},
		{1500, 2000, "Gold Helper"},
		{2999, 4999, "Gold Helper"},
		{1, 5000, "Platinum Helper"},
		{0, 5000, "Platinum Helper"},
	}
	prevScore := 0
	for i, step := range steps {
		u, err := uc.AwardPoints(ctx, "h", step.points)
		require.NoError(t, err)
		assert.Equal(t, step.score, u.Score, "step %d", i)
		assert.Equal(t, step.rank, u.Rank, "step %d", i)
		assert.GreaterOrEqual(t, u.Score, prevScore)
		assert.Equal(t, i+1, u.HelpCount)
		prevScore = u.Score
	}
}

func TestAwardPointsRejectsNegative(t *testing.T) {
	uc, _, _ := newUseCase(t)

	_, err := uc.AwardPoints(context.Background(), "h", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAwardPointsKeepsHigherCustomRank(t *testing.T) {
	uc, store, _ := newUseCase(t)
	ctx := context.Background()
	require.NoError(t, store.Users().Create(ctx, &domain.User{ID: "h", Name: "H", Score: 6000, Rank: "Platinum Helper"}))

	u, err := uc.AwardPoints(ctx, "h", 50)
	require.NoError(t, err)
	assert.Equal(t, "Platinum Helper", u.Rank)
}

func TestLeaderboardOrderAndSize(t *testing.T) {
	uc, store, _ := newUseCase(t)
	ctx := context.Background()
	scores := map[string]int{"a": 10, "b": 300, "c": 50}
	for id, score := range scores {
		require.NoError(t, store.Users().Create(ctx, &domain.User{ID: id, Name: id, Score: score}))
	}

	top, err := uc.Leaderboard(ctx, "weekly")
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{top[0].ID, top[1].ID, top[2].ID})

	for i := 0; i < 12; i++ {
		require.NoError(t, store.Users().Create(ctx, &domain.User{ID: fmt.Sprintf("x%02d", i), Score: i}))
	}
	top, err = uc.Leaderboard(ctx, "all-time")
	require.NoError(t, err)
	assert.Len(t, top, 10)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Score, top[i].Score)
	}
}

func TestLeaderboardRejectsUnknownPeriod(t *testing.T) {
	uc, _, _ := newUseCase(t)

	_, err := uc.Leaderboard(context.Background(), "monthly")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLeaderboardSimulated(t *testing.T) {
	uc, _, breaker := newUseCase(t)
	breaker.Trip(outage)

	top, err := uc.Leaderboard(context.Background(), "weekly")
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "Kabir Singh", top[0].Name)
	assert.Equal(t, 8400, top[0].Score)
}

func TestEmergencyContacts(t *testing.T) {
	uc, store, _ := newUseCase(t)
	ctx := context.Background()
	require.NoError(t, store.Users().Create(ctx, &domain.User{ID: "u", Name: "U"}))

	u, err := uc.AddEmergencyContact(ctx, "u", domain.Contact{Name: "Mom", Phone: "+91 1", Relation: "Parent"})
	require.NoError(t, err)
	require.Len(t, u.EmergencyContacts, 1)
	contactID := u.EmergencyContacts[0].ID
	assert.NotEmpty(t, contactID)

	_, err = uc.AddEmergencyContact(ctx, "u", domain.Contact{Name: "", Phone: "+91 2"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	u, err = uc.RemoveEmergencyContact(ctx, "u", contactID)
	require.NoError(t, err)
	assert.Empty(t, u.EmergencyContacts)

	stored, _ := store.Users().GetByID(ctx, "u")
	assert.Empty(t, stored.EmergencyContacts)
}

func TestUpdateLocationValidates(t *testing.T) {
	uc, _, _ := newUseCase(t)

	err := uc.UpdateLocation(context.Background(), "u", domain.GeoPoint{Lat: 91, Lng: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateProfileRejectsAuthorityRole(t *testing.T) {
	uc, _, _ := newUseCase(t)
	ctx := context.Background()
	_, err := uc.GetOrCreateProfile(ctx, domain.AuthIdentity{UID: "u"})
	require.NoError(t, err)

	authority := domain.RoleAuthority
	_, err = uc.UpdateProfile(ctx, "u", domain.UserPatch{Role: &authority})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	helper := domain.RoleHelper
	u, err := uc.UpdateProfile(ctx, "u", domain.UserPatch{Role: &helper})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleHelper, u.Role)
}

func TestCommunityStats(t *testing.T) {
	uc, store, _ := newUseCase(t)
	ctx := context.Background()
	require.NoError(t, store.Users().Create(ctx, &domain.User{ID: "a", IsAvailable: true, HelpCount: 3}))
	require.NoError(t, store.Users().Create(ctx, &domain.User{ID: "b", HelpCount: 2}))

	stats, err := uc.CommunityStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalLivesImpacted)
	assert.Equal(t, 1, stats.ActiveHelpers)
	assert.Equal(t, "3.2m", stats.AvgResponseTime)
}

func TestBadges(t *testing.T) {
	uc, store, _ := newUseCase(t)
	ctx := context.Background()
	require.NoError(t, store.Users().Create(ctx, &domain.User{ID: "u", Badges: []string{"life_saver"}}))

	badges, err := uc.Badges(ctx, "u")
	require.NoError(t, err)
	require.Len(t, badges, len(domain.BadgeCatalog))
	for _, b := range badges {
		assert.Equal(t, b.ID == "life_saver", b.Earned, b.ID)
	}
}
