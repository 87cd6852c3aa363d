package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/delivery/http/handler"
	"github.com/gdugdh24/rakshak-backend/internal/delivery/http/middleware"
	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/gdugdh24/rakshak-backend/internal/health"
	"github.com/gdugdh24/rakshak-backend/internal/repository/memory"
	"github.com/gdugdh24/rakshak-backend/internal/usecase/assistant"
	"github.com/gdugdh24/rakshak-backend/internal/usecase/auth"
	"github.com/gdugdh24/rakshak-backend/internal/usecase/dispatch"
	"github.com/gdugdh24/rakshak-backend/internal/usecase/profile"
	"github.com/gdugdh24/rakshak-backend/internal/usecase/social"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	engine  *gin.Engine
	store   *memory.Store
	breaker *health.Breaker
	feed    *dispatch.Feed
}

func newTestEnv(t *testing.T, limits RateLimits) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	breaker := health.NewBreaker(time.Minute, logger)

	profiles := profile.NewProfileUseCase(store.Users(), store.Emergencies(), breaker, logger)
	authUC := auth.NewAuthUseCase(profiles, store.Users(), store.Sessions(), breaker, logger,
		testSecret, testSecret, time.Hour)
	soc := social.NewSocialUseCase(store.Relationships(), store.Users(), breaker, logger)
	disp := dispatch.NewDispatchUseCase(store.Emergencies(), store.Events(), profiles, soc, breaker, logger,
		domain.GeoPoint{Lat: 28.6139, Lng: 77.2090})
	feed := dispatch.NewFeed(store.Events(), disp, breaker, logger)
	t.Cleanup(feed.Stop)

	assistantUC, err := assistant.NewAssistantUseCase(nil, nil, disp, logger)
	require.NoError(t, err)

	if limits.SOS == "" {
		limits.SOS = "100-M"
	}
	if limits.Assistant == "" {
		limits.Assistant = "100-M"
	}

	router := NewRouter(Handlers{
		Auth:      handler.NewAuthHandler(authUC, profiles),
		Profile:   handler.NewProfileHandler(profiles),
		Social:    handler.NewSocialHandler(soc),
		Emergency: handler.NewEmergencyHandler(disp),
		Live:      handler.NewLiveHandler(feed, logger),
		Assistant: handler.NewAssistantHandler(assistantUC),
		System:    handler.NewSystemHandler(breaker),
	}, middleware.NewAuthMiddleware(authUC), breaker, limits, logger)

	engine, err := router.Setup()
	require.NoError(t, err)

	return &testEnv{engine: engine, store: store, breaker: breaker, feed: feed}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

// register creates an account and returns its token and user id.
func (e *testEnv) register(t *testing.T, email string) (string, string) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    email,
		"password": "correct-horse",
		"name":     strings.Split(email, "@")[0],
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res handler.AuthResponse
	var user domain.User
	res.User = &user
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotEmpty(t, res.Token)
	return res.Token, user.ID
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, RateLimits{})

	w := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, health.ModeLive, decode[map[string]string](t, w)["mode"])
	assert.Equal(t, health.ModeLive, w.Header().Get(middleware.BackendModeHeader))

	w = env.do(t, http.MethodHead, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rakshak_http_requests_total")
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	token, userID := env.register(t, "asha@example.com")

	w := env.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "asha@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "asha@example.com", "password": "wrong-horse"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "asha@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, decode[domain.User](t, w).ID)

	w = env.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEmergencyFlow(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	victim, _ := env.register(t, "victim@example.com")
	helper, helperID := env.register(t, "helper@example.com")
	other, _ := env.register(t, "other@example.com")

	w := env.do(t, http.MethodPost, "/api/v1/emergencies", victim, gin.H{"lat": 19.0760, "lng": 72.8777})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session := decode[domain.EmergencySession](t, w)
	assert.Equal(t, domain.StatusRequested, session.Status)
	assert.Equal(t, 19.0760, session.Lat)

	w = env.do(t, http.MethodGet, "/api/v1/emergencies/open?lat=28.6139&lng=77.2090", helper, nil)
	require.Equal(t, http.StatusOK, w.Code)
	open := decode[[]domain.EmergencySession](t, w)
	require.Len(t, open, 1)
	assert.Equal(t, session.ID, open[0].ID)
	require.NotNil(t, open[0].DistanceKm)
	assert.InDelta(t, 1148, *open[0].DistanceKm, 5)

	w = env.do(t, http.MethodGet, "/api/v1/emergencies/open", victim, nil)
	assert.Empty(t, decode[[]domain.EmergencySession](t, w))

	w = env.do(t, http.MethodPost, "/api/v1/emergencies/"+session.ID+"/accept", victim, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/emergencies/"+session.ID+"/accept", helper, nil)
	require.Equal(t, http.StatusOK, w.Code)
	accepted := decode[domain.EmergencySession](t, w)
	require.NotNil(t, accepted.HelperID)
	assert.Equal(t, helperID, *accepted.HelperID)

	w = env.do(t, http.MethodPost, "/api/v1/emergencies/"+session.ID+"/accept", other, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/emergencies/"+session.ID+"/classify", victim, gin.H{"type": "Medical", "severity": "HIGH"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.TypeMedical, decode[domain.EmergencySession](t, w).Type)

	w = env.do(t, http.MethodPost, "/api/v1/emergencies/"+session.ID+"/resolve", helper, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/emergencies/"+session.ID+"/resolve", victim, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.StatusResolved, decode[domain.EmergencySession](t, w).Status)

	w = env.do(t, http.MethodGet, "/api/v1/emergencies/"+session.ID, other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[domain.EmergencySession](t, w).Active)

	w = env.do(t, http.MethodGet, "/api/v1/profile/me", helper, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.PointsAcceptSOS+domain.PointsResolveSOS, decode[domain.User](t, w).Score)

	w = env.do(t, http.MethodGet, "/api/v1/emergencies/missing", other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClassifyIsRequesterOnly(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	victim, _ := env.register(t, "victim@example.com")
	helper, _ := env.register(t, "helper@example.com")
	stranger, _ := env.register(t, "stranger@example.com")

	w := env.do(t, http.MethodPost, "/api/v1/emergencies", victim, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[domain.EmergencySession](t, w).ID

	w = env.do(t, http.MethodPost, "/api/v1/emergencies/"+id+"/classify", stranger, gin.H{"type": "Harassment", "severity": "LOW"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/emergencies/"+id+"/accept", helper, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/emergencies/"+id+"/classify", helper, gin.H{"type": "Fire", "severity": "CRITICAL"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/emergencies/"+id, victim, nil)
	got := decode[domain.EmergencySession](t, w)
	assert.Equal(t, domain.TypeUncertain, got.Type)
	assert.Equal(t, domain.SeverityCritical, got.Severity)

	w = env.do(t, http.MethodPost, "/api/v1/emergencies/"+id+"/resolve", victim, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/profile/me", helper, nil)
	assert.Equal(t, domain.PointsAcceptSOS+domain.PointsResolveSOS, decode[domain.User](t, w).Score)
}

func TestOffDutyHelper(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	victim, _ := env.register(t, "victim@example.com")
	helper, _ := env.register(t, "helper@example.com")

	w := env.do(t, http.MethodPost, "/api/v1/emergencies", victim, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[domain.EmergencySession](t, w).ID

	w = env.do(t, http.MethodPut, "/api/v1/profile/me/availability", helper, gin.H{"is_available": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/v1/emergencies/open", helper, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]domain.EmergencySession](t, w))

	w = env.do(t, http.MethodPost, "/api/v1/emergencies/"+id+"/accept", helper, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPut, "/api/v1/profile/me/availability", helper, gin.H{"is_available": true})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/emergencies/"+id+"/accept", helper, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOtherUsersSeePublicProfile(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	asha, ashaID := env.register(t, "asha@example.com")
	ravi, _ := env.register(t, "ravi@example.com")

	w := env.do(t, http.MethodPut, "/api/v1/profile/me/location", asha, gin.H{"lat": 19.07, "lng": 72.87})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/api/v1/profile/me/contacts", asha, gin.H{"name": "Mom", "phone": "+911", "relation": "Parent"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	private := []string{"email", "phone", "location_lat", "location_lng", "emergency_contacts", "safe_locations", "blocked_users"}
	assertPublic := func(t *testing.T, profile map[string]interface{}) {
		t.Helper()
		for _, key := range private {
			assert.NotContains(t, profile, key)
		}
		for _, key := range []string{"id", "name", "photo_url", "rank", "score", "trust_rating", "badges"} {
			assert.Contains(t, profile, key)
		}
	}

	w = env.do(t, http.MethodGet, "/api/v1/profile/"+ashaID, ravi, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[map[string]interface{}](t, w)
	assert.Equal(t, ashaID, profile["id"])
	assertPublic(t, profile)

	for _, path := range []string{"/api/v1/community/leaderboard", "/api/v1/community/users"} {
		w = env.do(t, http.MethodGet, path, ravi, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		users := decode[[]map[string]interface{}](t, w)
		require.NotEmpty(t, users, path)
		for _, u := range users {
			assertPublic(t, u)
		}
	}

	w = env.do(t, http.MethodGet, "/api/v1/profile/me", asha, nil)
	me := decode[domain.User](t, w)
	assert.Len(t, me.EmergencyContacts, 1)
	require.NotNil(t, me.LocationLat)
}

func TestTriggerWithoutBody(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	victim, _ := env.register(t, "victim@example.com")

	w := env.do(t, http.MethodPost, "/api/v1/emergencies", victim, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session := decode[domain.EmergencySession](t, w)
	assert.Equal(t, 28.6139, session.Lat)
	assert.Equal(t, 77.2090, session.Lng)
}

func TestTriggerRateLimited(t *testing.T) {
	env := newTestEnv(t, RateLimits{SOS: "2-M"})
	victim, _ := env.register(t, "victim@example.com")

	for i := 0; i < 2; i++ {
		w := env.do(t, http.MethodPost, "/api/v1/emergencies", victim, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := env.do(t, http.MethodPost, "/api/v1/emergencies", victim, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRequestValidation(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	token, userID := env.register(t, "asha@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"latitude out of range", http.MethodPut, "/api/v1/profile/me/location", gin.H{"lat": 100.0, "lng": 10.0}},
		{"missing longitude", http.MethodPut, "/api/v1/profile/me/location", gin.H{"lat": 10.0}},
		{"empty profile patch", http.MethodPut, "/api/v1/profile/me", gin.H{}},
		{"self-assigned authority", http.MethodPut, "/api/v1/profile/me", gin.H{"role": "AUTHORITY"}},
		{"unknown emergency type", http.MethodPost, "/api/v1/emergencies/e1/classify", gin.H{"type": "Flood", "severity": "HIGH"}},
		{"bad trigger coordinate", http.MethodPost, "/api/v1/emergencies", gin.H{"lat": 10.0, "lng": 500.0}},
		{"bad leaderboard period", http.MethodGet, "/api/v1/community/leaderboard?period=monthly", nil},
		{"empty chat", http.MethodPost, "/api/v1/assistant/chat", gin.H{"text": ""}},
		{"follow self", http.MethodPost, "/api/v1/social/follow/" + userID, gin.H{"currently_following": false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, token, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	w := env.do(t, http.MethodGet, "/api/v1/profile/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSocialRoutes(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	asha, ashaID := env.register(t, "asha@example.com")
	ravi, raviID := env.register(t, "ravi@example.com")

	w := env.do(t, http.MethodPost, "/api/v1/social/follow/"+raviID, asha, gin.H{"currently_following": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[handler.FollowStateResponse](t, w).Following)

	w = env.do(t, http.MethodGet, "/api/v1/social/following/"+raviID+"/status", asha, nil)
	assert.True(t, decode[handler.FollowStateResponse](t, w).Following)

	w = env.do(t, http.MethodPost, "/api/v1/social/priority/"+raviID, asha, gin.H{"current_priority": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[handler.PriorityStateResponse](t, w).Priority)

	w = env.do(t, http.MethodGet, "/api/v1/social/followers", ravi, nil)
	followers := decode[[]domain.Connection](t, w)
	require.Len(t, followers, 1)
	assert.Equal(t, ashaID, followers[0].ID)

	w = env.do(t, http.MethodPost, "/api/v1/social/block/"+ashaID, ravi, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/social/following", asha, nil)
	assert.Empty(t, decode[[]domain.Connection](t, w))

	w = env.do(t, http.MethodPost, "/api/v1/social/follow/"+raviID, asha, gin.H{"currently_following": false})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/social/block/"+ashaID, ravi, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSimulatedMode(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	token, _ := env.register(t, "asha@example.com")

	env.store.FailWith(domain.ErrBackendUnavailable)
	env.breaker.Trip(errors.New("postgres down"))

	w := env.do(t, http.MethodGet, "/api/v1/system/backend", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[health.Status](t, w)
	assert.Equal(t, "compromised", status.State)
	assert.Equal(t, health.ModeSimulated, status.Mode)
	assert.Equal(t, health.ModeSimulated, w.Header().Get(middleware.BackendModeHeader))

	w = env.do(t, http.MethodPost, "/api/v1/emergencies", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decode[domain.EmergencySession](t, w).IsSimulated)

	w = env.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "new@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	env.store.FailWith(nil)
	w = env.do(t, http.MethodPost, "/api/v1/system/backend/reset", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, health.ModeLive, decode[health.Status](t, w).Mode)
	assert.False(t, env.breaker.Compromised())
}

func TestResetRunsRecoveryBeforeLive(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	token, _ := env.register(t, "asha@example.com")

	migrated := false
	env.breaker.OnRecover(func(ctx context.Context) error {
		if !migrated {
			return errors.New("relation \"users\" does not exist")
		}
		return nil
	})
	env.breaker.Trip(errors.New("postgres down at startup"))

	w := env.do(t, http.MethodPost, "/api/v1/system/backend/reset", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.True(t, env.breaker.Compromised())

	migrated = true
	w = env.do(t, http.MethodPost, "/api/v1/system/backend/reset", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, health.ModeLive, decode[health.Status](t, w).Mode)
}

func TestAssistantFallbacks(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	token, _ := env.register(t, "asha@example.com")

	w := env.do(t, http.MethodPost, "/api/v1/assistant/chat", token, gin.H{
		"history": []gin.H{{"sender": "user", "text": "there is smoke"}},
		"text":    "what do I do",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	a := decode[domain.Assessment](t, w)
	assert.Equal(t, assistant.FallbackDirective, a.Text)
	assert.True(t, a.Fallback)

	w = env.do(t, http.MethodPost, "/api/v1/assistant/ask", token, gin.H{"text": "nearest police station", "mode": "maps"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, assistant.FallbackAsk, decode[domain.AssistantReply](t, w).Text)

	w = env.do(t, http.MethodPost, "/api/v1/assistant/speech", token, gin.H{"text": "stay calm"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/assistant/image", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "scene.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte{0xff, 0xd8, 0xff, 0xe0})
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, assistant.FallbackVision, decode[domain.Assessment](t, rec).Text)
}

func TestLiveFeed(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	victim, _ := env.register(t, "victim@example.com")
	helper, _ := env.register(t, "helper@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	env.feed.Start(ctx)
	require.Eventually(t, func() bool { return env.store.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	srv := httptest.NewServer(env.engine)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/emergencies/live?token=" + helper
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	var first dispatch.Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, dispatch.MessageSnapshot, first.Type)
	assert.Empty(t, first.Emergencies)

	w := env.do(t, http.MethodPost, "/api/v1/emergencies", victim, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[domain.EmergencySession](t, w).ID

	for {
		var msg dispatch.Message
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == dispatch.MessageSnapshot && len(msg.Emergencies) == 1 {
			assert.Equal(t, id, msg.Emergencies[0].ID)
			break
		}
	}
}

func TestLiveFeedRequiresToken(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	srv := httptest.NewServer(env.engine)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/emergencies/live"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
