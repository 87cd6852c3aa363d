package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/gdugdh24/rakshak-backend/internal/health"
	"github.com/gdugdh24/rakshak-backend/internal/repository"
	"github.com/gdugdh24/rakshak-backend/internal/repository/mock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProfileService is the slice of the profile usecase dispatch depends on.
type ProfileService interface {
	GetProfile(ctx context.Context, id string) (*domain.User, error)
	AwardPoints(ctx context.Context, id string, points int) (*domain.User, error)
}

// GuardianLookup returns the followers to alert when a user raises an SOS.
type GuardianLookup interface {
	Guardians(ctx context.Context, victimID string) ([]string, error)
}

// DispatchUseCase drives emergency sessions through
// REQUESTED -> ACCEPTED -> RESOLVED.
type DispatchUseCase struct {
	emergencyRepo   repository.EmergencyRepository
	events          repository.EmergencyEventBus
	profiles        ProfileService
	guardians       GuardianLookup
	breaker         *health.Breaker
	logger          *zap.Logger
	defaultLocation domain.GeoPoint
	now             func() time.Time
}

func NewDispatchUseCase(
	emergencyRepo repository.EmergencyRepository,
	events repository.EmergencyEventBus,
	profiles ProfileService,
	guardians GuardianLookup,
	breaker *health.Breaker,
	logger *zap.Logger,
	defaultLocation domain.GeoPoint,
) *DispatchUseCase {
	return &DispatchUseCase{
		emergencyRepo:   emergencyRepo,
		events:          events,
		profiles:        profiles,
		guardians:       guardians,
		breaker:         breaker,
		logger:          logger,
		defaultLocation: defaultLocation,
		now:             time.Now,
	}
}

func (uc *DispatchUseCase) offline(err error, op string) bool {
	if uc.breaker.Observe(err) {
		uc.logger.Warn("emergency store unavailable", zap.String("op", op), zap.Error(err))
		return true
	}
	return false
}

// simulated reports whether id must be handled without touching the store.
func (uc *DispatchUseCase) simulated(id string) bool {
	return domain.IsMockEmergencyID(id) || uc.breaker.Compromised()
}

// Trigger raises an SOS for requesterID. at is the device fix, if any.
func (uc *DispatchUseCase) Trigger(ctx context.Context, requesterID string, at *domain.GeoPoint) (*domain.EmergencySession, error) {
	requester, err := uc.profiles.GetProfile(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get requester: %w", err)
	}

	now := uc.now()
	point := uc.resolveLocation(requester, at)
	if uc.breaker.Compromised() {
		return mock.Emergency(requester, point, now), nil
	}

	session := &domain.EmergencySession{
		ID:        uuid.NewString(),
		UserID:    requester.ID,
		UserName:  requester.Name,
		UserPhone: requester.Phone,
		Lat:       point.Lat,
		Lng:       point.Lng,
		Status:    domain.StatusRequested,
		Type:      domain.TypeUncertain,
		Severity:  domain.SeverityCritical,
		Active:    true,
		StartTime: now,
	}
	if err := uc.emergencyRepo.Create(ctx, session); err != nil {
		if uc.offline(err, "trigger") {
			return mock.Emergency(requester, point, now), nil
		}
		return nil, fmt.Errorf("failed to create emergency: %w", err)
	}

	guardians, err := uc.guardians.Guardians(ctx, requesterID)
	if err != nil {
		uc.logger.Warn("failed to load guardians", zap.String("user_id", requesterID), zap.Error(err))
	}
	uc.publish(ctx, session, "", guardians)

	uc.logger.Info("sos triggered",
		zap.String("emergency_id", session.ID), zap.String("user_id", requesterID),
		zap.Float64("lat", point.Lat), zap.Float64("lng", point.Lng),
		zap.Int("guardians", len(guardians)))
	return session, nil
}

// resolveLocation falls back from the device fix to the last known profile
// coordinate and then to the configured default.
func (uc *DispatchUseCase) resolveLocation(requester *domain.User, at *domain.GeoPoint) domain.GeoPoint {
	if at != nil && at.Valid() {
		return *at
	}
	if p, ok := requester.Location(); ok && p.Valid() {
		return p
	}
	return uc.defaultLocation
}

// Accept assigns helperID to a REQUESTED session. Exactly one helper wins.
func (uc *DispatchUseCase) Accept(ctx context.Context, id, helperID string) (*domain.EmergencySession, error) {
	if uc.simulated(id) {
		return uc.simulatedSession(id, domain.StatusAccepted, helperID), nil
	}

	current, err := uc.emergencyRepo.GetByID(ctx, id)
	if err != nil {
		if uc.offline(err, "accept") {
			return uc.simulatedSession(id, domain.StatusAccepted, helperID), nil
		}
		return nil, err
	}
	if current.UserID == helperID {
		return nil, domain.ErrCannotHelpSelf
	}
	if !current.Status.CanTransition(domain.StatusAccepted) {
		if current.Status == domain.StatusAccepted {
			return nil, domain.ErrAlreadyAssigned
		}
		return nil, domain.ErrInvalidTransition
	}

	onDuty, err := uc.onDuty(ctx, helperID)
	if err != nil {
		return nil, err
	}
	if !onDuty {
		return nil, domain.ErrHelperOffDuty
	}

	session, err := uc.emergencyRepo.Accept(ctx, id, helperID, uc.now())
	if err != nil {
		if uc.offline(err, "accept") {
			return uc.simulatedSession(id, domain.StatusAccepted, helperID), nil
		}
		return nil, err
	}

	uc.award(ctx, helperID, domain.PointsAcceptSOS)
	uc.publish(ctx, session, helperID, nil)
	uc.logger.Info("emergency accepted", zap.String("emergency_id", id), zap.String("helper_id", helperID))
	return session, nil
}

// Deny hides the session from helperID's feed.
func (uc *DispatchUseCase) Deny(ctx context.Context, id, helperID string) error {
	if uc.simulated(id) {
		return nil
	}
	err := uc.emergencyRepo.Decline(ctx, id, helperID)
	if uc.offline(err, "deny") {
		return nil
	}
	if err != nil {
		return err
	}
	uc.logger.Debug("emergency declined", zap.String("emergency_id", id), zap.String("helper_id", helperID))
	uc.publish(ctx, &domain.EmergencySession{ID: id, Status: domain.StatusRequested}, helperID, nil)
	return nil
}

// Resolve closes the session. Only the requester may confirm they are safe.
func (uc *DispatchUseCase) Resolve(ctx context.Context, id, requesterID string) (*domain.EmergencySession, error) {
	if uc.simulated(id) {
		return uc.simulatedSession(id, domain.StatusResolved, ""), nil
	}

	current, err := uc.emergencyRepo.GetByID(ctx, id)
	if err != nil {
		if uc.offline(err, "resolve") {
			return uc.simulatedSession(id, domain.StatusResolved, ""), nil
		}
		return nil, err
	}
	if current.UserID != requesterID {
		return nil, domain.ErrNotRequester
	}
	if !current.Status.CanTransition(domain.StatusResolved) {
		return nil, domain.ErrInvalidTransition
	}

	session, err := uc.emergencyRepo.Resolve(ctx, id, uc.now())
	if err != nil {
		if uc.offline(err, "resolve") {
			return uc.simulatedSession(id, domain.StatusResolved, ""), nil
		}
		return nil, err
	}

	if session.HelperID != nil {
		uc.award(ctx, *session.HelperID, ResolvePoints(session))
	}
	uc.publish(ctx, session, "", nil)
	uc.logger.Info("emergency resolved", zap.String("emergency_id", id), zap.String("user_id", requesterID))
	return session, nil
}

// ResolvePoints is what the assigned helper earns when session closes.
func ResolvePoints(session *domain.EmergencySession) int {
	points := domain.PointsResolveSOS
	if session.Severity == domain.SeverityCritical && session.Type != domain.TypeUncertain {
		points += domain.PointsCriticalHelp
	}
	return points
}

// Classify records the assistant's assessment of an active session. Only
// the requester may classify it.
func (uc *DispatchUseCase) Classify(ctx context.Context, id, requesterID string, t domain.EmergencyType, sev domain.Severity) (*domain.EmergencySession, error) {
	if uc.simulated(id) {
		s := uc.simulatedSession(id, domain.StatusRequested, "")
		s.Type, s.Severity = t, sev
		return s, nil
	}

	current, err := uc.emergencyRepo.GetByID(ctx, id)
	if err != nil {
		if uc.offline(err, "classify") {
			s := uc.simulatedSession(id, domain.StatusRequested, "")
			s.Type, s.Severity = t, sev
			return s, nil
		}
		return nil, err
	}
	if current.UserID != requesterID {
		return nil, domain.ErrNotRequester
	}

	session, err := uc.emergencyRepo.Classify(ctx, id, t, sev)
	if err != nil {
		if uc.offline(err, "classify") {
			s := uc.simulatedSession(id, domain.StatusRequested, "")
			s.Type, s.Severity = t, sev
			return s, nil
		}
		return nil, err
	}
	uc.publish(ctx, session, "", nil)
	return session, nil
}

func (uc *DispatchUseCase) Get(ctx context.Context, id string) (*domain.EmergencySession, error) {
	if uc.simulated(id) {
		return uc.simulatedSession(id, domain.StatusRequested, ""), nil
	}
	session, err := uc.emergencyRepo.GetByID(ctx, id)
	if uc.offline(err, "get") {
		return uc.simulatedSession(id, domain.StatusRequested, ""), nil
	}
	return session, err
}

// ListOpen returns the requests helperID may still accept. Helpers who are
// off duty get an empty list. When from is set each entry carries its
// distance and the list is ordered nearest first.
func (uc *DispatchUseCase) ListOpen(ctx context.Context, helperID string, from *domain.GeoPoint) ([]*domain.EmergencySession, error) {
	if uc.breaker.Compromised() {
		return []*domain.EmergencySession{}, nil
	}
	onDuty, err := uc.onDuty(ctx, helperID)
	if err != nil {
		return nil, err
	}
	if !onDuty {
		return []*domain.EmergencySession{}, nil
	}
	sessions, err := uc.emergencyRepo.ListOpen(ctx, helperID)
	if err != nil {
		if uc.offline(err, "list_open") {
			return []*domain.EmergencySession{}, nil
		}
		return nil, err
	}
	if from == nil || !from.Valid() {
		return sessions, nil
	}
	for _, s := range sessions {
		d := calculateDistance(from.Lat, from.Lng, s.Lat, s.Lng)
		s.DistanceKm = &d
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return *sessions[i].DistanceKm < *sessions[j].DistanceKm
	})
	return sessions, nil
}

// onDuty reports whether helperID currently takes requests.
func (uc *DispatchUseCase) onDuty(ctx context.Context, helperID string) (bool, error) {
	helper, err := uc.profiles.GetProfile(ctx, helperID)
	if err != nil {
		return false, fmt.Errorf("failed to get helper: %w", err)
	}
	return helper.IsAvailable, nil
}

func (uc *DispatchUseCase) simulatedSession(id string, status domain.EmergencyStatus, helperID string) *domain.EmergencySession {
	now := uc.now()
	s := &domain.EmergencySession{
		ID:          id,
		Lat:         uc.defaultLocation.Lat,
		Lng:         uc.defaultLocation.Lng,
		Status:      status,
		Type:        domain.TypeUncertain,
		Severity:    domain.SeverityCritical,
		Active:      status != domain.StatusResolved,
		StartTime:   now,
		IsSimulated: true,
	}
	if helperID != "" {
		s.HelperID = &helperID
		s.AcceptedTime = &now
	}
	if status == domain.StatusResolved {
		s.EndTime = &now
	}
	return s
}

// award grants points without failing the dispatch call.
func (uc *DispatchUseCase) award(ctx context.Context, userID string, points int) {
	if _, err := uc.profiles.AwardPoints(ctx, userID, points); err != nil {
		uc.logger.Error("failed to award points",
			zap.String("user_id", userID), zap.Int("points", points), zap.Error(err))
	}
}

func (uc *DispatchUseCase) publish(ctx context.Context, s *domain.EmergencySession, helperID string, guardians []string) {
	event := domain.EmergencyEvent{
		EmergencyID: s.ID,
		UserID:      s.UserID,
		Status:      s.Status,
		HelperID:    helperID,
		Guardians:   guardians,
		At:          uc.now(),
	}
	if err := uc.events.Publish(ctx, event); err != nil {
		if !errors.Is(err, context.Canceled) {
			uc.offline(err, "publish")
		}
		uc.logger.Warn("failed to publish emergency event", zap.String("emergency_id", s.ID), zap.Error(err))
	}
}

// calculateDistance returns the haversine distance in kilometres.
func calculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371.0
	dLat := (lat2 - lat1) * (math.Pi / 180.0)
	dLon := (lon2 - lon1) * (math.Pi / 180.0)
	lat1Rad := lat1 * (math.Pi / 180.0)
	lat2Rad := lat2 * (math.Pi / 180.0)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}
