package social

import (
	"context"
	"errors"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/gdugdh24/rakshak-backend/internal/health"
	"github.com/gdugdh24/rakshak-backend/internal/repository"
	"github.com/gdugdh24/rakshak-backend/internal/repository/mock"
	"go.uber.org/zap"
)

// SocialUseCase manages the follow graph that forms each user's safety net.
type SocialUseCase struct {
	relRepo  repository.RelationshipRepository
	userRepo repository.UserRepository
	breaker  *health.Breaker
	logger   *zap.Logger
}

func NewSocialUseCase(
	relRepo repository.RelationshipRepository,
	userRepo repository.UserRepository,
	breaker *health.Breaker,
	logger *zap.Logger,
) *SocialUseCase {
	return &SocialUseCase{
		relRepo:  relRepo,
		userRepo: userRepo,
		breaker:  breaker,
		logger:   logger,
	}
}

func (uc *SocialUseCase) offline(err error, op string) bool {
	if uc.breaker.Observe(err) {
		uc.logger.Warn("relationship store unavailable", zap.String("op", op), zap.Error(err))
		return true
	}
	return false
}

// ToggleFollow follows or unfollows following depending on what the caller
// believes the current state to be, and returns the new state.
func (uc *SocialUseCase) ToggleFollow(ctx context.Context, followerID, followingID string, currentlyFollowing bool) (bool, error) {
	if followerID == followingID {
		return currentlyFollowing, domain.ErrCannotFollowSelf
	}
	if uc.breaker.Compromised() {
		return !currentlyFollowing, nil
	}

	var err error
	if currentlyFollowing {
		_, err = uc.relRepo.Unfollow(ctx, followerID, followingID)
	} else {
		if err = uc.checkNotBlocked(ctx, followerID, followingID); err == nil {
			_, err = uc.relRepo.Follow(ctx, followerID, followingID)
		}
	}
	if uc.offline(err, "toggle_follow") {
		return !currentlyFollowing, nil
	}
	if err != nil {
		return currentlyFollowing, err
	}

	uc.logger.Debug("follow toggled",
		zap.String("user_id", followerID), zap.String("target_id", followingID),
		zap.Bool("following", !currentlyFollowing))
	return !currentlyFollowing, nil
}

// checkNotBlocked rejects a follow when either side has blocked the other.
func (uc *SocialUseCase) checkNotBlocked(ctx context.Context, followerID, followingID string) error {
	follower, err := uc.userRepo.GetByID(ctx, followerID)
	if err != nil {
		return err
	}
	target, err := uc.userRepo.GetByID(ctx, followingID)
	if err != nil {
		return err
	}
	if follower.HasBlocked(followingID) || target.HasBlocked(followerID) {
		return domain.ErrUserBlocked
	}
	return nil
}

// TogglePriority flips the priority flag of an existing edge. On failure it
// returns the unchanged state together with the error.
func (uc *SocialUseCase) TogglePriority(ctx context.Context, followerID, followingID string, currentPriority bool) (bool, error) {
	if uc.breaker.Compromised() {
		return !currentPriority, nil
	}
	err := uc.relRepo.SetPriority(ctx, followerID, followingID, !currentPriority)
	if uc.offline(err, "toggle_priority") {
		return !currentPriority, nil
	}
	if err != nil {
		return currentPriority, err
	}
	return !currentPriority, nil
}

// RemoveFollower deletes the edge followerID -> userID.
func (uc *SocialUseCase) RemoveFollower(ctx context.Context, userID, followerID string) error {
	if uc.breaker.Compromised() {
		return nil
	}
	_, err := uc.relRepo.Unfollow(ctx, followerID, userID)
	if uc.offline(err, "remove_follower") {
		return nil
	}
	return err
}

func (uc *SocialUseCase) BlockUser(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		return domain.ErrInvalidInput
	}
	if uc.breaker.Compromised() {
		return nil
	}
	err := uc.relRepo.Block(ctx, userID, targetID)
	if uc.offline(err, "block") {
		return nil
	}
	if err == nil {
		uc.logger.Info("user blocked", zap.String("user_id", userID), zap.String("target_id", targetID))
	}
	return err
}

func (uc *SocialUseCase) UnblockUser(ctx context.Context, userID, targetID string) error {
	if uc.breaker.Compromised() {
		return nil
	}
	err := uc.relRepo.Unblock(ctx, userID, targetID)
	if uc.offline(err, "unblock") {
		return nil
	}
	return err
}

// ListFollowing returns the guardians of userID. An empty graph yields an
// empty list; the simulated list is only served while compromised.
func (uc *SocialUseCase) ListFollowing(ctx context.Context, userID string) ([]domain.Connection, error) {
	if uc.breaker.Compromised() {
		return mock.Following(), nil
	}
	conns, err := uc.relRepo.ListFollowing(ctx, userID)
	if uc.offline(err, "list_following") {
		return mock.Following(), nil
	}
	return conns, err
}

func (uc *SocialUseCase) ListFollowers(ctx context.Context, userID string) ([]domain.Connection, error) {
	if uc.breaker.Compromised() {
		return mock.Followers(), nil
	}
	conns, err := uc.relRepo.ListFollowers(ctx, userID)
	if uc.offline(err, "list_followers") {
		return mock.Followers(), nil
	}
	return conns, err
}

func (uc *SocialUseCase) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	if uc.breaker.Compromised() {
		return false, nil
	}
	_, err := uc.relRepo.Get(ctx, followerID, followingID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrRelationshipNotFound):
		return false, nil
	case uc.offline(err, "is_following"):
		return false, nil
	default:
		return false, err
	}
}

// Guardians returns the ids of everyone following victimID, priority
// guardians first. While compromised nobody is notified.
func (uc *SocialUseCase) Guardians(ctx context.Context, victimID string) ([]string, error) {
	if uc.breaker.Compromised() {
		return nil, nil
	}
	ids, err := uc.relRepo.FollowerIDs(ctx, victimID)
	if uc.offline(err, "guardians") {
		return nil, nil
	}
	return ids, err
}
