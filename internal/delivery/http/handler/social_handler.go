package handler

import (
	"net/http"

	"github.com/gdugdh24/rakshak-backend/internal/usecase/social"
	"github.com/gin-gonic/gin"
)

type SocialHandler struct {
	socialUseCase *social.SocialUseCase
}

func NewSocialHandler(socialUseCase *social.SocialUseCase) *SocialHandler {
	return &SocialHandler{
		socialUseCase: socialUseCase,
	}
}

type ToggleFollowRequest struct {
	CurrentlyFollowing bool `json:"currently_following"`
}

type TogglePriorityRequest struct {
	CurrentPriority bool `json:"current_priority"`
}

type FollowStateResponse struct {
	Following bool `json:"following"`
}

type PriorityStateResponse struct {
	Priority bool `json:"priority"`
}

// ToggleFollow handles POST /social/follow/:user_id
// @Summary Follow or unfollow
// @Description Flip the follow edge from the state the client last saw
// @Tags social
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param user_id path string true "Target user ID"
// @Param request body ToggleFollowRequest true "Current state"
// @Success 200 {object} FollowStateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /social/follow/{user_id} [post]
func (h *SocialHandler) ToggleFollow(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req ToggleFollowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	following, err := h.socialUseCase.ToggleFollow(c.Request.Context(), userID, c.Param("user_id"), req.CurrentlyFollowing)
	if err != nil {
		respondError(c, err, "failed to update follow")
		return
	}

	c.JSON(http.StatusOK, FollowStateResponse{Following: following})
}

// TogglePriority handles POST /social/priority/:user_id
// @Summary Mark or unmark a priority guardian
// @Tags social
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param user_id path string true "Followed user ID"
// @Param request body TogglePriorityRequest true "Current state"
// @Success 200 {object} PriorityStateResponse
// @Router /social/priority/{user_id} [post]
func (h *SocialHandler) TogglePriority(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req TogglePriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	priority, err := h.socialUseCase.TogglePriority(c.Request.Context(), userID, c.Param("user_id"), req.CurrentPriority)
	if err != nil {
		respondError(c, err, "failed to update priority")
		return
	}

	c.JSON(http.StatusOK, PriorityStateResponse{Priority: priority})
}

// RemoveFollower handles DELETE /social/followers/:user_id
// @Summary Remove a follower
// @Tags social
// @Security BearerAuth
// @Produce json
// @Param user_id path string true "Follower user ID"
// @Success 200 {object} SuccessResponse
// @Router /social/followers/{user_id} [delete]
func (h *SocialHandler) RemoveFollower(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.socialUseCase.RemoveFollower(c.Request.Context(), userID, c.Param("user_id")); err != nil {
		respondError(c, err, "failed to remove follower")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "follower removed"})
}

// BlockUser handles POST /social/block/:user_id
// @Summary Block a user
// @Description Drops the follow edges in both directions
// @Tags social
// @Security BearerAuth
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} SuccessResponse
// @Router /social/block/{user_id} [post]
func (h *SocialHandler) BlockUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.socialUseCase.BlockUser(c.Request.Context(), userID, c.Param("user_id")); err != nil {
		respondError(c, err, "failed to block user")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "user blocked"})
}

// UnblockUser handles DELETE /social/block/:user_id
// @Summary Unblock a user
// @Tags social
// @Security BearerAuth
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} SuccessResponse
// @Router /social/block/{user_id} [delete]
func (h *SocialHandler) UnblockUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.socialUseCase.UnblockUser(c.Request.Context(), userID, c.Param("user_id")); err != nil {
		respondError(c, err, "failed to unblock user")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "user unblocked"})
}

// ListFollowing handles GET /social/following
// @Summary People I follow
// @Tags social
// @Security BearerAuth
// @Produce json
// @Success 200 {array} domain.Connection
// @Router /social/following [get]
func (h *SocialHandler) ListFollowing(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conns, err := h.socialUseCase.ListFollowing(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to list following")
		return
	}

	c.JSON(http.StatusOK, conns)
}

// ListFollowers handles GET /social/followers
// @Summary People following me
// @Tags social
// @Security BearerAuth
// @Produce json
// @Success 200 {array} domain.Connection
// @Router /social/followers [get]
func (h *SocialHandler) ListFollowers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conns, err := h.socialUseCase.ListFollowers(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to list followers")
		return
	}

	c.JSON(http.StatusOK, conns)
}

// FollowStatus handles GET /social/following/:user_id/status
// @Summary Do I follow this user
// @Tags social
// @Security BearerAuth
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} FollowStateResponse
// @Router /social/following/{user_id}/status [get]
func (h *SocialHandler) FollowStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	following, err := h.socialUseCase.IsFollowing(c.Request.Context(), userID, c.Param("user_id"))
	if err != nil {
		respondError(c, err, "failed to check follow status")
		return
	}

	c.JSON(http.StatusOK, FollowStateResponse{Following: following})
}
