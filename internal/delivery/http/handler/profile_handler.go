package handler

import (
	"net/http"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/gdugdh24/rakshak-backend/internal/usecase/profile"
	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileUseCase *profile.ProfileUseCase
}

func NewProfileHandler(profileUseCase *profile.ProfileUseCase) *ProfileHandler {
	return &ProfileHandler{
		profileUseCase: profileUseCase,
	}
}

type LocationRequest struct {
	Lat *float64 `json:"lat" binding:"required,latitude"`
	Lng *float64 `json:"lng" binding:"required,longitude"`
}

type AvailabilityRequest struct {
	IsAvailable *bool `json:"is_available" binding:"required"`
}

// GetMyProfile handles GET /profile/me
// @Summary Get my profile
// @Description Get current user's profile
// @Tags profile
// @Security BearerAuth
// @Produce json
// @Success 200 {object} domain.User
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /profile/me [get]
func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.profileUseCase.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to get profile")
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateMyProfile handles PUT /profile/me
// @Summary Update my profile
// @Description Merge the given fields into the current user's profile
// @Tags profile
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body profile.UpdateProfileRequest true "Profile update data"
// @Success 200 {object} domain.User
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /profile/me [put]
func (h *ProfileHandler) UpdateMyProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req profile.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	patch := req.Patch()
	if patch.IsEmpty() {
		badRequest(c, "no fields to update")
		return
	}

	user, err := h.profileUseCase.UpdateProfile(c.Request.Context(), userID, patch)
	if err != nil {
		respondError(c, err, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateMyLocation handles PUT /profile/me/location
// @Summary Update my location
// @Description Store the last known coordinate used as SOS fallback
// @Tags profile
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body LocationRequest true "Coordinate"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /profile/me/location [put]
func (h *ProfileHandler) UpdateMyLocation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "lat and lng are required")
		return
	}

	point := domain.GeoPoint{Lat: *req.Lat, Lng: *req.Lng}
	if err := h.profileUseCase.UpdateLocation(c.Request.Context(), userID, point); err != nil {
		respondError(c, err, "failed to update location")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "location updated"})
}

// SetMyAvailability handles PUT /profile/me/availability
// @Summary Go on or off duty
// @Tags profile
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body AvailabilityRequest true "Availability"
// @Success 200 {object} domain.User
// @Router /profile/me/availability [put]
func (h *ProfileHandler) SetMyAvailability(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "is_available is required")
		return
	}

	user, err := h.profileUseCase.SetAvailability(c.Request.Context(), userID, *req.IsAvailable)
	if err != nil {
		respondError(c, err, "failed to update availability")
		return
	}

	c.JSON(http.StatusOK, user)
}

// AddEmergencyContact handles POST /profile/me/contacts
// @Summary Add emergency contact
// @Tags profile
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body domain.Contact true "Contact"
// @Success 201 {object} domain.User
// @Failure 400 {object} ErrorResponse
// @Router /profile/me/contacts [post]
func (h *ProfileHandler) AddEmergencyContact(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var contact domain.Contact
	if err := c.ShouldBindJSON(&contact); err != nil {
		badRequest(c, "invalid contact")
		return
	}

	user, err := h.profileUseCase.AddEmergencyContact(c.Request.Context(), userID, contact)
	if err != nil {
		respondError(c, err, "failed to add contact")
		return
	}

	c.JSON(http.StatusCreated, user)
}

// RemoveEmergencyContact handles DELETE /profile/me/contacts/:contact_id
// @Summary Remove emergency contact
// @Tags profile
// @Security BearerAuth
// @Produce json
// @Param contact_id path string true "Contact ID"
// @Success 200 {object} domain.User
// @Router /profile/me/contacts/{contact_id} [delete]
func (h *ProfileHandler) RemoveEmergencyContact(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.profileUseCase.RemoveEmergencyContact(c.Request.Context(), userID, c.Param("contact_id"))
	if err != nil {
		respondError(c, err, "failed to remove contact")
		return
	}

	c.JSON(http.StatusOK, user)
}

// GetMyBadges handles GET /profile/me/badges
// @Summary List badges
// @Description Full badge catalog with the caller's earned flags
// @Tags profile
// @Security BearerAuth
// @Produce json
// @Success 200 {array} domain.Badge
// @Router /profile/me/badges [get]
func (h *ProfileHandler) GetMyBadges(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	badges, err := h.profileUseCase.Badges(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to get badges")
		return
	}

	c.JSON(http.StatusOK, badges)
}

// GetProfileByUserID handles GET /profile/:user_id
// @Summary Get user profile
// @Description Get another user's profile
// @Tags profile
// @Security BearerAuth
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} domain.PublicProfile
// @Failure 404 {object} ErrorResponse
// @Router /profile/{user_id} [get]
func (h *ProfileHandler) GetProfileByUserID(c *gin.Context) {
	user, err := h.profileUseCase.GetProfile(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err, "failed to get profile")
		return
	}

	c.JSON(http.StatusOK, user.Public())
}

// Leaderboard handles GET /community/leaderboard
// @Summary Leaderboard
// @Tags community
// @Security BearerAuth
// @Produce json
// @Param period query string false "weekly or all-time"
// @Success 200 {array} domain.PublicProfile
// @Failure 400 {object} ErrorResponse
// @Router /community/leaderboard [get]
func (h *ProfileHandler) Leaderboard(c *gin.Context) {
	period := c.DefaultQuery("period", "all-time")
	if period != "weekly" && period != "all-time" {
		badRequest(c, "period must be weekly or all-time")
		return
	}

	users, err := h.profileUseCase.Leaderboard(c.Request.Context(), period)
	if err != nil {
		respondError(c, err, "failed to get leaderboard")
		return
	}

	c.JSON(http.StatusOK, domain.PublicProfiles(users))
}

// CommunityUsers handles GET /community/users
// @Summary Community members
// @Tags community
// @Security BearerAuth
// @Produce json
// @Success 200 {array} domain.PublicProfile
// @Router /community/users [get]
func (h *ProfileHandler) CommunityUsers(c *gin.Context) {
	users, err := h.profileUseCase.CommunityUsers(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to get community")
		return
	}

	c.JSON(http.StatusOK, domain.PublicProfiles(users))
}

// CommunityStats handles GET /community/stats
// @Summary Community impact stats
// @Tags community
// @Security BearerAuth
// @Produce json
// @Success 200 {object} domain.CommunityStats
// @Router /community/stats [get]
func (h *ProfileHandler) CommunityStats(c *gin.Context) {
	stats, err := h.profileUseCase.CommunityStats(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to get stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}
