package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/gdugdh24/rakshak-backend/internal/usecase/dispatch"
	"github.com/gin-gonic/gin"
)

type EmergencyHandler struct {
	dispatchUseCase *dispatch.DispatchUseCase
}

func NewEmergencyHandler(dispatchUseCase *dispatch.DispatchUseCase) *EmergencyHandler {
	return &EmergencyHandler{
		dispatchUseCase: dispatchUseCase,
	}
}

// TriggerRequest carries the device fix. Both fields may be omitted when
// geolocation failed.
type TriggerRequest struct {
	Lat *float64 `json:"lat" binding:"omitempty,latitude"`
	Lng *float64 `json:"lng" binding:"omitempty,longitude"`
}

type ClassifyRequest struct {
	Type     string `json:"type" binding:"required,oneof=Medical Accident Fire Harassment Disaster Uncertain"`
	Severity string `json:"severity" binding:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
}

// Trigger handles POST /emergencies
// @Summary Raise an SOS
// @Description Creates a REQUESTED session at the best known coordinate and alerts guardians
// @Tags emergencies
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body TriggerRequest false "Device location"
// @Success 201 {object} domain.EmergencySession
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /emergencies [post]
func (h *EmergencyHandler) Trigger(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid location")
		return
	}
	var at *domain.GeoPoint
	if req.Lat != nil && req.Lng != nil {
		at = &domain.GeoPoint{Lat: *req.Lat, Lng: *req.Lng}
	}

	session, err := h.dispatchUseCase.Trigger(c.Request.Context(), userID, at)
	if err != nil {
		respondError(c, err, "failed to trigger emergency")
		return
	}

	c.JSON(http.StatusCreated, session)
}

// ListOpen handles GET /emergencies/open
// @Summary Open requests near me
// @Description Active REQUESTED sessions the caller may accept, nearest first when lat/lng are given
// @Tags emergencies
// @Security BearerAuth
// @Produce json
// @Param lat query number false "Helper latitude"
// @Param lng query number false "Helper longitude"
// @Success 200 {array} domain.EmergencySession
// @Router /emergencies/open [get]
func (h *EmergencyHandler) ListOpen(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	from, err := queryLocation(c)
	if err != nil {
		badRequest(c, "invalid lat/lng")
		return
	}

	sessions, err := h.dispatchUseCase.ListOpen(c.Request.Context(), userID, from)
	if err != nil {
		respondError(c, err, "failed to list emergencies")
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// queryLocation parses optional lat/lng query parameters.
func queryLocation(c *gin.Context) (*domain.GeoPoint, error) {
	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr == "" || lngStr == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, err
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, err
	}
	p := domain.GeoPoint{Lat: lat, Lng: lng}
	if !p.Valid() {
		return nil, domain.ErrInvalidInput
	}
	return &p, nil
}

// Get handles GET /emergencies/:id
// @Summary Get emergency
// @Tags emergencies
// @Security BearerAuth
// @Produce json
// @Param id path string true "Emergency ID"
// @Success 200 {object} domain.EmergencySession
// @Failure 404 {object} ErrorResponse
// @Router /emergencies/{id} [get]
func (h *EmergencyHandler) Get(c *gin.Context) {
	session, err := h.dispatchUseCase.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to get emergency")
		return
	}

	c.JSON(http.StatusOK, session)
}

// Accept handles POST /emergencies/:id/accept
// @Summary Accept an SOS
// @Description The first helper to accept is assigned; later attempts get 409
// @Tags emergencies
// @Security BearerAuth
// @Produce json
// @Param id path string true "Emergency ID"
// @Success 200 {object} domain.EmergencySession
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Taken, helper busy or helper off duty"
// @Router /emergencies/{id}/accept [post]
func (h *EmergencyHandler) Accept(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	session, err := h.dispatchUseCase.Accept(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err, "failed to accept emergency")
		return
	}

	c.JSON(http.StatusOK, session)
}

// Deny handles POST /emergencies/:id/deny
// @Summary Dismiss an SOS
// @Tags emergencies
// @Security BearerAuth
// @Produce json
// @Param id path string true "Emergency ID"
// @Success 200 {object} SuccessResponse
// @Router /emergencies/{id}/deny [post]
func (h *EmergencyHandler) Deny(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.dispatchUseCase.Deny(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err, "failed to deny emergency")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "emergency dismissed"})
}

// Resolve handles POST /emergencies/:id/resolve
// @Summary Mark yourself safe
// @Tags emergencies
// @Security BearerAuth
// @Produce json
// @Param id path string true "Emergency ID"
// @Success 200 {object} domain.EmergencySession
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /emergencies/{id}/resolve [post]
func (h *EmergencyHandler) Resolve(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	session, err := h.dispatchUseCase.Resolve(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err, "failed to resolve emergency")
		return
	}

	c.JSON(http.StatusOK, session)
}

// Classify handles POST /emergencies/:id/classify
// @Summary Set emergency type and severity
// @Tags emergencies
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Emergency ID"
// @Param request body ClassifyRequest true "Classification"
// @Success 200 {object} domain.EmergencySession
// @Failure 403 {object} ErrorResponse
// @Router /emergencies/{id}/classify [post]
func (h *EmergencyHandler) Classify(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid classification")
		return
	}

	session, err := h.dispatchUseCase.Classify(c.Request.Context(), c.Param("id"), userID,
		domain.ParseEmergencyType(req.Type), domain.ParseSeverity(req.Severity))
	if err != nil {
		respondError(c, err, "failed to classify emergency")
		return
	}

	c.JSON(http.StatusOK, session)
}
