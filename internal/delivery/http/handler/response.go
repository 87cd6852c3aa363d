package handler

import (
	"errors"
	"net/http"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/gin-gonic/gin"
)

// ErrorResponse represents error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents success response
type SuccessResponse struct {
	Message string `json:"message"`
}

var errorStatus = []struct {
	err     error
	status  int
	message string
}{
	{domain.ErrInvalidInput, http.StatusBadRequest, "invalid input"},
	{domain.ErrCannotFollowSelf, http.StatusBadRequest, "cannot follow yourself"},
	{domain.ErrCannotHelpSelf, http.StatusBadRequest, "cannot accept your own emergency"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid email or password"},
	{domain.ErrInvalidToken, http.StatusUnauthorized, "invalid or expired token"},
	{domain.ErrSessionNotFound, http.StatusUnauthorized, "session not found"},
	{domain.ErrUserBlocked, http.StatusForbidden, "user is blocked"},
	{domain.ErrNotRequester, http.StatusForbidden, "only the requester can change this emergency"},
	{domain.ErrUserNotFound, http.StatusNotFound, "user not found"},
	{domain.ErrRelationshipNotFound, http.StatusNotFound, "relationship not found"},
	{domain.ErrEmergencyNotFound, http.StatusNotFound, "emergency not found"},
	{domain.ErrUserAlreadyExists, http.StatusConflict, "user already exists"},
	{domain.ErrAlreadyAssigned, http.StatusConflict, "emergency already accepted"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid emergency status transition"},
	{domain.ErrHelperBusy, http.StatusConflict, "helper already has an active emergency"},
	{domain.ErrHelperOffDuty, http.StatusConflict, "set yourself available to accept emergencies"},
	{domain.ErrBackendUnavailable, http.StatusServiceUnavailable, "backend unavailable"},
}

// respondError writes the status mapped to err. Unknown errors are 500 and
// carry fallback as message.
func respondError(c *gin.Context, err error, fallback string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			c.JSON(e.status, ErrorResponse{Error: e.message})
			return
		}
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: fallback})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// currentUserID returns the authenticated caller or writes 401.
func currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "unauthorized",
		})
		return "", false
	}
	return userID, true
}
