package handler

import (
	"net/http"

	"github.com/gdugdh24/rakshak-backend/internal/usecase/auth"
	"github.com/gdugdh24/rakshak-backend/internal/usecase/profile"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authUseCase    *auth.AuthUseCase
	profileUseCase *profile.ProfileUseCase
}

func NewAuthHandler(authUseCase *auth.AuthUseCase, profileUseCase *profile.ProfileUseCase) *AuthHandler {
	return &AuthHandler{
		authUseCase:    authUseCase,
		profileUseCase: profileUseCase,
	}
}

// OAuthRequest carries the identity token minted by the identity provider.
type OAuthRequest struct {
	IdentityToken string `json:"identity_token" binding:"required"`
}

// AuthResponse is the response structure
type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt int64       `json:"expires_at"`
	User      interface{} `json:"user"`
}

func clientInfo(c *gin.Context) auth.ClientInfo {
	return auth.ClientInfo{
		DeviceInfo: c.GetHeader("User-Agent"),
		IPAddress:  c.ClientIP(),
	}
}

func authResponse(res *auth.AuthResponse) AuthResponse {
	return AuthResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.Unix(),
		User:      res.User,
	}
}

// Register handles email sign-up
// @Summary Register
// @Description Create an account with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body auth.RegisterRequest true "Account data"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.authUseCase.Register(c.Request.Context(), &req, clientInfo(c))
	if err != nil {
		respondError(c, err, "registration failed")
		return
	}

	c.JSON(http.StatusCreated, authResponse(result))
}

// Login handles email sign-in
// @Summary Login
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body auth.LoginRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}

	result, err := h.authUseCase.Login(c.Request.Context(), &req, clientInfo(c))
	if err != nil {
		respondError(c, err, "authentication failed")
		return
	}

	c.JSON(http.StatusOK, authResponse(result))
}

// OAuth exchanges an identity provider token for a session
// @Summary OAuth sign-in
// @Description Authenticate with an identity token from the OAuth provider
// @Tags auth
// @Accept json
// @Produce json
// @Param request body OAuthRequest true "Identity token"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/oauth [post]
func (h *AuthHandler) OAuth(c *gin.Context) {
	var req OAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.authUseCase.AuthenticateOAuth(c.Request.Context(), req.IdentityToken, clientInfo(c))
	if err != nil {
		respondError(c, err, "authentication failed")
		return
	}

	c.JSON(http.StatusOK, authResponse(result))
}

// Logout handles user logout
// @Summary Logout
// @Description Logout user and invalidate session
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetString("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "missing authorization token",
		})
		return
	}

	if err := h.authUseCase.Logout(c.Request.Context(), token); err != nil {
		respondError(c, err, "logout failed")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "logged out successfully",
	})
}

// Me returns current user info
// @Summary Get current user
// @Description Get authenticated user's profile
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} domain.User
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.profileUseCase.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to get user")
		return
	}

	c.JSON(http.StatusOK, user)
}
