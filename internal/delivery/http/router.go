package http

import (
	"fmt"
	"net/http"

	"github.com/gdugdh24/rakshak-backend/internal/delivery/http/handler"
	"github.com/gdugdh24/rakshak-backend/internal/delivery/http/middleware"
	"github.com/gdugdh24/rakshak-backend/internal/health"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth      *handler.AuthHandler
	Profile   *handler.ProfileHandler
	Social    *handler.SocialHandler
	Emergency *handler.EmergencyHandler
	Live      *handler.LiveHandler
	Assistant *handler.AssistantHandler
	System    *handler.SystemHandler
}

// RateLimits are ulule limiter formats such as "5-M".
type RateLimits struct {
	SOS       string
	Assistant string
}

type Router struct {
	handlers       Handlers
	authMiddleware *middleware.AuthMiddleware
	breaker        *health.Breaker
	limits         RateLimits
	logger         *zap.Logger
}

func NewRouter(
	handlers Handlers,
	authMiddleware *middleware.AuthMiddleware,
	breaker *health.Breaker,
	limits RateLimits,
	logger *zap.Logger,
) *Router {
	return &Router{
		handlers:       handlers,
		authMiddleware: authMiddleware,
		breaker:        breaker,
		limits:         limits,
		logger:         logger,
	}
}

func (r *Router) Setup() (*gin.Engine, error) {
	sosLimit, err := middleware.RateLimit(r.limits.SOS)
	if err != nil {
		return nil, fmt.Errorf("sos rate limit: %w", err)
	}
	assistantLimit, err := middleware.RateLimit(r.limits.Assistant)
	if err != nil {
		return nil, fmt.Errorf("assistant rate limit: %w", err)
	}

	router := gin.New()
	router.Use(
		middleware.RequestLogger(r.logger),
		gin.Recovery(),
		middleware.Metrics(),
		middleware.BackendMode(r.breaker),
	)

	// Health check (supports both GET and HEAD)
	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"mode":   r.breaker.Mode(),
		})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := r.handlers
	requireAuth := r.authMiddleware.RequireAuth()

	// API v1
	v1 := router.Group("/api/v1")
	{
		// Auth routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/oauth", h.Auth.OAuth)
			auth.POST("/logout", requireAuth, h.Auth.Logout)
			auth.GET("/me", requireAuth, h.Auth.Me)
		}

		v1.GET("/system/backend", h.System.Backend)

		// Protected routes
		protected := v1.Group("")
		protected.Use(requireAuth)
		{
			profile := protected.Group("/profile")
			{
				profile.GET("/me", h.Profile.GetMyProfile)
				profile.PUT("/me", h.Profile.UpdateMyProfile)
				profile.PUT("/me/location", h.Profile.UpdateMyLocation)
				profile.PUT("/me/availability", h.Profile.SetMyAvailability)
				profile.POST("/me/contacts", h.Profile.AddEmergencyContact)
				profile.DELETE("/me/contacts/:contact_id", h.Profile.RemoveEmergencyContact)
				profile.GET("/me/badges", h.Profile.GetMyBadges)
				profile.GET("/:user_id", h.Profile.GetProfileByUserID)
			}

			community := protected.Group("/community")
			{
				community.GET("/leaderboard", h.Profile.Leaderboard)
				community.GET("/users", h.Profile.CommunityUsers)
				community.GET("/stats", h.Profile.CommunityStats)
			}

			social := protected.Group("/social")
			{
				social.POST("/follow/:user_id", h.Social.ToggleFollow)
				social.POST("/priority/:user_id", h.Social.TogglePriority)
				social.DELETE("/followers/:user_id", h.Social.RemoveFollower)
				social.POST("/block/:user_id", h.Social.BlockUser)
				social.DELETE("/block/:user_id", h.Social.UnblockUser)
				social.GET("/following", h.Social.ListFollowing)
				social.GET("/followers", h.Social.ListFollowers)
				social.GET("/following/:user_id/status", h.Social.FollowStatus)
			}

			emergencies := protected.Group("/emergencies")
			{
				emergencies.POST("", sosLimit, h.Emergency.Trigger)
				emergencies.GET("/open", h.Emergency.ListOpen)
				emergencies.GET("/live", h.Live.Live)
				emergencies.GET("/:id", h.Emergency.Get)
				emergencies.POST("/:id/accept", h.Emergency.Accept)
				emergencies.POST("/:id/deny", h.Emergency.Deny)
				emergencies.POST("/:id/resolve", h.Emergency.Resolve)
				emergencies.POST("/:id/classify", h.Emergency.Classify)
			}

			assistant := protected.Group("/assistant")
			assistant.Use(assistantLimit)
			{
				assistant.POST("/chat", h.Assistant.Chat)
				assistant.POST("/image", h.Assistant.Image)
				assistant.POST("/ask", h.Assistant.Ask)
				assistant.POST("/speech", h.Assistant.Speech)
			}

			protected.POST("/system/backend/reset", h.System.Reset)
		}
	}

	return router, nil
}
