package container

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/config"
	"github.com/gdugdh24/rakshak-backend/internal/delivery/http"
	"github.com/gdugdh24/rakshak-backend/internal/delivery/http/handler"
	"github.com/gdugdh24/rakshak-backend/internal/delivery/http/middleware"
	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/gdugdh24/rakshak-backend/internal/health"
	"github.com/gdugdh24/rakshak-backend/internal/infrastructure/database"
	"github.com/gdugdh24/rakshak-backend/internal/infrastructure/gemini"
	"github.com/gdugdh24/rakshak-backend/internal/infrastructure/scheduler"
	"github.com/gdugdh24/rakshak-backend/internal/infrastructure/server"
	"github.com/gdugdh24/rakshak-backend/internal/repository/postgres"
	"github.com/gdugdh24/rakshak-backend/internal/repository/redisstore"
	"github.com/gdugdh24/rakshak-backend/internal/usecase/assistant"
	"github.com/gdugdh24/rakshak-backend/internal/usecase/auth"
	"github.com/gdugdh24/rakshak-backend/internal/usecase/dispatch"
	"github.com/gdugdh24/rakshak-backend/internal/usecase/profile"
	"github.com/gdugdh24/rakshak-backend/internal/usecase/social"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Container holds all application dependencies
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *sqlx.DB
	Redis   *redis.Client
	Breaker *health.Breaker
	Feed    *dispatch.Feed
	Cron    *scheduler.Cron
	Server  *server.Server
	Gemini  *gemini.GeminiClient

	migrated atomic.Bool
}

// NewLogger builds the process logger. Development uses the console encoder.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// NewContainer creates a new dependency injection container. A database or
// Redis that is down at startup does not fail it; the breaker starts
// compromised and the probe job restores live mode.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	c := &Container{Config: cfg, Logger: logger}

	// Initialize database
	db, dbErr := database.NewPostgresDB(ctx, &cfg.Database)
	if db == nil {
		return nil, fmt.Errorf("failed to initialize database: %w", dbErr)
	}
	c.DB = db

	// Initialize Redis
	redisClient, redisErr := database.NewRedisClient(ctx, &cfg.Redis)
	c.Redis = redisClient

	c.Breaker = health.NewBreaker(cfg.Dispatch.BreakerCooldown, logger.Named("breaker"),
		health.Check{Name: "postgres", Ping: db.PingContext},
		health.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}},
	)

	// Pending migrations run before the breaker goes live again, whether the
	// probe job or POST /system/backend/reset brought it back.
	c.Breaker.OnRecover(c.migrate)

	switch {
	case dbErr != nil:
		c.Breaker.Trip(fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, dbErr))
	case redisErr != nil:
		c.Breaker.Trip(fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, redisErr))
	default:
		if err := c.migrate(ctx); err != nil {
			if !postgres.IsUnavailable(err) {
				return nil, err
			}
			c.Breaker.Trip(fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err))
		}
	}

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	relRepo := postgres.NewRelationshipRepository(db)
	emergencyRepo := postgres.NewEmergencyRepository(db)
	sessionRepo := redisstore.NewSessionRepository(redisClient)
	eventBus := redisstore.NewEmergencyEventBus(redisClient, logger.Named("events"))

	// Initialize use cases
	profileUseCase := profile.NewProfileUseCase(
		userRepo,
		emergencyRepo,
		c.Breaker,
		logger.Named("profile"),
	)

	authUseCase := auth.NewAuthUseCase(
		profileUseCase,
		userRepo,
		sessionRepo,
		c.Breaker,
		logger.Named("auth"),
		cfg.JWT.AccessSecret,
		cfg.Identity.ProviderSecret,
		time.Duration(cfg.JWT.AccessExpiryHours)*time.Hour,
	)

	socialUseCase := social.NewSocialUseCase(
		relRepo,
		userRepo,
		c.Breaker,
		logger.Named("social"),
	)

	dispatchUseCase := dispatch.NewDispatchUseCase(
		emergencyRepo,
		eventBus,
		profileUseCase,
		socialUseCase,
		c.Breaker,
		logger.Named("dispatch"),
		domain.GeoPoint{Lat: cfg.Dispatch.DefaultLat, Lng: cfg.Dispatch.DefaultLng},
	)

	c.Feed = dispatch.NewFeed(eventBus, dispatchUseCase, c.Breaker, logger.Named("feed"))

	assistantUseCase, err := c.newAssistant(ctx, dispatchUseCase)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Cron = scheduler.NewCron(logger.Named("cron"))
	if _, err := c.Cron.AddWithCtx("backend-probe", cfg.Dispatch.HealthProbeSpec, c.probe); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to schedule health probe: %w", err)
	}

	// Initialize handlers
	handlers := http.Handlers{
		Auth:      handler.NewAuthHandler(authUseCase, profileUseCase),
		Profile:   handler.NewProfileHandler(profileUseCase),
		Social:    handler.NewSocialHandler(socialUseCase),
		Emergency: handler.NewEmergencyHandler(dispatchUseCase),
		Live:      handler.NewLiveHandler(c.Feed, logger.Named("live")),
		Assistant: handler.NewAssistantHandler(assistantUseCase),
		System:    handler.NewSystemHandler(c.Breaker),
	}

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(authUseCase)

	// Initialize router
	router := http.NewRouter(
		handlers,
		authMiddleware,
		c.Breaker,
		http.RateLimits{
			SOS:       cfg.Dispatch.RateLimitSOS,
			Assistant: cfg.Dispatch.RateLimitAssistant,
		},
		logger.Named("http"),
	)

	// Setup routes
	ginRouter, err := router.Setup()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to set up routes: %w", err)
	}

	// Initialize server
	c.Server = server.NewServer(&cfg.Server, ginRouter, logger.Named("server"))

	return c, nil
}

// newAssistant wires the hosted model when an API key is configured.
// Without one every assistant call answers with its scripted fallback.
func (c *Container) newAssistant(ctx context.Context, classifier assistant.Classifier) (*assistant.AssistantUseCase, error) {
	var (
		generator assistant.Generator
		speaker   assistant.Speaker
	)
	if c.Config.Gemini.APIKey != "" {
		client, err := gemini.NewGeminiClient(ctx, c.Config.Gemini)
		if err != nil {
			c.Logger.Warn("failed to initialize gemini client, assistant runs on fallbacks", zap.Error(err))
		} else {
			c.Gemini = client
			generator = client
		}
		speaker = gemini.NewSpeechClient(c.Config.Gemini)
	} else {
		c.Logger.Warn("GEMINI_API_KEY not set, assistant runs on fallbacks")
	}

	uc, err := assistant.NewAssistantUseCase(generator, speaker, classifier, c.Logger.Named("assistant"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize assistant: %w", err)
	}
	return uc, nil
}

func (c *Container) migrate(ctx context.Context) error {
	if c.migrated.Load() {
		return nil
	}
	if err := database.Migrate(ctx, c.DB, database.Migrations, c.Logger.Named("migrate")); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	c.migrated.Store(true)
	return nil
}

// probe runs on the cron schedule.
func (c *Container) probe(ctx context.Context) {
	if c.Breaker.Compromised() {
		c.Breaker.Probe(ctx)
	}
}

// Start launches the background workers. The HTTP server is started by the
// caller.
func (c *Container) Start(ctx context.Context) {
	c.Feed.Start(ctx)
	c.Cron.Start()
}

// Close closes all connections
func (c *Container) Close() error {
	if c.Cron != nil {
		c.Cron.Stop()
	}
	if c.Feed != nil {
		c.Feed.Stop()
	}
	if c.Gemini != nil {
		c.Gemini.Close()
	}

	// Close Redis
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("error closing redis", zap.Error(err))
		}
	}

	var dbErr error
	// Close database
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			dbErr = fmt.Errorf("failed to close database: %w", err)
		}
	}

	_ = c.Logger.Sync()
	return dbErr
}
