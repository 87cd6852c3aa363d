package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Identity IdentityConfig
	Gemini   GeminiConfig
	Dispatch DispatchConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	AccessSecret      string
	AccessExpiryHours int
}

// IdentityConfig holds the secret shared with the OAuth identity provider.
type IdentityConfig struct {
	ProviderSecret string
}

type GeminiConfig struct {
	APIKey         string
	ChatModel      string
	AssistantModel string
	TTSModel       string
	TTSVoice       string
	Timeout        time.Duration
}

type DispatchConfig struct {
	DefaultLat         float64
	DefaultLng         float64
	HealthProbeSpec    string
	BreakerCooldown    time.Duration
	RateLimitSOS       string
	RateLimitAssistant string
}

type LoggingConfig struct {
	Level string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("JWT_ACCESS_EXPIRY_HOURS", 168)
	v.SetDefault("GEMINI_CHAT_MODEL", "gemini-1.5-pro")
	v.SetDefault("GEMINI_ASSISTANT_MODEL", "gemini-1.5-flash")
	v.SetDefault("GEMINI_TTS_MODEL", "gemini-2.5-flash-preview-tts")
	v.SetDefault("GEMINI_TTS_VOICE", "Zephyr")
	v.SetDefault("GEMINI_TIMEOUT", "20s")
	v.SetDefault("DEFAULT_LAT", 28.6139)
	v.SetDefault("DEFAULT_LNG", 77.2090)
	v.SetDefault("HEALTH_PROBE_SPEC", "@every 30s")
	v.SetDefault("BREAKER_COOLDOWN", "15s")
	v.SetDefault("RATE_LIMIT_SOS", "5-M")
	v.SetDefault("RATE_LIMIT_ASSISTANT", "30-M")
	v.SetDefault("LOG_LEVEL", "info")
}

// Load loads configuration from environment variables or .env file
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()
	setDefaults(v)

	// Try to read from .env file, but don't fail if it doesn't exist
	_ = v.ReadInConfig()

	config := FromViper(v)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Host:         v.GetString("SERVER_HOST"),
			Port:         v.GetInt("SERVER_PORT"),
			Env:          v.GetString("ENV"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSL_MODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			AccessSecret:      v.GetString("JWT_ACCESS_SECRET"),
			AccessExpiryHours: v.GetInt("JWT_ACCESS_EXPIRY_HOURS"),
		},
		Identity: IdentityConfig{
			ProviderSecret: v.GetString("IDENTITY_PROVIDER_SECRET"),
		},
		Gemini: GeminiConfig{
			APIKey:         v.GetString("GEMINI_API_KEY"),
			ChatModel:      v.GetString("GEMINI_CHAT_MODEL"),
			AssistantModel: v.GetString("GEMINI_ASSISTANT_MODEL"),
			TTSModel:       v.GetString("GEMINI_TTS_MODEL"),
			TTSVoice:       v.GetString("GEMINI_TTS_VOICE"),
			Timeout:        v.GetDuration("GEMINI_TIMEOUT"),
		},
		Dispatch: DispatchConfig{
			DefaultLat:         v.GetFloat64("DEFAULT_LAT"),
			DefaultLng:         v.GetFloat64("DEFAULT_LNG"),
			HealthProbeSpec:    v.GetString("HEALTH_PROBE_SPEC"),
			BreakerCooldown:    v.GetDuration("BREAKER_COOLDOWN"),
			RateLimitSOS:       v.GetString("RATE_LIMIT_SOS"),
			RateLimitAssistant: v.GetString("RATE_LIMIT_ASSISTANT"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}
}

// Validate validates critical configuration values
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}
	if c.JWT.AccessSecret == "" {
		return fmt.Errorf("JWT access secret is required")
	}
	if len(c.JWT.AccessSecret) < 32 {
		return fmt.Errorf("JWT access secret must be at least 32 characters")
	}
	if c.Identity.ProviderSecret == "" {
		return fmt.Errorf("identity provider secret is required")
	}
	if c.Dispatch.DefaultLat < -90 || c.Dispatch.DefaultLat > 90 ||
		c.Dispatch.DefaultLng < -180 || c.Dispatch.DefaultLng > 180 {
		return fmt.Errorf("default coordinate is out of range")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// GetAddr returns Redis address
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
