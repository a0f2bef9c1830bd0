// Package config loads the service configuration.
//
// Values are layered in this order, later layers winning:
//   - built-in defaults
//   - an optional TOML file
//   - a .env file in the working directory (loaded into the environment)
//   - environment variables
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

const (
	// Gatekeeper
	DefaultGatePassword = "open"
	GateTokenTTL        = time.Hour
	SessionTokenTTL     = 72 * time.Hour

	// Storage
	DefaultStorageKey = "KV_DATA_V1"

	// AI
	DefaultModel             = "gemini-3-pro-preview"
	DefaultSystemInstruction = "你是一個安全聊天應用程式中樂於助人且聰明的助理。請保持回答簡潔並格式化良好。請主要使用繁體中文與使用者互動。"

	// Chat
	DefaultPollInterval = time.Second
)

// Config is the complete service configuration.
type Config struct {
	HTTPAddr     string `toml:"http_addr" validate:"required"`
	GatePassword string `toml:"gate_password" validate:"required"`
	JWTSecret    string `toml:"jwt_secret" validate:"required,min=16"`
	// Language is the default locale for user-facing strings.
	Language string `toml:"language" validate:"required"`

	Storage StorageConfig `toml:"storage"`
	Admin   AdminConfig   `toml:"admin"`
	AI      AIConfig      `toml:"ai"`
	Geo     GeoConfig     `toml:"geo"`
	Chat    ChatConfig    `toml:"chat"`
}

// StorageConfig selects and configures the KV backend.
type StorageConfig struct {
	Backend     string `toml:"backend" validate:"oneof=memory sqlite redis postgres"`
	Key         string `toml:"key" validate:"required"`
	SQLitePath  string `toml:"sqlite_path" validate:"required_if=Backend sqlite"`
	RedisAddr   string `toml:"redis_addr" validate:"required_if=Backend redis"`
	RedisPass   string `toml:"redis_password"`
	RedisDB     int    `toml:"redis_db" validate:"gte=0"`
	PostgresDSN string `toml:"postgres_dsn" validate:"required_if=Backend postgres"`
}

// AdminConfig holds the bootstrap administrator credentials.
type AdminConfig struct {
	Username string `toml:"username" validate:"required"`
	Password string `toml:"password" validate:"required"`
}

// AIConfig configures the generative-AI pane.
type AIConfig struct {
	APIKey            string `toml:"api_key"`
	Model             string `toml:"model" validate:"required"`
	SystemInstruction string `toml:"system_instruction"`
	// RequestsPerMinute limits AI turns per user; 0 disables the limit.
	RequestsPerMinute int `toml:"requests_per_minute" validate:"gte=0"`
}

// GeoConfig configures the login geolocation lookup.
type GeoConfig struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint" validate:"required_if=Enabled true"`
	TimeoutMS int    `toml:"timeout_ms" validate:"gte=0"`
}

// ChatConfig configures conversation polling.
type ChatConfig struct {
	PollIntervalMS int `toml:"poll_interval_ms" validate:"gt=0"`
}

// PollInterval returns the poll period as a duration.
func (c ChatConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Timeout returns the lookup timeout as a duration.
func (c GeoConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPAddr:     ":8080",
		GatePassword: DefaultGatePassword,
		JWTSecret:    "change-me-in-production-please",
		Language:     "zh-TW",
		Storage: StorageConfig{
			Backend:    "sqlite",
			Key:        DefaultStorageKey,
			SQLitePath: "data/securechat.db",
			RedisAddr:  "localhost:6379",
		},
		Admin: AdminConfig{
			Username: "admin",
			Password: "12345",
		},
		AI: AIConfig{
			Model:             DefaultModel,
			SystemInstruction: DefaultSystemInstruction,
			RequestsPerMinute: 20,
		},
		Geo: GeoConfig{
			Enabled:   true,
			Endpoint:  "https://ipapi.co",
			TimeoutMS: 5000,
		},
		Chat: ChatConfig{
			PollIntervalMS: int(DefaultPollInterval / time.Millisecond),
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load builds the configuration from defaults, the TOML file at path (skipped
// when path is empty or the file does not exist), .env and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
			log.Printf("WARNING: config file %s not found, using defaults", path)
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for missing or inconsistent values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.HTTPAddr, "HTTP_ADDR")
	setString(&c.GatePassword, "GATE_PASSWORD")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.Language, "APP_LANGUAGE")

	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.Key, "STORAGE_KEY")
	setString(&c.Storage.SQLitePath, "SQLITE_PATH")
	setString(&c.Storage.RedisAddr, "REDIS_ADDR")
	setString(&c.Storage.RedisPass, "REDIS_PASSWORD")
	if err := setInt(&c.Storage.RedisDB, "REDIS_DB"); err != nil {
		return err
	}
	setString(&c.Storage.PostgresDSN, "POSTGRES_DSN")
	if url := os.Getenv("DATABASE_URL"); url != "" {
		dsn, err := postgresDSN(url)
		if err != nil {
			return err
		}
		c.Storage.PostgresDSN = dsn
	}

	setString(&c.Admin.Username, "ADMIN_USERNAME")
	setString(&c.Admin.Password, "ADMIN_PASSWORD")

	// GEMINI_API_KEY takes precedence over the generic API_KEY.
	setString(&c.AI.APIKey, "API_KEY")
	setString(&c.AI.APIKey, "GEMINI_API_KEY")
	setString(&c.AI.Model, "AI_MODEL")
	if err := setInt(&c.AI.RequestsPerMinute, "AI_REQUESTS_PER_MINUTE"); err != nil {
		return err
	}

	setString(&c.Geo.Endpoint, "GEO_ENDPOINT")
	if v := os.Getenv("GEO_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid GEO_ENABLED %q: %w", v, err)
		}
		c.Geo.Enabled = enabled
	}

	return setInt(&c.Chat.PollIntervalMS, "POLL_INTERVAL_MS")
}

// postgresDSN accepts either a key=value DSN or a postgres:// URL.
func postgresDSN(v string) (string, error) {
	if !strings.HasPrefix(v, "postgres://") && !strings.HasPrefix(v, "postgresql://") {
		return v, nil
	}
	dsn, err := pq.ParseURL(v)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	return dsn, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}
