// Package config loads application configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// Store drivers.
const (
	StoreJSON     = "json"
	StorePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	App           AppConfig
	Store         StoreConfig
	Redis         RedisConfig
	Telegram      TelegramConfig
	Tracking      TrackingConfig
	HTTP          HTTPConfig
	Observability ObservabilityConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string
	Environment Environment
	Debug       bool
	Version     string

	// Timezone defines day boundaries and cron schedules (default: UTC).
	Timezone string
	Location *time.Location

	ShutdownTimeout time.Duration
}

// StoreConfig selects where the user collection lives.
type StoreConfig struct {
	// Driver is "json" or "postgres".
	Driver string

	// JSONPath is the document path for the json driver.
	JSONPath string

	// DatabaseURL is required for the postgres driver.
	DatabaseURL    string
	MaxConns       int
	MigrateOnStart bool
}

// RedisConfig holds Redis connection settings for the leaderboard cache.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// LeaderboardTTL bounds staleness if an invalidation is lost.
	LeaderboardTTL time.Duration
}

// KnownUser is a user bootstrapped at start and included in reminders.
type KnownUser struct {
	ID   string
	Name string
}

// TelegramConfig holds Telegram Bot settings.
type TelegramConfig struct {
	// Token from @BotFather.
	Token string

	// WaterChatID is the shared chat for reminders and announcements.
	WaterChatID int64

	// ReminderUsers come from TELEGRAM_REMINDER_USERS="id:name,id:name".
	ReminderUsers []KnownUser

	PollingTimeout time.Duration

	// UserRateLimit is commands per minute per user, UserRateBurst the bucket size.
	UserRateLimit int
	UserRateBurst int
}

// TrackingConfig holds hydration rules and schedules.
type TrackingConfig struct {
	DefaultGoalMl int

	StrictStreak      bool
	ResetStreakOnMiss bool

	ReminderInterval time.Duration
	ReminderCron     string
	KickoffCron      string

	QuickAmounts []int
}

// HTTPConfig holds the API server settings.
type HTTPConfig struct {
	Enabled bool
	Host    string
	Port    int
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel       string // debug, info, warn, error
	LogFormat      string // json, text
	MetricsEnabled bool
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first if present; real environment wins.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		App:           loadAppConfig(),
		Store:         loadStoreConfig(),
		Redis:         loadRedisConfig(),
		Tracking:      loadTrackingConfig(),
		HTTP:          loadHTTPConfig(),
		Observability: loadObservabilityConfig(),
	}

	var err error
	cfg.Telegram, err = loadTelegramConfig()
	if err != nil {
		return nil, fmt.Errorf("telegram config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func loadAppConfig() AppConfig {
	env := Environment(getEnv("APP_ENV", string(EnvDevelopment)))
	timezone := getEnv("APP_TIMEZONE", "UTC")

	// Validate reports a bad timezone; Location stays nil until then.
	loc, _ := time.LoadLocation(timezone)

	return AppConfig{
		Name:            getEnv("APP_NAME", "hydromate-bot"),
		Environment:     env,
		Debug:           getEnvBool("APP_DEBUG", false),
		Version:         getEnv("APP_VERSION", "0.1.0"),
		Timezone:        timezone,
		Location:        loc,
		ShutdownTimeout: getEnvDuration("APP_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func loadStoreConfig() StoreConfig {
	return StoreConfig{
		Driver:         strings.ToLower(getEnv("STORE_DRIVER", StoreJSON)),
		JSONPath:       getEnv("STORE_JSON_PATH", "data/water_tracker.json"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MaxConns:       getEnvInt("DB_MAX_CONNS", 4),
		MigrateOnStart: getEnvBool("DB_MIGRATE_ON_START", true),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:        getEnvBool("REDIS_ENABLED", false),
		Host:           getEnv("REDIS_HOST", "localhost"),
		Port:           getEnvInt("REDIS_PORT", 6379),
		Password:       getEnv("REDIS_PASSWORD", ""),
		DB:             getEnvInt("REDIS_DB", 0),
		PoolSize:       getEnvInt("REDIS_POOL_SIZE", 5),
		DialTimeout:    getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:    getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout:   getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		LeaderboardTTL: getEnvDuration("REDIS_LEADERBOARD_TTL", 10*time.Minute),
	}
}

func loadTelegramConfig() (TelegramConfig, error) {
	users, err := ParseKnownUsers(getEnv("TELEGRAM_REMINDER_USERS", ""))
	if err != nil {
		return TelegramConfig{}, err
	}

	return TelegramConfig{
		Token:          getEnv("TELEGRAM_BOT_TOKEN", ""),
		WaterChatID:    getEnvInt64("TELEGRAM_WATER_CHAT_ID", 0),
		ReminderUsers:  users,
		PollingTimeout: getEnvDuration("TELEGRAM_POLLING_TIMEOUT", 30*time.Second),
		UserRateLimit:  getEnvInt("TELEGRAM_USER_RATE_LIMIT", 20),
		UserRateBurst:  getEnvInt("TELEGRAM_USER_RATE_BURST", 5),
	}, nil
}

func loadTrackingConfig() TrackingConfig {
	return TrackingConfig{
		DefaultGoalMl:     getEnvInt("WATER_DEFAULT_GOAL_ML", 2000),
		StrictStreak:      getEnvBool("WATER_STRICT_STREAK", false),
		ResetStreakOnMiss: getEnvBool("WATER_RESET_STREAK_ON_MISS", false),
		ReminderInterval:  getEnvDuration("WATER_REMINDER_INTERVAL", 90*time.Minute),
		ReminderCron:      getEnv("WATER_REMINDER_CRON", "0 8-22/2 * * *"),
		KickoffCron:       getEnv("WATER_KICKOFF_CRON", "0 0 * * *"),
		QuickAmounts:      getEnvIntSlice("WATER_QUICK_AMOUNTS", []int{250, 500, 750, 1000}),
	}
}

func loadHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Enabled: getEnvBool("HTTP_ENABLED", true),
		Host:    getEnv("HTTP_HOST", "0.0.0.0"),
		Port:    getEnvInt("HTTP_PORT", 8080),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Telegram.Token == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}
	if c.App.Location == nil {
		errs = append(errs, fmt.Sprintf("APP_TIMEZONE %q is not a known timezone", c.App.Timezone))
	}

	switch c.Store.Driver {
	case StoreJSON:
		if c.Store.JSONPath == "" {
			errs = append(errs, "STORE_JSON_PATH is required for the json store")
		}
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required for the postgres store")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORE_DRIVER must be %q or %q", StoreJSON, StorePostgres))
	}

	if c.Tracking.DefaultGoalMl <= 0 {
		errs = append(errs, "WATER_DEFAULT_GOAL_ML must be positive")
	}
	if c.Tracking.ReminderInterval <= 0 {
		errs = append(errs, "WATER_REMINDER_INTERVAL must be positive")
	}
	for _, amount := range c.Tracking.QuickAmounts {
		if amount <= 0 {
			errs = append(errs, "WATER_QUICK_AMOUNTS must be positive integers")
			break
		}
	}

	if len(c.Telegram.ReminderUsers) > 0 && c.Telegram.WaterChatID == 0 {
		errs = append(errs, "TELEGRAM_WATER_CHAT_ID is required when TELEGRAM_REMINDER_USERS is set")
	}
	if c.HTTP.Enabled && (c.HTTP.Port <= 0 || c.HTTP.Port > 65535) {
		errs = append(errs, "HTTP_PORT must be 1-65535")
	}
	if _, err := ParseLogLevel(c.Observability.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// ReminderUserIDs returns the ids of the configured known users.
func (c *Config) ReminderUserIDs() []string {
	ids := make([]string, 0, len(c.Telegram.ReminderUsers))
	for _, u := range c.Telegram.ReminderUsers {
		ids = append(ids, u.ID)
	}
	return ids
}

// ParseKnownUsers parses "id:name,id:name". A missing name defaults to the id.
func ParseKnownUsers(raw string) ([]KnownUser, error) {
	var users []KnownUser
	seen := make(map[string]bool)

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, name, _ := strings.Cut(part, ":")
		id, name = strings.TrimSpace(id), strings.TrimSpace(name)
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid user id %q in TELEGRAM_REMINDER_USERS", id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		if name == "" {
			name = id
		}
		users = append(users, KnownUser{ID: id, Name: name})
	}
	return users, nil
}

// ParseLogLevel maps LOG_LEVEL to a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", level)
	}
}

// --- Helper functions for environment variable parsing ---

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvIntSlice(key string, defaultVal []int) []int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}

	parts := strings.Split(val, ",")
	result := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		i, err := strconv.Atoi(p)
		if err != nil {
			// Validate rejects the whole list.
			i = -1
		}
		result = append(result, i)
	}
	return result
}
