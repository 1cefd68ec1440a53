/*
Package config gathers process settings from the environment (.env is loaded
automatically) and from an optional YAML file of deployment constants.

Precedence, highest first: environment variables, the YAML file named by
PIPELINE_CONFIG, then the defaults below.
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"HealthMate_V0.1/internal/aiservice"
	"HealthMate_V0.1/internal/database"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"go.yaml.in/yaml/v4"
)

const (
	defaultPort           = 8080
	defaultTimezone       = "Local"
	defaultDayStart       = "09:00"
	defaultDayEnd         = "17:00"
	defaultMinimumSlot    = 30
	defaultChatMaxTurns   = 20
	defaultRequestTimeout = 60 * time.Second
	defaultRateLimit      = 30
	defaultProfileTTL     = 5 * time.Minute
)

// Pipeline holds the deployment constants that may come from YAML.
type Pipeline struct {
	Timezone string `yaml:"timezone"`

	WorkingHours struct {
		Start string `yaml:"start"`
		End   string `yaml:"end"`
	} `yaml:"working_hours"`

	MinimumSlotMinutes int `yaml:"minimum_slot_minutes"`
	ChatMaxTurns       int `yaml:"chat_max_turns"`

	// RateLimitPerMinute caps AI requests per client IP.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`

	ProfileCacheTTL time.Duration `yaml:"profile_cache_ttl"`
}

type Config struct {
	Port      int
	LogLevel  zerolog.Level
	JWTSecret string

	Database database.Config
	AI       aiservice.Config

	// RequestTimeout bounds a single provider call.
	RequestTimeout time.Duration

	Pipeline Pipeline

	location *time.Location
	dayStart time.Duration
	dayEnd   time.Duration
}

// Load reads the environment, overlays PIPELINE_CONFIG when set and validates the result.
func Load() (*Config, error) {
	cfg := defaults()

	// 1. YAML overlay
	if path := strings.TrimSpace(os.Getenv("PIPELINE_CONFIG")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read pipeline config: %w", err)
		}
		if err := cfg.overlay(data); err != nil {
			return nil, err
		}
	}

	// 2. Environment
	if err := cfg.fromEnv(os.Getenv); err != nil {
		return nil, err
	}

	// 3. Derived values
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{
		Port:           defaultPort,
		LogLevel:       zerolog.InfoLevel,
		RequestTimeout: defaultRequestTimeout,
		AI: aiservice.Config{
			Provider: aiservice.ProviderGemini,
		},
	}
	cfg.Pipeline.Timezone = defaultTimezone
	cfg.Pipeline.WorkingHours.Start = defaultDayStart
	cfg.Pipeline.WorkingHours.End = defaultDayEnd
	cfg.Pipeline.MinimumSlotMinutes = defaultMinimumSlot
	cfg.Pipeline.ChatMaxTurns = defaultChatMaxTurns
	cfg.Pipeline.RateLimitPerMinute = defaultRateLimit
	cfg.Pipeline.ProfileCacheTTL = defaultProfileTTL
	return cfg
}

// overlay decodes YAML on top of the current values; absent keys keep them.
func (c *Config) overlay(data []byte) error {
	if err := yaml.Unmarshal(data, &c.Pipeline); err != nil {
		return fmt.Errorf("failed to parse pipeline config: %w", err)
	}
	return nil
}

func (c *Config) fromEnv(getenv func(string) string) error {
	var err error

	if c.Port, err = envInt(getenv, "PORT", c.Port); err != nil {
		return err
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		lvl, perr := zerolog.ParseLevel(strings.ToLower(v))
		if perr != nil {
			return fmt.Errorf("invalid LOG_LEVEL %q: %w", v, perr)
		}
		c.LogLevel = lvl
	}
	c.JWTSecret = getenv("JWT_SECRET")

	c.Database = database.Config{
		Host:     getenv("BLUEPRINT_DB_HOST"),
		Port:     getenv("BLUEPRINT_DB_PORT"),
		Username: getenv("BLUEPRINT_DB_USERNAME"),
		Password: getenv("BLUEPRINT_DB_PASSWORD"),
		Database: getenv("BLUEPRINT_DB_DATABASE"),
		Schema:   getenv("BLUEPRINT_DB_SCHEMA"),
	}

	if v := getenv("AI_PROVIDER"); v != "" {
		c.AI.Provider = strings.ToLower(strings.TrimSpace(v))
	}
	c.AI.GeminiAPIKey = getenv("GEMINI_API_KEY")
	c.AI.GeminiModel = getenv("GEMINI_MODEL")
	c.AI.OpenAIAPIKey = getenv("OPENAI_API_KEY")
	c.AI.OpenAIModel = getenv("OPENAI_MODEL")
	c.AI.OpenAIBaseURL = getenv("OPENAI_BASE_URL")

	if v := getenv("AI_REQUEST_TIMEOUT"); v != "" {
		d, perr := parseTimeout(v)
		if perr != nil {
			return fmt.Errorf("invalid AI_REQUEST_TIMEOUT %q: %w", v, perr)
		}
		c.RequestTimeout = d
	}
	c.AI.Timeout = c.RequestTimeout

	if c.Pipeline.ChatMaxTurns, err = envInt(getenv, "CHAT_MAX_TURNS", c.Pipeline.ChatMaxTurns); err != nil {
		return err
	}
	if v := getenv("APP_TIMEZONE"); v != "" {
		c.Pipeline.Timezone = v
	}
	return nil
}

func (c *Config) resolve() error {
	switch c.AI.Provider {
	case aiservice.ProviderGemini, aiservice.ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported AI_PROVIDER %q", c.AI.Provider)
	}

	loc, err := time.LoadLocation(c.Pipeline.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Pipeline.Timezone, err)
	}
	c.location = loc

	if c.dayStart, err = clockOffset(c.Pipeline.WorkingHours.Start); err != nil {
		return fmt.Errorf("invalid working_hours.start: %w", err)
	}
	if c.dayEnd, err = clockOffset(c.Pipeline.WorkingHours.End); err != nil {
		return fmt.Errorf("invalid working_hours.end: %w", err)
	}
	if c.dayEnd <= c.dayStart {
		return fmt.Errorf("working hours end %s must be after start %s",
			c.Pipeline.WorkingHours.End, c.Pipeline.WorkingHours.Start)
	}

	if c.Pipeline.MinimumSlotMinutes <= 0 {
		return fmt.Errorf("minimum_slot_minutes must be positive, got %d", c.Pipeline.MinimumSlotMinutes)
	}
	if c.Pipeline.ChatMaxTurns <= 0 {
		return fmt.Errorf("chat max turns must be positive, got %d", c.Pipeline.ChatMaxTurns)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	return nil
}

// Location is the zone "today" and working hours are evaluated in.
func (c *Config) Location() *time.Location { return c.location }

// WorkingWindow returns the daily window as offsets from midnight.
func (c *Config) WorkingWindow() (start, end time.Duration) { return c.dayStart, c.dayEnd }

func (c *Config) MinimumSlot() time.Duration {
	return time.Duration(c.Pipeline.MinimumSlotMinutes) * time.Minute
}

func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

func envInt(getenv func(string) string, key string, def int) (int, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

// parseTimeout accepts a Go duration ("45s") or a bare number of seconds.
func parseTimeout(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func clockOffset(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
