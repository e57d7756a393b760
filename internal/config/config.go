package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend names the storage backend selected at process start.
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

// Config carries every setting the process reads. It is built once in Load
// and passed explicitly into constructors; nothing else reads the
// environment.
type Config struct {
	Stage        string   `yaml:"stage"`
	Port         string   `yaml:"port"`
	LogLevel     string   `yaml:"log_level"`
	AllowOrigins []string `yaml:"allow_origins"`

	// DatabaseURL selects the networked Postgres store when set; otherwise
	// the embedded SQLite store at SQLitePath is used.
	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`

	// StampToken is the shared secret printed into the QR code.
	StampToken string `yaml:"stamp_token"`

	CooldownSeconds int    `yaml:"cooldown_seconds"`
	StampThreshold  int    `yaml:"stamp_threshold"`
	RewardMessage   string `yaml:"reward_message"`

	// ResendAPIKey enables the reward email notifier when set.
	ResendAPIKey    string `yaml:"resend_api_key"`
	RewardFromEmail string `yaml:"reward_from_email"`

	OrganizationName string `yaml:"organization_name"`

	RateLimitPerSecond int `yaml:"rate_limit_per_second"`
	RateLimitBurst     int `yaml:"rate_limit_burst"`
}

// Load builds the configuration from, in order of precedence: environment
// variables, an optional YAML file named by CONFIG_FILE, and defaults. A
// .env file is loaded first when present so local development matches the
// deployed layout.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		// A missing .env is fine; a broken one is not.
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.StampToken == "" {
		return nil, fmt.Errorf("STAMP_TOKEN is required")
	}
	if cfg.StampThreshold < 2 {
		return nil, fmt.Errorf("stamp threshold must be at least 2, got %d", cfg.StampThreshold)
	}
	if cfg.CooldownSeconds < 0 {
		return nil, fmt.Errorf("cooldown seconds must not be negative, got %d", cfg.CooldownSeconds)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Stage:              "local",
		Port:               "8000",
		LogLevel:           "info",
		AllowOrigins:       []string{"http://localhost:3000", "http://localhost:5500"},
		SQLitePath:         "stampcard.db",
		CooldownSeconds:    120,
		StampThreshold:     10,
		RewardMessage:      "Congratulations! Your next visit is on us.",
		OrganizationName:   "Stampcard",
		RewardFromEmail:    "rewards@stampcard.example",
		RateLimitPerSecond: 10,
		RateLimitBurst:     20,
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Stage, "STAGE")
	setString(&cfg.Port, "PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.SQLitePath, "SQLITE_PATH")
	setString(&cfg.StampToken, "STAMP_TOKEN")
	setString(&cfg.RewardMessage, "REWARD_MESSAGE")
	setString(&cfg.ResendAPIKey, "RESEND_API_KEY")
	setString(&cfg.RewardFromEmail, "REWARD_FROM_EMAIL")
	setString(&cfg.OrganizationName, "ORGANIZATION_NAME")
	setInt(&cfg.CooldownSeconds, "COOLDOWN_SECONDS")
	setInt(&cfg.StampThreshold, "STAMP_THRESHOLD")
	setInt(&cfg.RateLimitPerSecond, "RATE_LIMIT_PER_SECOND")
	setInt(&cfg.RateLimitBurst, "RATE_LIMIT_BURST")

	if v := os.Getenv("ALLOW_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.AllowOrigins = origins
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

// StorageBackend reports which store implementation Load selected. The
// choice is made once here; request handlers never sniff backend types.
func (c *Config) StorageBackend() Backend {
	if c.DatabaseURL != "" {
		return BackendPostgres
	}
	return BackendSQLite
}

// Cooldown returns the minimum duration between two accepted stamps for the
// same customer.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}
