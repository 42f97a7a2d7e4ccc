// Package config loads runtime settings from an optional YAML file, a .env
// file and the process environment, in that order of precedence (env wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Match policies accepted by MATCH_POLICY.
const (
	PolicyCompatibility = "compatibility"
	PolicyFIFO          = "fifo"
)

// Config holds everything the server process needs at startup.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	// DatabaseURL enables the PostgreSQL archive when set.
	DatabaseURL string `yaml:"databaseURL"`
	// RedisAddr enables the event tap, ban mirror and rate limiting when set.
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	JWTSecret        string `yaml:"jwtSecret"`
	TelegramBotToken string `yaml:"telegramBotToken"`

	MatchPolicy       string        `yaml:"matchPolicy"`
	ReaperInterval    time.Duration `yaml:"reaperInterval"`
	InactivityTimeout time.Duration `yaml:"inactivityTimeout"`

	StartRateLimitPerMinute int `yaml:"startRateLimitPerMinute"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Port:                    "8081",
		LogLevel:                "info",
		MatchPolicy:             PolicyCompatibility,
		ReaperInterval:          DefaultReaperInterval,
		InactivityTimeout:       DefaultInactivityTimeout,
		StartRateLimitPerMinute: DefaultStartRateLimitPerMinute,
	}
}

// Load builds a Config. path may be empty, in which case only .env and the
// environment are consulted. A missing .env file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	_ = godotenv.Load()

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.TelegramBotToken = v
	}
	if v := os.Getenv("MATCH_POLICY"); v != "" {
		cfg.MatchPolicy = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("REAPER_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("config: REAPER_INTERVAL: %w", err)
		}
		cfg.ReaperInterval = d
	}
	if v := os.Getenv("INACTIVITY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("config: INACTIVITY_TIMEOUT: %w", err)
		}
		cfg.InactivityTimeout = d
	}
	if v := os.Getenv("START_RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("config: START_RATE_LIMIT_PER_MINUTE: %w", err)
		}
		cfg.StartRateLimitPerMinute = n
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("config: port is required")
	}
	if cfg.MatchPolicy != PolicyCompatibility && cfg.MatchPolicy != PolicyFIFO {
		return fmt.Errorf("config: unknown match policy %q", cfg.MatchPolicy)
	}
	if cfg.ReaperInterval <= 0 {
		return errors.New("config: reaperInterval must be positive")
	}
	if cfg.InactivityTimeout <= 0 {
		return errors.New("config: inactivityTimeout must be positive")
	}
	if cfg.StartRateLimitPerMinute < 0 {
		return errors.New("config: startRateLimitPerMinute must not be negative")
	}
	return nil
}
