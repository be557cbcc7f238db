package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hardliner66/MageBattle/internal/api"
	"github.com/hardliner66/MageBattle/internal/factory"
	"github.com/hardliner66/MageBattle/internal/lobby"
	redisstorage "github.com/hardliner66/MageBattle/internal/storage/redis"
)

// options holds the server settings. Defaults come from LOBBY_* variables,
// flags override them.
type options struct {
	listen        string
	seed          string
	logLevel      string
	storage       string
	redisURL      string
	challengeTTL  time.Duration
	maxNameLength int
}

// loadDotEnv reads .env into the environment; a missing file is not an error
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// optionsFromEnv builds defaults from the environment
func optionsFromEnv() (options, error) {
	opts := options{
		listen:        getEnvOrDefault("LOBBY_LISTEN", api.DefaultListenAddr),
		seed:          os.Getenv("LOBBY_SEED"),
		logLevel:      getEnvOrDefault("LOBBY_LOG_LEVEL", "info"),
		storage:       getEnvOrDefault("LOBBY_STORAGE", factory.StorageTypeMemory),
		redisURL:      os.Getenv("LOBBY_REDIS_URL"),
		challengeTTL:  lobby.DefaultChallengeTTL,
		maxNameLength: lobby.DefaultMaxNameLength,
	}

	if v := os.Getenv("LOBBY_CHALLENGE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return opts, fmt.Errorf("LOBBY_CHALLENGE_TTL: %w", err)
		}
		opts.challengeTTL = ttl
	}

	if v := os.Getenv("LOBBY_MAX_NAME_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("LOBBY_MAX_NAME_LENGTH: %w", err)
		}
		opts.maxNameLength = n
	}

	return opts, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// parseLogLevel accepts debug, info, warn and error in any case
func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// factoryConfig validates the options and maps them onto the factory
func (o options) factoryConfig(logger *slog.Logger) (factory.Config, error) {
	cfg := factory.Config{
		Logger:      logger,
		StorageType: o.storage,
		Lobby: lobby.Config{
			MaxNameLength: o.maxNameLength,
			ChallengeTTL:  o.challengeTTL,
		},
	}

	if o.maxNameLength < 0 {
		return cfg, fmt.Errorf("max name length must not be negative, got %d", o.maxNameLength)
	}
	if o.challengeTTL < 0 {
		return cfg, fmt.Errorf("challenge ttl must not be negative, got %s", o.challengeTTL)
	}

	if o.seed != "" {
		seed, err := strconv.ParseInt(o.seed, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid seed %q: %w", o.seed, err)
		}
		cfg.Seed = &seed
	}

	switch o.storage {
	case factory.StorageTypeMemory:
	case factory.StorageTypeRedis:
		if o.redisURL == "" {
			return cfg, errors.New("--redis-url (LOBBY_REDIS_URL) is required with redis storage")
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = o.redisURL
		cfg.RedisConfig = &redisCfg
	default:
		return cfg, fmt.Errorf("invalid storage %q: must be %q or %q", o.storage, factory.StorageTypeMemory, factory.StorageTypeRedis)
	}

	return cfg, nil
}
