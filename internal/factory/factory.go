package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/hardliner66/MageBattle/internal/dependencies/clock"
	"github.com/hardliner66/MageBattle/internal/dependencies/random"
	"github.com/hardliner66/MageBattle/internal/lobby"
	"github.com/hardliner66/MageBattle/internal/presence"
	"github.com/hardliner66/MageBattle/internal/storage"
	"github.com/hardliner66/MageBattle/internal/storage/memory"
	redisstorage "github.com/hardliner66/MageBattle/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage backs the presence mirror
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Lobby    *lobby.Lobby
	Presence *presence.Recorder
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// Lobby tunes the lobby; zero fields take lobby defaults
	Lobby lobby.Config
	// Seed makes generated identifiers reproducible (optional)
	// If nil, identifiers come from crypto/rand
	Seed *int64
	// PresenceBuffer is the number of roster events that may queue (optional)
	PresenceBuffer int
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	// Create external dependencies
	clk := clock.New()
	var rnd random.Random = random.New()
	if cfg.Seed != nil {
		rnd = random.NewSeeded(*cfg.Seed)
		logger.Info("using seeded identifiers", slog.Int64("seed", *cfg.Seed))
	}

	return newWithDependencies(store, clk, rnd, cfg.Lobby, cfg.PresenceBuffer, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, lobbyCfg lobby.Config, presenceBuffer int, logger *slog.Logger) *App {
	recorder := presence.NewRecorder(store, presenceBuffer, logger)
	lb := lobby.New(lobbyCfg, clk, rnd, recorder, logger)

	return &App{
		Storage:  store,
		Clock:    clk,
		Random:   rnd,
		Lobby:    lb,
		Presence: recorder,
	}
}

// Start runs the lobby and the presence recorder until ctx is cancelled
func (a *App) Start(ctx context.Context) {
	go a.Presence.Run(ctx)
	go a.Lobby.Run(ctx)
}

// Close releases the storage backend
func (a *App) Close() error {
	return a.Storage.Close()
}
