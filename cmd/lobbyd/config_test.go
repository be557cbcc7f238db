package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardliner66/MageBattle/internal/api"
	"github.com/hardliner66/MageBattle/internal/factory"
	"github.com/hardliner66/MageBattle/internal/lobby"
	"github.com/hardliner66/MageBattle/internal/testutil"
)

func clearLobbyEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LOBBY_LISTEN", "LOBBY_SEED", "LOBBY_LOG_LEVEL", "LOBBY_STORAGE",
		"LOBBY_REDIS_URL", "LOBBY_CHALLENGE_TTL", "LOBBY_MAX_NAME_LENGTH",
	} {
		t.Setenv(key, "")
	}
}

func TestOptionsDefaults(t *testing.T) {
	clearLobbyEnv(t)

	opts, err := optionsFromEnv()
	require.NoError(t, err)

	assert.Equal(t, api.DefaultListenAddr, opts.listen)
	assert.Equal(t, "", opts.seed)
	assert.Equal(t, "info", opts.logLevel)
	assert.Equal(t, factory.StorageTypeMemory, opts.storage)
	assert.Equal(t, lobby.DefaultChallengeTTL, opts.challengeTTL)
	assert.Equal(t, lobby.DefaultMaxNameLength, opts.maxNameLength)
}

func TestOptionsFromEnvironment(t *testing.T) {
	clearLobbyEnv(t)
	t.Setenv("LOBBY_LISTEN", "0.0.0.0:4000")
	t.Setenv("LOBBY_SEED", "42")
	t.Setenv("LOBBY_LOG_LEVEL", "debug")
	t.Setenv("LOBBY_STORAGE", "redis")
	t.Setenv("LOBBY_REDIS_URL", "redis://cache:6379")
	t.Setenv("LOBBY_CHALLENGE_TTL", "30s")
	t.Setenv("LOBBY_MAX_NAME_LENGTH", "12")

	opts, err := optionsFromEnv()
	require.NoError(t, err)

	assert.Equal(t, options{
		listen:        "0.0.0.0:4000",
		seed:          "42",
		logLevel:      "debug",
		storage:       "redis",
		redisURL:      "redis://cache:6379",
		challengeTTL:  30 * time.Second,
		maxNameLength: 12,
	}, opts)
}

func TestOptionsFromEnvironmentRejectsBadValues(t *testing.T) {
	clearLobbyEnv(t)
	t.Setenv("LOBBY_CHALLENGE_TTL", "soon")
	_, err := optionsFromEnv()
	assert.ErrorContains(t, err, "LOBBY_CHALLENGE_TTL")

	clearLobbyEnv(t)
	t.Setenv("LOBBY_MAX_NAME_LENGTH", "long")
	_, err = optionsFromEnv()
	assert.ErrorContains(t, err, "LOBBY_MAX_NAME_LENGTH")
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	clearLobbyEnv(t)
	t.Setenv("LOBBY_LISTEN", "0.0.0.0:4000")
	t.Chdir(t.TempDir())

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--listen", "127.0.0.1:5000", "--challenge-ttl", "0s"}))

	listen, err := cmd.Flags().GetString("listen")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5000", listen)

	ttl, err := cmd.Flags().GetDuration("challenge-ttl")
	require.NoError(t, err)
	assert.Zero(t, ttl)
}

func TestLoadDotEnv(t *testing.T) {
	clearLobbyEnv(t)
	require.NoError(t, os.Unsetenv("LOBBY_LISTEN"))

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOBBY_LISTEN=127.0.0.1:6000\n"), 0o600))

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "127.0.0.1:6000", os.Getenv("LOBBY_LISTEN"))

	assert.NoError(t, loadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		level, err := parseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, level, in)
	}

	_, err := parseLogLevel("loud")
	assert.Error(t, err)
}

func TestFactoryConfig(t *testing.T) {
	logger := testutil.NopLogger()

	cfg, err := options{storage: "memory", seed: "7", challengeTTL: time.Minute, maxNameLength: 10}.factoryConfig(logger)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.StorageType)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, int64(7), *cfg.Seed)
	assert.Equal(t, time.Minute, cfg.Lobby.ChallengeTTL)
	assert.Equal(t, 10, cfg.Lobby.MaxNameLength)
	assert.Nil(t, cfg.RedisConfig)

	cfg, err = options{storage: "redis", redisURL: "redis://cache:6379"}.factoryConfig(logger)
	require.NoError(t, err)
	require.NotNil(t, cfg.RedisConfig)
	assert.Equal(t, "redis://cache:6379", cfg.RedisConfig.URL)
	assert.Nil(t, cfg.Seed)
}

func TestFactoryConfigRejectsInvalidOptions(t *testing.T) {
	logger := testutil.NopLogger()

	tests := map[string]options{
		"bad seed":          {storage: "memory", seed: "abc"},
		"unknown storage":   {storage: "disk"},
		"redis without url": {storage: "redis"},
		"negative ttl":      {storage: "memory", challengeTTL: -time.Second},
		"negative length":   {storage: "memory", maxNameLength: -1},
	}
	for name, opts := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := opts.factoryConfig(logger)
			assert.Error(t, err)
		})
	}
}
