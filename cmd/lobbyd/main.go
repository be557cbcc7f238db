package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hardliner66/MageBattle/internal/api"
	"github.com/hardliner66/MageBattle/internal/factory"
	"github.com/hardliner66/MageBattle/internal/transport/ws"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	envErr := loadDotEnv(".env")
	opts, err := optionsFromEnv()
	if envErr == nil {
		envErr = err
	}

	cmd := &cobra.Command{
		Use:   "lobbyd",
		Short: "MageBattle lobby server",
		Long: `lobbyd runs the MageBattle lobby: players connect over a websocket on /game,
pick a display name, see who else is online and challenge each other to duels.

Settings are read from flags, falling back to LOBBY_* environment variables
(a .env file in the working directory is loaded first).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return envErr
			}
			return run(cmd.Context(), opts)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.listen, "listen", opts.listen, "Listen address (env: LOBBY_LISTEN)")
	flags.StringVar(&opts.seed, "seed", opts.seed, "Seed for reproducible identifiers, unset for crypto randomness (env: LOBBY_SEED)")
	flags.StringVar(&opts.logLevel, "log-level", opts.logLevel, "Log level: debug, info, warn, error (env: LOBBY_LOG_LEVEL)")
	flags.StringVar(&opts.storage, "storage", opts.storage, "Presence storage: memory, redis (env: LOBBY_STORAGE)")
	flags.StringVar(&opts.redisURL, "redis-url", opts.redisURL, "Redis URL for redis storage (env: LOBBY_REDIS_URL)")
	flags.DurationVar(&opts.challengeTTL, "challenge-ttl", opts.challengeTTL, "How long a challenge stays answerable, 0 disables expiry (env: LOBBY_CHALLENGE_TTL)")
	flags.IntVar(&opts.maxNameLength, "max-name-length", opts.maxNameLength, "Maximum display name length in characters (env: LOBBY_MAX_NAME_LENGTH)")

	return cmd
}

func run(ctx context.Context, opts options) error {
	level, err := parseLogLevel(opts.logLevel)
	if err != nil {
		return err
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg, err := opts.factoryConfig(logger)
	if err != nil {
		return err
	}

	// Create application factory
	app, err := factory.New(cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.Start(ctx)

	router := api.NewRouter(api.RouterConfig{
		Logger:    logger,
		Lobby:     app.Lobby,
		Roster:    app.Presence,
		WSOptions: ws.DefaultOptions(),
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Addr = opts.listen
	server := api.NewServer(router, serverConfig, logger)

	if err := server.Listen(); err != nil {
		logger.Error("failed to bind", slog.String("error", err.Error()))
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ctx)
	}()

	logger.Info("lobby server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.StorageType),
		slog.Duration("challenge_ttl", opts.challengeTTL))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
		}
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		return err
	}
	if err := <-errCh; err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
