package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hardliner66/MageBattle/internal/api/handler"
	"github.com/hardliner66/MageBattle/internal/api/middleware"
	sharedmw "github.com/hardliner66/MageBattle/internal/middleware"
	"github.com/hardliner66/MageBattle/internal/transport/ws"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger    *slog.Logger
	Lobby     handler.Lobby
	Roster    handler.Roster
	WSOptions ws.Options
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	gameHandler := handler.NewGameHandler(cfg.Lobby, cfg.WSOptions, cfg.Logger)
	statusHandler := handler.NewStatusHandler(cfg.Roster)

	// Logging is outermost so recovered panics are still logged
	r.Use(sharedmw.Logging(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))

	// Websocket endpoint for game clients
	r.HandleFunc("/game", gameHandler.Connect).Methods(http.MethodGet)

	// Liveness and roster
	r.HandleFunc("/status", statusHandler.Status).Methods(http.MethodGet)
	r.HandleFunc("/health", statusHandler.Health).Methods(http.MethodGet)
	r.HandleFunc("/players", statusHandler.Players).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handler.WriteError(w, handler.NewNotFoundError())
	})

	return r
}
