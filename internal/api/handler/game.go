package handler

import (
	"log/slog"
	"net/http"

	"github.com/hardliner66/MageBattle/internal/session"
	"github.com/hardliner66/MageBattle/internal/transport/ws"
)

// Lobby is what the websocket endpoint hands connections to
type Lobby = session.Lobby

// GameHandler serves the websocket endpoint game clients connect to
type GameHandler struct {
	lobby  Lobby
	opts   ws.Options
	logger *slog.Logger
}

// NewGameHandler creates a new game handler
func NewGameHandler(lobby Lobby, opts ws.Options, logger *slog.Logger) *GameHandler {
	if opts.Logger == nil {
		opts.Logger = logger.With(slog.String("component", "ws"))
	}
	return &GameHandler{
		lobby:  lobby,
		opts:   opts,
		logger: logger,
	}
}

// Connect handles GET /game. It upgrades the request and runs the session
// until the connection ends.
func (h *GameHandler) Connect(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Open(w, r, h.opts)
	if err != nil {
		// the upgrader has already answered the request
		h.logger.Debug("websocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()))
		return
	}

	session.Serve(r.Context(), conn, h.lobby, h.logger)
}
