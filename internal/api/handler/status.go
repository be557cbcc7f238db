package handler

import (
	"context"
	"net/http"

	"github.com/hardliner66/MageBattle/internal/api/response"
	"github.com/hardliner66/MageBattle/internal/model"
)

// StatusText is the body of the status endpoint
const StatusText = "hello"

// Roster provides the mirrored player list
type Roster interface {
	Roster(ctx context.Context) ([]*model.Player, error)
}

// StatusHandler serves the liveness and roster endpoints
type StatusHandler struct {
	roster Roster
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(roster Roster) *StatusHandler {
	return &StatusHandler{roster: roster}
}

// Status handles GET /status
func (h *StatusHandler) Status(w http.ResponseWriter, _ *http.Request) {
	response.Text(w, http.StatusOK, StatusText)
}

// Health handles GET /health
func (h *StatusHandler) Health(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.HealthResponse{Status: "ok"})
}

// Players handles GET /players
func (h *StatusHandler) Players(w http.ResponseWriter, r *http.Request) {
	players, err := h.roster.Roster(r.Context())
	if err != nil {
		WriteError(w, NewUnavailableError("Roster unavailable"))
		return
	}
	response.JSON(w, http.StatusOK, response.PlayersFromModel(players))
}
