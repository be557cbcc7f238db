package middleware

import (
	"log/slog"
	"net/http"

	"github.com/hardliner66/MageBattle/internal/api/apierr"
	"github.com/hardliner66/MageBattle/internal/middleware"
)

// Recovery creates panic recovery middleware for the lobby's HTTP surface.
// Plain endpoints get a JSON INTERNAL_ERROR body; upgraded websocket
// connections are left to their session.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger.With(slog.String("component", "http")), writeInternalError)
}

func writeInternalError(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}
