package storage

import (
	"context"

	"github.com/hardliner66/MageBattle/internal/model"
)

// Storage holds the presence mirror: a copy of the lobby roster kept for
// observers outside the lobby. It is never read back into the lobby.
type Storage interface {
	// SavePlayer inserts or replaces a player
	SavePlayer(ctx context.Context, player *model.Player) error
	// GetPlayer returns model.ErrPlayerNotFound for unknown ids
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	// DeletePlayer is a no-op for unknown ids
	DeletePlayer(ctx context.Context, id model.PlayerID) error
	// ListPlayers returns all players ordered by join time
	ListPlayers(ctx context.Context) ([]*model.Player, error)
	// Reset removes every player
	Reset(ctx context.Context) error
	// Close releases the backend
	Close() error
}
