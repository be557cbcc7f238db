package response

import (
	"time"

	"github.com/hardliner66/MageBattle/internal/model"
)

// Player represents a player in API responses
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	InGame   bool      `json:"in_game"`
	JoinedAt time.Time `json:"joined_at"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:       string(p.ID),
		Name:     p.Name,
		InGame:   p.InGame,
		JoinedAt: p.JoinedAt,
	}
}

// PlayersResponse is the response for the roster endpoint
type PlayersResponse struct {
	Players []Player `json:"players"`
	Count   int      `json:"count"`
}

// PlayersFromModel converts a roster
func PlayersFromModel(players []*model.Player) PlayersResponse {
	resp := PlayersResponse{
		Players: make([]Player, 0, len(players)),
		Count:   len(players),
	}
	for _, p := range players {
		resp.Players = append(resp.Players, PlayerFromModel(p))
	}
	return resp
}

// HealthResponse is the response for the health endpoint
type HealthResponse struct {
	Status string `json:"status"`
}
