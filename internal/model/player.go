package model

import "time"

// PlayerID uniquely identifies a connected player. It is the text form of a
// random 128-bit UUID and is never reused.
type PlayerID string

// Player is one entry of the lobby registry
type Player struct {
	ID       PlayerID  `json:"id"`
	Name     string    `json:"name"`
	InGame   bool      `json:"in_game"` // reserved; nothing sets it yet
	JoinedAt time.Time `json:"joined_at"`
}
