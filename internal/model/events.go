package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	EventPlayerJoined  EventType = "player_joined"
	EventPlayerRenamed EventType = "player_renamed"
	EventPlayerLeft    EventType = "player_left"
)

// Event describes a committed change to the lobby registry
type Event struct {
	Type      EventType
	Timestamp time.Time
	PlayerID  PlayerID
	Name      string // current name; empty for EventPlayerLeft
}
