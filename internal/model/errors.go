package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound   = errors.New("player not found")
	ErrNameNotAvailable = errors.New("name is not available")
	ErrInvalidName      = errors.New("invalid player name")

	// Challenge errors
	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrChallengeExpired   = errors.New("challenge has expired")
	ErrNotChallengeTarget = errors.New("player is not the target of this challenge")

	// Lobby errors
	ErrLobbyClosed = errors.New("lobby is closed")
)
