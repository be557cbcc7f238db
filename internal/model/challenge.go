package model

import "time"

// RequestID correlates a challenge with its accept/deny reply
type RequestID string

// Challenge is a pending duel request from one player to another
type Challenge struct {
	ID         RequestID
	Challenger PlayerID
	Target     PlayerID
	CreatedAt  time.Time
}

// Involves reports whether the player is either side of the challenge
func (c *Challenge) Involves(id PlayerID) bool {
	return c.Challenger == id || c.Target == id
}

// Expired reports whether the challenge is older than ttl at now.
// A zero ttl never expires.
func (c *Challenge) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(c.CreatedAt) > ttl
}
