package lobby

import "time"

const (
	// DefaultMailboxSize is the number of commands that may queue before
	// callers block
	DefaultMailboxSize = 256
	// DefaultMaxNameLength is the longest display name accepted, in runes
	DefaultMaxNameLength = 32
	// DefaultChallengeTTL is how long a challenge stays answerable
	DefaultChallengeTTL = 2 * time.Minute
)

// Config tunes the lobby
type Config struct {
	MailboxSize   int
	MaxNameLength int
	// ChallengeTTL bounds how long a pending challenge can be answered.
	// Zero disables expiry.
	ChallengeTTL time.Duration
}

// DefaultConfig returns the default lobby configuration
func DefaultConfig() Config {
	return Config{
		MailboxSize:   DefaultMailboxSize,
		MaxNameLength: DefaultMaxNameLength,
		ChallengeTTL:  DefaultChallengeTTL,
	}
}

func (c Config) withDefaults() Config {
	if c.MailboxSize <= 0 {
		c.MailboxSize = DefaultMailboxSize
	}
	if c.MaxNameLength <= 0 {
		c.MaxNameLength = DefaultMaxNameLength
	}
	if c.ChallengeTTL < 0 {
		c.ChallengeTTL = 0
	}
	return c
}
