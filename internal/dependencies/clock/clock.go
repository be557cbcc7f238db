package clock

import "time"

// Clock abstracts wall time so lobby timestamps and challenge expiry can be
// driven from tests
type Clock interface {
	Now() time.Time
}

// System reads the real system clock
type System struct{}

// New creates a System clock
func New() System {
	return System{}
}

func (System) Now() time.Time { return time.Now() }
