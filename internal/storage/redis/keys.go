package redis

import "fmt"

// Key prefix for all lobby data
const keyPrefix = "magebattle"

// rosterKey returns the Redis key of the HASH holding player id -> player JSON
func rosterKey() string {
	return fmt.Sprintf("%s:roster", keyPrefix)
}
