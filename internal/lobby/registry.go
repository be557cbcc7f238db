package lobby

import (
	"slices"
	"time"

	"github.com/hardliner66/MageBattle/internal/model"
)

// member is a registered player plus the handle used to reach it
type member struct {
	player model.Player
	out    Outbound
	// gone is set once a send to the player failed; the player is removed
	// when the current command completes
	gone bool
}

// registry holds the players and pending challenges of a lobby. It is not
// safe for concurrent use; only the lobby goroutine touches it.
type registry struct {
	members    map[model.PlayerID]*member
	order      []model.PlayerID
	names      map[string]model.PlayerID
	challenges map[model.RequestID]*model.Challenge
}

func newRegistry() *registry {
	return &registry{
		members:    make(map[model.PlayerID]*member),
		names:      make(map[string]model.PlayerID),
		challenges: make(map[model.RequestID]*model.Challenge),
	}
}

func (r *registry) len() int {
	return len(r.order)
}

func (r *registry) get(id model.PlayerID) *member {
	return r.members[id]
}

// byName finds a player by case-insensitive name
func (r *registry) byName(name string) *member {
	id, ok := r.names[nameKey(name)]
	if !ok {
		return nil
	}
	return r.members[id]
}

// nameTaken reports whether a player other than except holds name
func (r *registry) nameTaken(name string, except model.PlayerID) bool {
	id, ok := r.names[nameKey(name)]
	return ok && id != except
}

func (r *registry) add(p model.Player, out Outbound) *member {
	m := &member{player: p, out: out}
	r.members[p.ID] = m
	r.order = append(r.order, p.ID)
	r.names[nameKey(p.Name)] = p.ID
	return m
}

func (r *registry) rename(id model.PlayerID, name string) {
	m, ok := r.members[id]
	if !ok {
		return
	}
	delete(r.names, nameKey(m.player.Name))
	m.player.Name = name
	r.names[nameKey(name)] = id
}

// remove deletes the player and every challenge it is part of. It returns the
// removed member, or nil when the player was not registered.
func (r *registry) remove(id model.PlayerID) *member {
	m, ok := r.members[id]
	if !ok {
		return nil
	}
	delete(r.members, id)
	delete(r.names, nameKey(m.player.Name))
	r.order = slices.DeleteFunc(r.order, func(other model.PlayerID) bool { return other == id })
	for reqID, c := range r.challenges {
		if c.Involves(id) {
			delete(r.challenges, reqID)
		}
	}
	return m
}

// each calls fn for every member in join order
func (r *registry) each(fn func(*member)) {
	for _, id := range r.order {
		fn(r.members[id])
	}
}

func (r *registry) snapshot() []model.Player {
	players := make([]model.Player, 0, len(r.order))
	for _, id := range r.order {
		players = append(players, r.members[id].player)
	}
	return players
}

func (r *registry) addChallenge(c *model.Challenge) {
	r.challenges[c.ID] = c
}

func (r *registry) challenge(id model.RequestID) *model.Challenge {
	return r.challenges[id]
}

func (r *registry) removeChallenge(id model.RequestID) {
	delete(r.challenges, id)
}

// pruneChallenges drops every challenge that expired at now and returns how
// many were dropped
func (r *registry) pruneChallenges(now time.Time, ttl time.Duration) int {
	pruned := 0
	for id, c := range r.challenges {
		if c.Expired(now, ttl) {
			delete(r.challenges, id)
			pruned++
		}
	}
	return pruned
}
