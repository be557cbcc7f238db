package storage

import (
	"cmp"
	"slices"

	"github.com/hardliner66/MageBattle/internal/model"
)

// SortByJoinTime orders players by join time, breaking ties by id
func SortByJoinTime(players []*model.Player) {
	slices.SortFunc(players, func(a, b *model.Player) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
