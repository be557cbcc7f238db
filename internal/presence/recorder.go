// Package presence mirrors the lobby roster into storage so it can be read
// without going through the lobby.
package presence

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hardliner66/MageBattle/internal/model"
	"github.com/hardliner66/MageBattle/internal/storage"
)

const (
	// DefaultBufferSize is the number of events that may wait to be applied
	DefaultBufferSize = 256
	// writeTimeout bounds each storage write
	writeTimeout = 2 * time.Second
)

// Recorder applies lobby events to storage. Observe never blocks: when the
// buffer is full the event is dropped and the mirror lags until the player's
// next change.
type Recorder struct {
	store   storage.Storage
	events  chan model.Event
	dropped atomic.Int64
	logger  *slog.Logger
}

// NewRecorder creates a Recorder writing to store
func NewRecorder(store storage.Storage, bufferSize int, logger *slog.Logger) *Recorder {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Recorder{
		store:  store,
		events: make(chan model.Event, bufferSize),
		logger: logger.With(slog.String("component", "presence")),
	}
}

// Observe queues an event for the mirror
func (r *Recorder) Observe(event model.Event) {
	select {
	case r.events <- event:
	default:
		r.dropped.Add(1)
		r.logger.Warn("presence event dropped - buffer full",
			slog.String("type", string(event.Type)),
			slog.String("player_id", string(event.PlayerID)))
	}
}

// Dropped returns how many events were discarded because the buffer was full
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Run clears the mirror, then applies events in order until ctx is cancelled
func (r *Recorder) Run(ctx context.Context) {
	if err := r.store.Reset(ctx); err != nil {
		r.logger.Error("failed to reset roster", slog.String("error", err.Error()))
	}
	r.logger.Info("presence recorder started")

	for {
		select {
		case event := <-r.events:
			if err := r.apply(ctx, event); err != nil {
				r.logger.Warn("failed to record presence event",
					slog.String("type", string(event.Type)),
					slog.String("player_id", string(event.PlayerID)),
					slog.String("error", err.Error()))
			}
		case <-ctx.Done():
			r.logger.Info("presence recorder stopped", slog.Int64("dropped", r.Dropped()))
			return
		}
	}
}

// Roster returns the mirrored players ordered by join time
func (r *Recorder) Roster(ctx context.Context) ([]*model.Player, error) {
	return r.store.ListPlayers(ctx)
}

func (r *Recorder) apply(ctx context.Context, event model.Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	switch event.Type {
	case model.EventPlayerJoined:
		return r.store.SavePlayer(ctx, &model.Player{
			ID:       event.PlayerID,
			Name:     event.Name,
			JoinedAt: event.Timestamp,
		})

	case model.EventPlayerRenamed:
		player, err := r.store.GetPlayer(ctx, event.PlayerID)
		if errors.Is(err, model.ErrPlayerNotFound) {
			// the join was dropped; record the player from here on
			player = &model.Player{ID: event.PlayerID, JoinedAt: event.Timestamp}
		} else if err != nil {
			return err
		}
		player.Name = event.Name
		return r.store.SavePlayer(ctx, player)

	case model.EventPlayerLeft:
		return r.store.DeletePlayer(ctx, event.PlayerID)

	default:
		r.logger.Debug("ignoring unknown event", slog.String("type", string(event.Type)))
		return nil
	}
}
