// Package session runs a single client connection against the lobby: it
// waits for the client to claim a name, then relays every message until the
// connection ends.
package session

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"time"

	"github.com/hardliner66/MageBattle/internal/lobby"
	"github.com/hardliner66/MageBattle/internal/model"
	"github.com/hardliner66/MageBattle/internal/protocol"
)

// leaveTimeout bounds the final Leave once the connection is gone
const leaveTimeout = 5 * time.Second

// Connection is the transport side of a session
type Connection interface {
	lobby.Outbound
	Messages() iter.Seq2[protocol.ClientMessage, error]
	Close() error
}

// Lobby is the part of the lobby a session talks to
type Lobby interface {
	Join(ctx context.Context, name string, out lobby.Outbound) (model.PlayerID, error)
	Dispatch(ctx context.Context, id model.PlayerID, msg protocol.ClientMessage) error
	Leave(ctx context.Context, id model.PlayerID) error
}

// State is the lifecycle stage of a session
type State int

const (
	StateConnecting State = iota
	StateActive
	StateRejected
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateRejected:
		return "rejected"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

type session struct {
	conn   Connection
	lobby  Lobby
	logger *slog.Logger
	state  State
	id     model.PlayerID
}

// Serve runs conn until it ends or ctx is cancelled. The connection is always
// closed and, if the client had joined, removed from the lobby on return.
// Connection errors never escape Serve.
func Serve(ctx context.Context, conn Connection, lb Lobby, logger *slog.Logger) {
	s := &session{
		conn:   conn,
		lobby:  lb,
		logger: logger.With(slog.String("component", "session")),
		state:  StateConnecting,
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()
	defer s.terminate(ctx)

	for msg, err := range conn.Messages() {
		if ctx.Err() != nil {
			return
		}

		var next bool
		switch s.state {
		case StateConnecting:
			next = s.connecting(ctx, msg, err)
		case StateActive:
			next = s.active(ctx, msg, err)
		}
		if !next {
			return
		}
	}
}

// connecting handles a message before the client has joined
func (s *session) connecting(ctx context.Context, msg protocol.ClientMessage, err error) bool {
	if err != nil {
		s.logger.Debug("invalid frame before connect", slog.String("error", err.Error()))
		s.reply(protocol.InvalidMessage{})
		return true
	}

	switch m := msg.(type) {
	case protocol.Connect:
		return s.join(ctx, m.Name)
	case protocol.Disconnect:
		return false
	default:
		s.logger.Debug("message before connect", slog.String("type", string(msg.Type())))
		s.reply(protocol.InvalidMessage{})
		return true
	}
}

func (s *session) join(ctx context.Context, name string) bool {
	id, err := s.lobby.Join(ctx, name, s.conn)
	switch {
	case err == nil:
		s.id = id
		s.state = StateActive
		s.logger = s.logger.With(slog.String("player_id", string(id)))
		s.logger.Debug("session active")
		return true

	case errors.Is(err, model.ErrNameNotAvailable):
		s.state = StateRejected
		s.reply(protocol.NameNotAvailable{})
		return false

	case errors.Is(err, model.ErrInvalidName):
		s.logger.Debug("connect with invalid name", slog.String("error", err.Error()))
		s.reply(protocol.InvalidMessage{})
		return true

	default:
		s.logger.Warn("join failed", slog.String("error", err.Error()))
		return false
	}
}

// active relays a message from a joined client to the lobby
func (s *session) active(ctx context.Context, msg protocol.ClientMessage, err error) bool {
	if err != nil {
		s.logger.Debug("invalid frame", slog.String("error", err.Error()))
		s.reply(protocol.InvalidMessage{})
		return true
	}

	if err := s.lobby.Dispatch(ctx, s.id, msg); err != nil {
		s.logger.Warn("dispatch failed", slog.String("error", err.Error()))
		return false
	}
	_, disconnect := msg.(protocol.Disconnect)
	return !disconnect
}

func (s *session) terminate(ctx context.Context) {
	if s.state == StateActive {
		leaveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leaveTimeout)
		defer cancel()
		if err := s.lobby.Leave(leaveCtx, s.id); err != nil && !errors.Is(err, model.ErrLobbyClosed) {
			s.logger.Warn("leave failed", slog.String("error", err.Error()))
		}
	}

	_ = s.conn.Close()
	s.logger.Debug("session ended", slog.String("last_state", s.state.String()))
	s.state = StateTerminated
}

// reply sends a message straight to this connection; a failed send ends the
// message sequence on its own
func (s *session) reply(msg protocol.ServerMessage) {
	if err := s.conn.Send(msg); err != nil {
		s.logger.Debug("reply failed",
			slog.String("type", string(msg.Type())),
			slog.String("error", err.Error()))
	}
}
