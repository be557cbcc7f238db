// Package lobby implements the player registry and the single goroutine that
// owns it. Every join, message, and departure goes through one mailbox and is
// processed to completion before the next, which gives all players the same
// view of the order of events.
package lobby

import (
	"context"
	"io"
	"log/slog"

	"github.com/hardliner66/MageBattle/internal/dependencies/clock"
	"github.com/hardliner66/MageBattle/internal/dependencies/random"
	"github.com/hardliner66/MageBattle/internal/model"
	"github.com/hardliner66/MageBattle/internal/protocol"
)

// Outbound delivers server messages to one player. Send must not block; an
// error means the player can no longer be reached.
type Outbound interface {
	Send(msg protocol.ServerMessage) error
}

// Observer is told about every committed registry change. Observe is called
// from the lobby goroutine and must not block.
type Observer interface {
	Observe(event model.Event)
}

type nopObserver struct{}

func (nopObserver) Observe(model.Event) {}

// command is one unit of work for the lobby goroutine. finish runs after the
// command and any removals it caused have been processed.
type command interface {
	finish()
}

type joinCmd struct {
	name  string
	out   Outbound
	id    model.PlayerID
	err   error
	reply chan *joinCmd
}

func (c *joinCmd) finish() { c.reply <- c }

type dispatchCmd struct {
	id  model.PlayerID
	msg protocol.ClientMessage
}

func (c *dispatchCmd) finish() {}

type leaveCmd struct {
	id   model.PlayerID
	done chan struct{}
}

func (c *leaveCmd) finish() { close(c.done) }

type snapshotCmd struct {
	players []model.Player
	reply   chan []model.Player
}

func (c *snapshotCmd) finish() { c.reply <- c.players }

// Lobby owns the player registry. All methods are safe for concurrent use;
// the registry itself is only touched by the goroutine running Run.
type Lobby struct {
	cfg      Config
	reg      *registry
	mailbox  chan command
	stopped  chan struct{}
	clock    clock.Clock
	random   random.Random
	observer Observer
	logger   *slog.Logger

	// players whose sends failed during the current command
	unreachable []model.PlayerID
}

// New creates a Lobby. Call Run to start processing.
func New(cfg Config, clk clock.Clock, rnd random.Random, observer Observer, logger *slog.Logger) *Lobby {
	cfg = cfg.withDefaults()
	if observer == nil {
		observer = nopObserver{}
	}
	return &Lobby{
		cfg:      cfg,
		reg:      newRegistry(),
		mailbox:  make(chan command, cfg.MailboxSize),
		stopped:  make(chan struct{}),
		clock:    clk,
		random:   rnd,
		observer: observer,
		logger:   logger.With(slog.String("component", "lobby")),
	}
}

// Config returns the effective configuration
func (l *Lobby) Config() Config {
	return l.cfg
}

// Run processes commands until ctx is cancelled. It must be called exactly
// once; afterwards every method fails with model.ErrLobbyClosed.
func (l *Lobby) Run(ctx context.Context) {
	l.logger.Info("lobby started",
		slog.Int("mailbox_size", l.cfg.MailboxSize),
		slog.Duration("challenge_ttl", l.cfg.ChallengeTTL))
	defer close(l.stopped)

	for {
		select {
		case cmd := <-l.mailbox:
			l.handle(cmd)
			l.reap()
			cmd.finish()
		case <-ctx.Done():
			l.logger.Info("lobby stopped", slog.Int("players", l.reg.len()))
			return
		}
	}
}

// Join registers a player under name and returns its id. The player receives
// Welcome, then its own PlayerJoined along with everyone else, then one
// PlayerJoined per player already present. A name held by another player
// (compared case-insensitively) fails with *RejectedError and changes nothing.
//
// Once the request is queued it is carried out even if ctx is cancelled, so
// the caller always learns the outcome.
func (l *Lobby) Join(ctx context.Context, name string, out Outbound) (model.PlayerID, error) {
	name, err := NormalizeName(name, l.cfg.MaxNameLength)
	if err != nil {
		return "", err
	}

	cmd := &joinCmd{name: name, out: out, reply: make(chan *joinCmd, 1)}
	if err := l.enqueue(ctx, cmd); err != nil {
		return "", err
	}
	select {
	case res := <-cmd.reply:
		return res.id, res.err
	case <-l.stopped:
		return "", model.ErrLobbyClosed
	}
}

// Dispatch queues a message from a registered player. It returns once the
// message is queued; its effects are observed through the players' outbound
// handles. Messages for unknown players are ignored.
func (l *Lobby) Dispatch(ctx context.Context, id model.PlayerID, msg protocol.ClientMessage) error {
	return l.enqueue(ctx, &dispatchCmd{id: id, msg: msg})
}

// Leave removes the player and announces GoodBye to everyone remaining. It
// returns after the removal has been processed. Leaving twice is a no-op.
func (l *Lobby) Leave(ctx context.Context, id model.PlayerID) error {
	cmd := &leaveCmd{id: id, done: make(chan struct{})}
	if err := l.enqueue(ctx, cmd); err != nil {
		return err
	}
	select {
	case <-cmd.done:
		return nil
	case <-l.stopped:
		return model.ErrLobbyClosed
	}
}

// Snapshot returns the registered players in join order
func (l *Lobby) Snapshot(ctx context.Context) ([]model.Player, error) {
	cmd := &snapshotCmd{reply: make(chan []model.Player, 1)}
	if err := l.enqueue(ctx, cmd); err != nil {
		return nil, err
	}
	select {
	case players := <-cmd.reply:
		return players, nil
	case <-l.stopped:
		return nil, model.ErrLobbyClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Lobby) enqueue(ctx context.Context, cmd command) error {
	select {
	case <-l.stopped:
		return model.ErrLobbyClosed
	default:
	}

	select {
	case l.mailbox <- cmd:
		return nil
	case <-l.stopped:
		return model.ErrLobbyClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Lobby) handle(cmd command) {
	switch c := cmd.(type) {
	case *joinCmd:
		c.id, c.err = l.join(c.name, c.out)
	case *dispatchCmd:
		l.dispatch(c.id, c.msg)
	case *leaveCmd:
		l.remove(c.id, "left")
	case *snapshotCmd:
		c.players = l.reg.snapshot()
	default:
		l.logger.Error("unknown lobby command", slog.Any("command", cmd))
	}
}

func (l *Lobby) join(name string, out Outbound) (model.PlayerID, error) {
	if l.reg.nameTaken(name, "") {
		l.logger.Info("join rejected", slog.String("name", name))
		return "", &RejectedError{Name: name}
	}

	id := l.newPlayerID()
	joined := l.reg.add(model.Player{
		ID:       id,
		Name:     name,
		JoinedAt: l.clock.Now(),
	}, out)

	l.send(joined, protocol.Welcome{ID: id})
	l.broadcast(protocol.PlayerJoined{ID: id, Name: name})
	l.sendRoster(joined)
	l.emit(model.EventPlayerJoined, id, name)

	l.logger.Info("player joined",
		slog.String("player_id", string(id)),
		slog.String("name", name),
		slog.Int("players", l.reg.len()))
	return id, nil
}

func (l *Lobby) dispatch(id model.PlayerID, msg protocol.ClientMessage) {
	m := l.reg.get(id)
	if m == nil {
		l.logger.Debug("message from unknown player ignored",
			slog.String("player_id", string(id)),
			slog.String("type", string(msg.Type())))
		return
	}

	switch msg := msg.(type) {
	case protocol.Connect:
		l.logger.Debug("connect from registered player ignored", slog.String("player_id", string(id)))
	case protocol.GetPlayers:
		l.sendRoster(m)
	case protocol.ChangeName:
		l.changeName(m, msg.Name)
	case protocol.ChallengePlayer:
		l.challengePlayer(m, msg.Name)
	case protocol.AcceptChallenge:
		l.answerChallenge(m, msg.RequestID, true)
	case protocol.DenyChallenge:
		l.answerChallenge(m, msg.RequestID, false)
	case protocol.ReportState:
		l.logger.Debug("state reported",
			slog.String("player_id", string(id)),
			slog.Int("kills", msg.Kills))
	case protocol.Disconnect:
		l.remove(id, "disconnected")
	default:
		l.logger.Warn("unhandled message type",
			slog.String("player_id", string(id)),
			slog.String("type", string(msg.Type())))
		l.send(m, protocol.InvalidMessage{})
	}
}

func (l *Lobby) changeName(m *member, name string) {
	name, err := NormalizeName(name, l.cfg.MaxNameLength)
	if err != nil {
		l.send(m, protocol.InvalidMessage{})
		return
	}
	if l.reg.nameTaken(name, m.player.ID) {
		l.send(m, protocol.NameNotAvailable{})
		return
	}

	oldName := m.player.Name
	l.reg.rename(m.player.ID, name)
	l.broadcast(protocol.PlayerChangedName{ID: m.player.ID, NewName: name})
	l.emit(model.EventPlayerRenamed, m.player.ID, name)

	l.logger.Info("player renamed",
		slog.String("player_id", string(m.player.ID)),
		slog.String("old_name", oldName),
		slog.String("new_name", name))
}

func (l *Lobby) challengePlayer(challenger *member, targetName string) {
	target := l.reg.byName(targetName)
	if target == nil || target.player.ID == challenger.player.ID {
		l.logger.Debug("challenge ignored",
			slog.String("player_id", string(challenger.player.ID)),
			slog.String("target", targetName))
		return
	}

	now := l.clock.Now()
	if n := l.reg.pruneChallenges(now, l.cfg.ChallengeTTL); n > 0 {
		l.logger.Debug("expired challenges pruned", slog.Int("count", n))
	}

	c := &model.Challenge{
		ID:         model.RequestID(l.random.UUID().String()),
		Challenger: challenger.player.ID,
		Target:     target.player.ID,
		CreatedAt:  now,
	}
	l.reg.addChallenge(c)

	l.send(target, protocol.ChallengeReceived{RequestID: c.ID, Name: challenger.player.Name})
	l.send(target, protocol.RequestReceived{RequestID: c.ID})

	l.logger.Info("challenge sent",
		slog.String("request_id", string(c.ID)),
		slog.String("challenger", string(c.Challenger)),
		slog.String("target", string(c.Target)))
}

func (l *Lobby) answerChallenge(responder *member, reqID model.RequestID, accept bool) {
	c, err := l.pendingChallenge(responder.player.ID, reqID)
	if err != nil {
		l.logger.Debug("challenge answer rejected",
			slog.String("player_id", string(responder.player.ID)),
			slog.String("request_id", string(reqID)),
			slog.String("error", err.Error()))
		l.send(responder, protocol.InvalidMessage{})
		return
	}
	l.reg.removeChallenge(reqID)

	challenger := l.reg.get(c.Challenger)
	if challenger == nil {
		return
	}
	if accept {
		l.send(challenger, protocol.ChallengeAccepted{RequestID: reqID})
	} else {
		l.send(challenger, protocol.ChallengeDenied{RequestID: reqID})
	}

	l.logger.Info("challenge answered",
		slog.String("request_id", string(reqID)),
		slog.Bool("accepted", accept))
}

// pendingChallenge looks up a challenge that responder may answer
func (l *Lobby) pendingChallenge(responder model.PlayerID, reqID model.RequestID) (*model.Challenge, error) {
	c := l.reg.challenge(reqID)
	if c == nil {
		return nil, model.ErrChallengeNotFound
	}
	if c.Expired(l.clock.Now(), l.cfg.ChallengeTTL) {
		l.reg.removeChallenge(reqID)
		return nil, model.ErrChallengeExpired
	}
	if c.Target != responder {
		return nil, model.ErrNotChallengeTarget
	}
	return c, nil
}

// remove takes the player out of the registry and says GoodBye to everyone
// left. Unknown ids are ignored.
func (l *Lobby) remove(id model.PlayerID, reason string) {
	m := l.reg.remove(id)
	if m == nil {
		return
	}
	if m.gone {
		if c, ok := m.out.(io.Closer); ok {
			_ = c.Close()
		}
	}

	l.broadcast(protocol.GoodBye{ID: id})
	l.emit(model.EventPlayerLeft, id, "")

	l.logger.Info("player left",
		slog.String("player_id", string(id)),
		slog.String("name", m.player.Name),
		slog.String("reason", reason),
		slog.Int("players", l.reg.len()))
}

// reap removes every player a send failed for. Removing a player broadcasts
// GoodBye, which can make more sends fail, so it runs until nothing is left.
func (l *Lobby) reap() {
	for len(l.unreachable) > 0 {
		id := l.unreachable[0]
		l.unreachable = l.unreachable[1:]
		l.remove(id, "unreachable")
	}
	l.unreachable = nil
}

func (l *Lobby) send(m *member, msg protocol.ServerMessage) {
	if m.gone {
		return
	}
	if err := m.out.Send(msg); err != nil {
		m.gone = true
		l.unreachable = append(l.unreachable, m.player.ID)
		l.logger.Warn("send failed, dropping player",
			slog.String("player_id", string(m.player.ID)),
			slog.String("type", string(msg.Type())),
			slog.String("error", err.Error()))
	}
}

func (l *Lobby) broadcast(msg protocol.ServerMessage) {
	l.reg.each(func(m *member) {
		l.send(m, msg)
	})
}

// sendRoster sends to m one PlayerJoined for every other player
func (l *Lobby) sendRoster(m *member) {
	l.reg.each(func(other *member) {
		if other.player.ID == m.player.ID {
			return
		}
		l.send(m, protocol.PlayerJoined{ID: other.player.ID, Name: other.player.Name})
	})
}

func (l *Lobby) emit(t model.EventType, id model.PlayerID, name string) {
	l.observer.Observe(model.Event{
		Type:      t,
		Timestamp: l.clock.Now(),
		PlayerID:  id,
		Name:      name,
	})
}

func (l *Lobby) newPlayerID() model.PlayerID {
	for {
		id := model.PlayerID(l.random.UUID().String())
		if l.reg.get(id) == nil {
			return id
		}
	}
}
