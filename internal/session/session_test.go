package session

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/hardliner66/MageBattle/internal/dependencies/mocks"
	"github.com/hardliner66/MageBattle/internal/lobby"
	"github.com/hardliner66/MageBattle/internal/model"
	"github.com/hardliner66/MageBattle/internal/protocol"
	"github.com/hardliner66/MageBattle/internal/testutil"
)

type inbound struct {
	msg protocol.ClientMessage
	err error
}

// fakeConn feeds scripted messages to a session and records its replies
type fakeConn struct {
	in        chan inbound
	closed    chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	sent []protocol.ServerMessage
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan inbound, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Send(msg protocol.ServerMessage) error {
	select {
	case <-c.closed:
		return errors.New("closed")
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeConn) Messages() iter.Seq2[protocol.ClientMessage, error] {
	return func(yield func(protocol.ClientMessage, error) bool) {
		for {
			select {
			case m, ok := <-c.in:
				if !ok {
					return
				}
				if !yield(m.msg, m.err) {
					return
				}
			case <-c.closed:
				return
			}
		}
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) messages() []protocol.ServerMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.ServerMessage(nil), c.sent...)
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) push(msg protocol.ClientMessage) {
	c.in <- inbound{msg: msg}
}

func (c *fakeConn) pushErr(err error) {
	c.in <- inbound{err: err}
}

type SessionSuite struct {
	suite.Suite
	lobby  *lobby.Lobby
	ctx    context.Context
	cancel context.CancelFunc
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.lobby = lobby.New(lobby.DefaultConfig(), clk, mocks.NewMockRandom(), nil, testutil.NopLogger())
	s.ctx, s.cancel = context.WithCancel(context.Background())
	go s.lobby.Run(s.ctx)
}

func (s *SessionSuite) TearDownTest() {
	s.cancel()
}

// serve runs a session in the background; the returned channel closes when
// Serve returns
func (s *SessionSuite) serve(ctx context.Context, conn *fakeConn) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		Serve(ctx, conn, s.lobby, testutil.NopLogger())
		close(done)
	}()
	return done
}

func (s *SessionSuite) waitFor(conn *fakeConn, n int) []protocol.ServerMessage {
	s.Require().Eventually(func() bool {
		return len(conn.messages()) >= n
	}, 2*time.Second, 5*time.Millisecond)
	return conn.messages()
}

func (s *SessionSuite) waitDone(done <-chan struct{}) {
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		s.FailNow("session did not end")
	}
}

func (s *SessionSuite) players() []model.Player {
	players, err := s.lobby.Snapshot(s.ctx)
	s.Require().NoError(err)
	return players
}

func (s *SessionSuite) TestConnectJoinsLobby() {
	conn := newFakeConn()
	s.serve(s.ctx, conn)

	conn.push(protocol.Connect{Name: "alice"})

	msgs := s.waitFor(conn, 2)
	id := mocks.SequentialUUID(1).String()
	s.Equal(protocol.Welcome{ID: model.PlayerID(id)}, msgs[0])
	s.Equal(protocol.PlayerJoined{ID: model.PlayerID(id), Name: "alice"}, msgs[1])
}

func (s *SessionSuite) TestMessagesBeforeConnectAreInvalid() {
	conn := newFakeConn()
	s.serve(s.ctx, conn)

	conn.push(protocol.GetPlayers{})
	conn.pushErr(&protocol.DecodeError{Reason: "malformed envelope"})
	conn.push(protocol.ChallengePlayer{Name: "bob"})

	msgs := s.waitFor(conn, 3)
	for _, m := range msgs {
		s.Equal(protocol.InvalidMessage{}, m)
	}
	s.False(conn.isClosed())

	conn.push(protocol.Connect{Name: "alice"})
	msgs = s.waitFor(conn, 5)
	s.IsType(protocol.Welcome{}, msgs[3])
}

func (s *SessionSuite) TestTakenNameRejectsAndCloses() {
	first := newFakeConn()
	s.serve(s.ctx, first)
	first.push(protocol.Connect{Name: "alice"})
	s.waitFor(first, 2)

	second := newFakeConn()
	done := s.serve(s.ctx, second)
	second.push(protocol.Connect{Name: "Alice"})

	s.waitDone(done)
	s.Equal([]protocol.ServerMessage{protocol.NameNotAvailable{}}, second.messages())
	s.True(second.isClosed())
	s.Len(s.players(), 1)
	s.Len(first.messages(), 2)
}

func (s *SessionSuite) TestInvalidNameKeepsConnecting() {
	conn := newFakeConn()
	s.serve(s.ctx, conn)

	conn.push(protocol.Connect{Name: "   "})
	msgs := s.waitFor(conn, 1)
	s.Equal(protocol.InvalidMessage{}, msgs[0])
	s.False(conn.isClosed())

	conn.push(protocol.Connect{Name: "alice"})
	msgs = s.waitFor(conn, 3)
	s.IsType(protocol.Welcome{}, msgs[1])
}

func (s *SessionSuite) TestDisconnectBeforeConnect() {
	conn := newFakeConn()
	done := s.serve(s.ctx, conn)

	conn.push(protocol.Disconnect{})

	s.waitDone(done)
	s.True(conn.isClosed())
	s.Empty(conn.messages())
	s.Empty(s.players())
}

func (s *SessionSuite) TestTransportEndLeavesLobby() {
	alice := newFakeConn()
	s.serve(s.ctx, alice)
	alice.push(protocol.Connect{Name: "alice"})
	s.waitFor(alice, 2)

	bob := newFakeConn()
	done := s.serve(s.ctx, bob)
	bob.push(protocol.Connect{Name: "bob"})
	s.waitFor(bob, 3)

	close(bob.in)
	s.waitDone(done)

	bobID := model.PlayerID(mocks.SequentialUUID(2).String())
	msgs := s.waitFor(alice, 4)
	s.Equal(protocol.GoodBye{ID: bobID}, msgs[3])
	s.True(bob.isClosed())
	s.Len(s.players(), 1)
}

func (s *SessionSuite) TestDisconnectMessageLeavesAndCloses() {
	alice := newFakeConn()
	s.serve(s.ctx, alice)
	alice.push(protocol.Connect{Name: "alice"})
	s.waitFor(alice, 2)

	bob := newFakeConn()
	done := s.serve(s.ctx, bob)
	bob.push(protocol.Connect{Name: "bob"})
	s.waitFor(bob, 3)

	bob.push(protocol.Disconnect{})
	s.waitDone(done)

	msgs := s.waitFor(alice, 4)
	s.Equal(protocol.GoodBye{ID: model.PlayerID(mocks.SequentialUUID(2).String())}, msgs[3])
	s.Len(alice.messages(), 4, "GoodBye must be sent once")
	s.True(bob.isClosed())
}

func (s *SessionSuite) TestDecodeErrorWhileActiveOnlyAffectsSender() {
	alice := newFakeConn()
	s.serve(s.ctx, alice)
	alice.push(protocol.Connect{Name: "alice"})
	s.waitFor(alice, 2)

	bob := newFakeConn()
	s.serve(s.ctx, bob)
	bob.push(protocol.Connect{Name: "bob"})
	s.waitFor(bob, 3)

	bob.pushErr(&protocol.DecodeError{Reason: "malformed envelope"})

	msgs := s.waitFor(bob, 4)
	s.Equal(protocol.InvalidMessage{}, msgs[3])
	s.Len(alice.messages(), 3)
	s.False(bob.isClosed())
}

func (s *SessionSuite) TestActiveMessagesReachLobby() {
	alice := newFakeConn()
	s.serve(s.ctx, alice)
	alice.push(protocol.Connect{Name: "alice"})
	s.waitFor(alice, 2)

	alice.push(protocol.ChangeName{Name: "alicia"})

	msgs := s.waitFor(alice, 3)
	s.Equal(protocol.PlayerChangedName{ID: model.PlayerID(mocks.SequentialUUID(1).String()), NewName: "alicia"}, msgs[2])
}

func (s *SessionSuite) TestCancelEndsSession() {
	ctx, cancel := context.WithCancel(s.ctx)
	conn := newFakeConn()
	done := s.serve(ctx, conn)
	conn.push(protocol.Connect{Name: "alice"})
	s.waitFor(conn, 2)

	cancel()

	s.waitDone(done)
	s.True(conn.isClosed())
	s.Empty(s.players())
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		StateConnecting: "connecting",
		StateActive:     "active",
		StateRejected:   "rejected",
		StateTerminated: "terminated",
		State(42):       "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
