package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/hardliner66/MageBattle/internal/dependencies/mocks"
	"github.com/hardliner66/MageBattle/internal/lobby"
	"github.com/hardliner66/MageBattle/internal/model"
	"github.com/hardliner66/MageBattle/internal/protocol"
	"github.com/hardliner66/MageBattle/internal/storage"
	"github.com/hardliner66/MageBattle/internal/storage/memory"
	redisstorage "github.com/hardliner66/MageBattle/internal/storage/redis"
	"github.com/hardliner66/MageBattle/internal/testutil"
)

type discard struct{}

func (discard) Send(protocol.ServerMessage) error { return nil }

type RecorderSuite struct {
	suite.Suite
	store    storage.Storage
	recorder *Recorder
	ctx      context.Context
	cancel   context.CancelFunc
	now      time.Time
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.store = memory.New()
	s.recorder = NewRecorder(s.store, 16, testutil.NopLogger())
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *RecorderSuite) TearDownTest() {
	s.cancel()
}

func (s *RecorderSuite) start() {
	go s.recorder.Run(s.ctx)
}

func (s *RecorderSuite) waitForRoster(check func([]*model.Player) bool) []*model.Player {
	var roster []*model.Player
	s.Require().Eventually(func() bool {
		var err error
		roster, err = s.recorder.Roster(s.ctx)
		return err == nil && check(roster)
	}, 2*time.Second, 5*time.Millisecond)
	return roster
}

func (s *RecorderSuite) TestAppliesEventsInOrder() {
	s.start()

	s.recorder.Observe(model.Event{Type: model.EventPlayerJoined, Timestamp: s.now, PlayerID: "a", Name: "alice"})
	s.recorder.Observe(model.Event{Type: model.EventPlayerJoined, Timestamp: s.now.Add(time.Second), PlayerID: "b", Name: "bob"})
	s.recorder.Observe(model.Event{Type: model.EventPlayerRenamed, Timestamp: s.now.Add(2 * time.Second), PlayerID: "a", Name: "alicia"})
	s.recorder.Observe(model.Event{Type: model.EventPlayerLeft, Timestamp: s.now.Add(3 * time.Second), PlayerID: "b"})

	roster := s.waitForRoster(func(p []*model.Player) bool {
		return len(p) == 1 && p[0].Name == "alicia"
	})
	s.Equal(model.PlayerID("a"), roster[0].ID)
	s.Equal(s.now, roster[0].JoinedAt, "rename keeps the join time")
}

func (s *RecorderSuite) TestRunResetsStaleRoster() {
	_ = s.store.SavePlayer(s.ctx, &model.Player{ID: "stale", Name: "ghost"})
	s.start()

	s.recorder.Observe(model.Event{Type: model.EventPlayerJoined, Timestamp: s.now, PlayerID: "a", Name: "alice"})

	s.waitForRoster(func(p []*model.Player) bool {
		return len(p) == 1 && p[0].ID == "a"
	})
}

func (s *RecorderSuite) TestRenameOfUnknownPlayerRecordsIt() {
	s.start()

	s.recorder.Observe(model.Event{Type: model.EventPlayerRenamed, Timestamp: s.now, PlayerID: "a", Name: "alicia"})

	roster := s.waitForRoster(func(p []*model.Player) bool { return len(p) == 1 })
	s.Equal("alicia", roster[0].Name)
}

func (s *RecorderSuite) TestObserveNeverBlocks() {
	logger, logs := testutil.BufferLogger()
	s.recorder = NewRecorder(s.store, 16, logger)

	// Run is not started, so nothing drains the buffer
	for range 20 {
		s.recorder.Observe(model.Event{Type: model.EventPlayerJoined, PlayerID: "a", Name: "alice"})
	}

	s.Equal(int64(4), s.recorder.Dropped())
	s.Contains(logs.String(), "presence event dropped")
}

// The recorder mirrors a live lobby into Redis
func (s *RecorderSuite) TestMirrorsLobbyIntoRedis() {
	mini := miniredis.RunT(s.T())
	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	s.store = redisstorage.NewWithClient(client, redisstorage.DefaultConfig())
	s.T().Cleanup(func() { _ = s.store.Close() })
	s.recorder = NewRecorder(s.store, 16, testutil.NopLogger())
	s.start()

	clk := mocks.NewMockClock(s.now)
	lb := lobby.New(lobby.DefaultConfig(), clk, mocks.NewMockRandom(), s.recorder, testutil.NopLogger())
	go lb.Run(s.ctx)

	alice, err := lb.Join(s.ctx, "alice", discard{})
	s.Require().NoError(err)
	bob, err := lb.Join(s.ctx, "bob", discard{})
	s.Require().NoError(err)
	s.Require().NoError(lb.Dispatch(s.ctx, alice, protocol.ChangeName{Name: "alicia"}))
	s.Require().NoError(lb.Leave(s.ctx, bob))

	roster := s.waitForRoster(func(p []*model.Player) bool {
		return len(p) == 1 && p[0].Name == "alicia"
	})
	s.Equal(alice, roster[0].ID)
}
