package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/hardliner66/MageBattle/internal/model"
	"github.com/hardliner66/MageBattle/internal/protocol"
)

const (
	gamePath     = "/game"
	dialTimeout  = 10 * time.Second
	writeTimeout = 5 * time.Second
	leaveTimeout = 3 * time.Second
)

// ErrUnknownCommand is returned for input lines that are not a lobby command
var ErrUnknownCommand = errors.New("unknown command")

const joinHelp = `commands:
  players            list the other players
  rename NAME        change your display name
  challenge NAME     challenge a player
  accept REQUEST     accept a received challenge
  deny REQUEST       deny a received challenge
  kills N            report a match result
  quit               leave the lobby`

func newJoinCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join the lobby as an interactive player",
		Long: `Join the lobby over the websocket protocol.

Server messages are printed as they arrive. Commands are read from stdin,
one per line:

` + joinHelp,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return runJoin(ctx, name, cmd.InOrStdin(), out)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name to join with")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// parseCommand turns one input line into a client message
func parseCommand(line string) (protocol.ClientMessage, error) {
	verb, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(verb) {
	case "players":
		return protocol.GetPlayers{}, nil
	case "rename":
		if arg == "" {
			return nil, errors.New("usage: rename NAME")
		}
		return protocol.ChangeName{Name: arg}, nil
	case "challenge":
		if arg == "" {
			return nil, errors.New("usage: challenge NAME")
		}
		return protocol.ChallengePlayer{Name: arg}, nil
	case "accept":
		if arg == "" {
			return nil, errors.New("usage: accept REQUEST")
		}
		return protocol.AcceptChallenge{RequestID: model.RequestID(arg)}, nil
	case "deny":
		if arg == "" {
			return nil, errors.New("usage: deny REQUEST")
		}
		return protocol.DenyChallenge{RequestID: model.RequestID(arg)}, nil
	case "kills":
		kills, err := strconv.Atoi(arg)
		if err != nil || kills < 0 {
			return nil, errors.New("usage: kills N")
		}
		return protocol.ReportState{Kills: kills}, nil
	case "quit", "exit":
		return protocol.Disconnect{}, nil
	default:
		return nil, fmt.Errorf("%w %q\n%s", ErrUnknownCommand, verb, joinHelp)
	}
}

// lobbyView renders server messages, tracking player names by id
type lobbyView struct {
	self     model.PlayerID
	names    map[model.PlayerID]string
	rejected bool
}

func newLobbyView() *lobbyView {
	return &lobbyView{names: make(map[model.PlayerID]string)}
}

func (v *lobbyView) nameOf(id model.PlayerID) string {
	if name, ok := v.names[id]; ok {
		return name
	}
	return string(id)
}

func (v *lobbyView) render(msg protocol.ServerMessage) string {
	switch m := msg.(type) {
	case protocol.Welcome:
		v.self = m.ID
		return fmt.Sprintf("Welcome! Your id is %s", m.ID)
	case protocol.PlayerJoined:
		v.names[m.ID] = m.Name
		if m.ID == v.self {
			return fmt.Sprintf("You joined as %s", m.Name)
		}
		return fmt.Sprintf("%s joined (%s)", m.Name, m.ID)
	case protocol.GoodBye:
		name := v.nameOf(m.ID)
		delete(v.names, m.ID)
		return fmt.Sprintf("%s left", name)
	case protocol.PlayerChangedName:
		old := v.nameOf(m.ID)
		v.names[m.ID] = m.NewName
		return fmt.Sprintf("%s is now known as %s", old, m.NewName)
	case protocol.NameNotAvailable:
		if v.self == "" {
			v.rejected = true
		}
		return "Name not available"
	case protocol.InvalidMessage:
		return "Server rejected the last message"
	case protocol.ChallengeReceived:
		return fmt.Sprintf("%s challenges you (request %s): accept %s / deny %s", m.Name, m.RequestID, m.RequestID, m.RequestID)
	case protocol.RequestReceived:
		return fmt.Sprintf("Challenge request %s received", m.RequestID)
	case protocol.ChallengeAccepted:
		return fmt.Sprintf("Challenge %s was accepted", m.RequestID)
	case protocol.ChallengeDenied:
		return fmt.Sprintf("Challenge %s was denied", m.RequestID)
	default:
		return fmt.Sprintf("Unhandled message %s", msg.Type())
	}
}

// joinSession is one interactive websocket session
type joinSession struct {
	name  string
	conn  *websocket.Conn
	codec protocol.Codec
	out   *Output
	view  *lobbyView

	writeMu sync.Mutex
}

func runJoin(ctx context.Context, name string, in io.Reader, out *Output) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, cfg.WebsocketURL(gamePath), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() { _ = conn.Close() }()

	s := &joinSession{
		name:  name,
		conn:  conn,
		codec: protocol.NewJSONCodec(),
		out:   out,
		view:  newLobbyView(),
	}

	if err := s.send(protocol.Connect{Name: name}); err != nil {
		return err
	}

	readDone := make(chan error, 1)
	go func() { readDone <- s.readLoop() }()

	stop := make(chan struct{})
	defer close(stop)
	commands := make(chan protocol.ClientMessage)
	go s.scan(in, commands, stop)

	for {
		select {
		case err := <-readDone:
			return s.result(err)
		case msg, ok := <-commands:
			if !ok {
				return s.leave(readDone)
			}
			if _, quit := msg.(protocol.Disconnect); quit {
				return s.leave(readDone)
			}
			if err := s.send(msg); err != nil {
				return err
			}
		case <-ctx.Done():
			return s.leave(readDone)
		}
	}
}

func (s *joinSession) send(msg protocol.ClientMessage) error {
	frame, err := s.codec.EncodeClient(msg)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("failed to send %s: %w", msg.Type(), err)
	}
	if cfg.Verbose {
		s.out.PrintMessage("> " + string(frame))
	}
	return nil
}

// readLoop prints server messages until the connection ends
func (s *joinSession) readLoop() error {
	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}

		msg, err := s.codec.DecodeServer(frame)
		if err != nil {
			s.out.PrintError(err)
			continue
		}
		s.out.PrintFrame(frame, s.view.render(msg))
	}
}

// scan forwards parsed stdin commands; it closes commands at end of input
func (s *joinSession) scan(in io.Reader, commands chan<- protocol.ClientMessage, stop <-chan struct{}) {
	defer close(commands)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		msg, err := parseCommand(line)
		if err != nil {
			s.out.PrintError(err)
			continue
		}

		select {
		case commands <- msg:
		case <-stop:
			return
		}
	}
}

// leave sends Disconnect and waits briefly for the server to close
func (s *joinSession) leave(readDone <-chan error) error {
	if err := s.send(protocol.Disconnect{}); err != nil {
		return nil
	}

	select {
	case err := <-readDone:
		return s.result(err)
	case <-time.After(leaveTimeout):
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
		return nil
	}
}

func (s *joinSession) result(err error) error {
	if s.view.rejected {
		return fmt.Errorf("join as %q: %w", s.name, model.ErrNameNotAvailable)
	}
	if err == nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	return fmt.Errorf("connection lost: %w", err)
}
