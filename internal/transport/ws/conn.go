// Package ws adapts a websocket connection to the lobby protocol: inbound
// frames become decoded client messages and server messages become outbound
// frames, one message per text frame.
package ws

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hardliner66/MageBattle/internal/protocol"
)

const (
	// DefaultWriteWait is the time allowed to write a frame to the peer
	DefaultWriteWait = 10 * time.Second
	// DefaultPongWait is the time allowed to read the next pong from the peer
	DefaultPongWait = 60 * time.Second
	// DefaultMaxMessageSize is the largest inbound frame accepted, in bytes
	DefaultMaxMessageSize = 4096
	// DefaultMaxQueuedBytes caps the encoded frames waiting for the peer
	DefaultMaxQueuedBytes = 8 << 20
	// DefaultHandshakeTimeout bounds the upgrade handshake
	DefaultHandshakeTimeout = 10 * time.Second
)

var (
	// ErrClosed is returned when sending on a closed connection
	ErrClosed = errors.New("connection closed")
	// ErrSendQueueFull is returned when more than MaxQueuedBytes are waiting
	// for the peer; the connection is closed when this happens
	ErrSendQueueFull = errors.New("send queue full")
)

// Options configures a connection
type Options struct {
	Codec            protocol.Codec
	WriteWait        time.Duration
	PongWait         time.Duration
	PingPeriod       time.Duration // must be less than PongWait
	MaxMessageSize   int64
	MaxQueuedBytes   int
	HandshakeTimeout time.Duration
	CheckOrigin      func(r *http.Request) bool
	Logger           *slog.Logger
}

// DefaultOptions returns options suitable for production use
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.Codec == nil {
		o.Codec = protocol.NewJSONCodec()
	}
	if o.WriteWait <= 0 {
		o.WriteWait = DefaultWriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = DefaultPongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = (o.PongWait * 9) / 10
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = DefaultMaxMessageSize
	}
	if o.MaxQueuedBytes <= 0 {
		o.MaxQueuedBytes = DefaultMaxQueuedBytes
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if o.CheckOrigin == nil {
		o.CheckOrigin = func(*http.Request) bool { return true }
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Conn is one upgraded websocket connection. Send and Close may be called
// from any goroutine; Messages must be consumed by a single reader.
type Conn struct {
	ws     *websocket.Conn
	opts   Options
	logger *slog.Logger

	// queue holds encoded frames in Send order; wake tells the writer
	// there is something to drain
	qmu    sync.Mutex
	queue  [][]byte
	queued int
	wake   chan struct{}

	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
	reading    atomic.Bool

	mu  sync.Mutex
	err error
}

// Open performs the websocket handshake on the request and starts the
// connection's writer
func Open(w http.ResponseWriter, r *http.Request, opts Options) (*Conn, error) {
	opts = opts.withDefaults()
	upgrader := websocket.Upgrader{
		HandshakeTimeout: opts.HandshakeTimeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      opts.CheckOrigin,
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket handshake: %w", err)
	}
	return newConn(wsConn, opts), nil
}

func newConn(wsConn *websocket.Conn, opts Options) *Conn {
	c := &Conn{
		ws:         wsConn,
		opts:       opts,
		logger:     opts.Logger.With(slog.String("remote_addr", wsConn.RemoteAddr().String())),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	go c.writePump()
	return c
}

// Send encodes msg and queues it for the peer. It never blocks. Messages are
// written in the order Send was called. A stalled peer is detected by the
// write deadline, or by the queue growing past MaxQueuedBytes.
func (c *Conn) Send(msg protocol.ServerMessage) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	data, err := c.opts.Codec.EncodeServer(msg)
	if err != nil {
		return err
	}

	c.qmu.Lock()
	select {
	case <-c.done:
		c.qmu.Unlock()
		return ErrClosed
	default:
	}
	if c.queued+len(data) > c.opts.MaxQueuedBytes {
		queued := c.queued
		c.qmu.Unlock()
		c.logger.Warn("websocket send queue full, closing connection",
			slog.Int("queued_bytes", queued),
			slog.Int("max_queued_bytes", c.opts.MaxQueuedBytes))
		c.closeWith(ErrSendQueueFull)
		return ErrSendQueueFull
	}
	c.queue = append(c.queue, data)
	c.queued += len(data)
	c.qmu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

// take removes and returns everything queued so far
func (c *Conn) take() [][]byte {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	frames := c.queue
	c.queue = nil
	c.queued = 0
	return frames
}

// Messages returns the decoded inbound messages. A frame that cannot be
// decoded yields a *protocol.DecodeError and the sequence goes on; a transport
// error or close ends it, with the cause available from Err. The sequence can
// be consumed once; later calls yield nothing.
func (c *Conn) Messages() iter.Seq2[protocol.ClientMessage, error] {
	return func(yield func(protocol.ClientMessage, error) bool) {
		if !c.reading.CompareAndSwap(false, true) {
			return
		}

		c.ws.SetReadLimit(c.opts.MaxMessageSize)
		_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		c.ws.SetPongHandler(func(string) error {
			return c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		})

		for {
			messageType, data, err := c.ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
					c.logger.Debug("websocket read failed", slog.String("error", err.Error()))
				}
				if isCleanClose(err) {
					err = nil
				}
				c.closeWith(err)
				return
			}

			if messageType != websocket.TextMessage {
				if !yield(nil, &protocol.DecodeError{Reason: "only text frames are supported"}) {
					return
				}
				continue
			}

			msg, err := c.opts.Codec.DecodeClient(data)
			if !yield(msg, err) {
				return
			}
		}
	}
}

// Err returns why the connection ended. It is nil while the connection is
// open and after a clean close by either side.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close shuts the connection down. Frames already queued are flushed before
// the socket is released. It is safe to call more than once.
func (c *Conn) Close() error {
	c.closeWith(nil)
	return nil
}

// Done is closed once the connection has been closed
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) closeWith(cause error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = cause
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
		close(c.writerDone)
	}()

	for {
		select {
		case <-c.wake:
			if err := c.writeQueued(); err != nil {
				c.closeWith(err)
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.closeWith(err)
				return
			}

		case <-c.done:
			if c.writeQueued() == nil {
				_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			}
			return
		}
	}
}

// writeQueued writes whatever is queued, stopping at the first error
func (c *Conn) writeQueued() error {
	for _, data := range c.take() {
		if err := c.write(websocket.TextMessage, data); err != nil {
			return err
		}
	}
	return nil
}

func (c *Conn) write(messageType int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
	return c.ws.WriteMessage(messageType, data)
}

func isCleanClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
