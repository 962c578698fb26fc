package ui

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	DefaultStreamPath = "/ws"
	DefaultMinBackoff = 500 * time.Millisecond
	DefaultMaxBackoff = 30 * time.Second

	streamReadLimit = 1 << 20
)

// Stream is a live updates connection that can be torn down.
type Stream interface {
	Close() error
}

// StreamURL derives the socket URL from the page origin: http maps to ws and
// https to wss.
func StreamURL(origin *url.URL, path string) string {
	if path == "" {
		path = DefaultStreamPath
	}
	scheme := "wss"
	if origin.Scheme == "http" || origin.Scheme == "ws" {
		scheme = "ws"
	}
	u := url.URL{Scheme: scheme, Host: origin.Host, Path: path}
	return u.String()
}

// StreamConfig configures a StreamGateway.
type StreamConfig struct {
	URL string
	// Handshake, when set, is sent as a text message right after connecting.
	Handshake []byte
	// Reconnect enables reconnection with exponential backoff after a drop.
	Reconnect  bool
	MinBackoff time.Duration
	MaxBackoff time.Duration
	Dial       *websocket.DialOptions
	Logger     *slog.Logger
}

// StreamGateway supervises the live updates socket and fires a StreamEvent for
// every message it receives. It does not interpret tags.
//
// A message that is not valid JSON is logged and dropped; the connection stays up.
// When a live connection drops, one ErrorEvent is fired and, if enabled, the
// gateway reconnects until Close is called.
type StreamGateway struct {
	bus  *EventBus
	post Poster
	cfg  StreamConfig
	log  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// NewStreamGateway returns a gateway that is not connected yet.
func NewStreamGateway(bus *EventBus, post Poster, cfg StreamConfig) *StreamGateway {
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = DefaultMinBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &StreamGateway{
		bus:    bus,
		post:   post,
		cfg:    cfg,
		log:    log.With("stream", cfg.URL),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Open connects in the background. Calling it again has no effect.
func (s *StreamGateway) Open() {
	s.once.Do(func() { go s.run() })
}

// Close tears the connection down and stops reconnecting. It is idempotent.
func (s *StreamGateway) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	c := s.conn
	s.mu.Unlock()

	if c != nil {
		go c.Close(websocket.StatusNormalClosure, "")
	}
	s.cancel()
	s.once.Do(func() { close(s.done) })
	return nil
}

// Done is closed once the gateway stopped for good.
func (s *StreamGateway) Done() <-chan struct{} { return s.done }

// Connected reports whether a socket is currently up.
func (s *StreamGateway) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

func (s *StreamGateway) run() {
	defer close(s.done)

	backoff := s.cfg.MinBackoff
	announced := false
	for {
		conn, _, err := websocket.Dial(s.ctx, s.cfg.URL, s.cfg.Dial)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.log.Warn("dial failed", "err", err)
		} else {
			backoff = s.cfg.MinBackoff
			announced = false
			if !s.attach(conn) {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			s.serve(conn)
			s.detach()
			conn.CloseNow()
			if s.ctx.Err() != nil {
				return
			}
			if !announced {
				announced = true
				s.fire(ErrorEvent{Message: "Live updates disconnected"})
			}
		}

		if !s.cfg.Reconnect {
			return
		}
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}
}

func (s *StreamGateway) serve(conn *websocket.Conn) {
	conn.SetReadLimit(streamReadLimit)
	s.log.Debug("connected")

	if len(s.cfg.Handshake) > 0 {
		if err := conn.Write(s.ctx, websocket.MessageText, s.cfg.Handshake); err != nil {
			s.log.Warn("handshake failed", "err", err)
			return
		}
	}

	for {
		_, data, err := conn.Read(s.ctx)
		if err != nil {
			if s.ctx.Err() == nil {
				s.log.Info("connection closed", "status", websocket.CloseStatus(err), "err", err)
			}
			return
		}
		var msg StreamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn("dropping malformed message", "err", err, "size", len(data))
			continue
		}
		s.fire(StreamEvent{Msg: msg})
	}
}

func (s *StreamGateway) attach(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conn = conn
	return true
}

func (s *StreamGateway) detach() {
	s.mu.Lock()
	s.conn = nil
	s.mu.Unlock()
}

func (s *StreamGateway) fire(evt Event) {
	s.post.Do(func() { s.bus.Fire(evt) })
}
