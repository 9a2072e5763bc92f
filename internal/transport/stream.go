package transport

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/aurawell/companion/internal/config"
	"github.com/aurawell/companion/internal/observability"
	"github.com/aurawell/companion/internal/protocol"
)

// Stream is the live bidirectional channel for one session. The read loop
// decodes every inbound frame through the codec and delivers events in arrival
// order on Events(); the channel closes when the socket does.
type Stream struct {
	conn   *websocket.Conn
	events chan protocol.Event
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	logger    zerolog.Logger
}

// OpenStream upgrades the session to a live audio socket. Dial attempts are
// bounded by the configured reconnect policy; the caller decides what a dial
// failure means for session state.
func OpenStream(ctx context.Context, cfg *config.Config, sessionID string) (*Stream, error) {
	url := cfg.SocketBaseURL + "/ws/session/" + sessionID
	logger := observability.GetLogger().With().
		Str("component", "stream").
		Str("session_id", sessionID).
		Logger()

	var conn *websocket.Conn
	dial := func() error {
		var err error
		conn, _, err = websocket.DefaultDialer.DialContext(ctx, url, nil)
		return err
	}

	maxAttempts := cfg.DialMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff := time.Duration(cfg.DialBackoff) * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, classify(url, err)
		}
		if lastErr = dial(); lastErr == nil {
			break
		}
		logger.Warn().Err(lastErr).Int("attempt", attempt+1).Msg("Stream dial failed")
		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, classify(url, ctx.Err())
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}
	if lastErr != nil {
		return nil, classify(url, lastErr)
	}

	s := &Stream{
		conn:   conn,
		events: make(chan protocol.Event, 64),
		done:   make(chan struct{}),
		logger: logger,
	}
	go s.readLoop()

	logger.Info().Msg("Audio stream connected")
	return s, nil
}

// OpenStream dials the session socket using the client's configuration
func (c *Client) OpenStream(ctx context.Context, sessionID string) (*Stream, error) {
	return OpenStream(ctx, c.cfg, sessionID)
}

// Events returns the ordered inbound event channel. It is closed when the
// socket closes, from either side.
func (s *Stream) Events() <-chan protocol.Event {
	return s.events
}

// SendAudio frames and writes one capture chunk
func (s *Stream) SendAudio(pcm []byte) error {
	raw, err := protocol.EncodeAudioChunk(pcm)
	if err != nil {
		return err
	}
	observability.RecordAudioBytes("out", len(pcm))
	return s.write(raw)
}

// SendEnd writes the end-of-session signal
func (s *Stream) SendEnd() error {
	raw, err := protocol.EncodeEndSession()
	if err != nil {
		return err
	}
	return s.write(raw)
}

func (s *Stream) write(raw []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	select {
	case <-s.done:
		return &Error{Kind: KindNetwork, Endpoint: "stream", Err: errStreamClosed}
	default:
	}
	return s.conn.WriteMessage(websocket.TextMessage, raw)
}

// Close shuts the socket down. It is idempotent and safe to call from any
// state, including concurrently with the read loop.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		// Best effort close handshake; the peer may already be gone
		s.writeMu.Lock()
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.writeMu.Unlock()
		err = s.conn.Close()
		s.logger.Debug().Msg("Stream closed")
	})
	return err
}

// IsClosed reports whether the stream has been shut down
func (s *Stream) IsClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Stream) readLoop() {
	defer close(s.events)

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if !s.IsClosed() && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("Stream read error")
			}
			return
		}

		ev := protocol.DecodeFrame(raw)
		observability.RecordInboundFrame(string(ev.FrameType()))
		if frame, ok := ev.(protocol.AudioFrame); ok {
			observability.RecordAudioBytes("in", len(frame.Data))
		}

		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

var errStreamClosed = &closedError{}

type closedError struct{}

func (*closedError) Error() string { return "stream is closed" }
