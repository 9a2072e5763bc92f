package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aurawell/companion/internal/audio"
	"github.com/aurawell/companion/internal/config"
	"github.com/aurawell/companion/internal/observability"
	"github.com/aurawell/companion/internal/protocol"
)

// Backend is the transport contract the controller drives. Implementations
// perform network I/O and return values; they never touch session state.
type Backend interface {
	CreateSession(ctx context.Context, profile protocol.Profile) (string, error)
	PollOrchestration(ctx context.Context, sessionID string) (protocol.OrchestrationStatus, error)
	OpenStream(ctx context.Context, sessionID string) (StreamHandle, error)
}

// StreamHandle is the live audio socket for one session. The controller owns
// it exclusively for the session's lifetime.
type StreamHandle interface {
	Events() <-chan protocol.Event
	SendAudio(pcm []byte) error
	SendEnd() error
	Close() error
	IsClosed() bool
}

// AudioSink receives agent audio for playback
type AudioSink interface {
	Play(pcm []byte)
}

type msgKind int

const (
	msgStartCall msgKind = iota
	msgEndCall
	msgReset
	msgSendAudio
	msgSessionCreated
	msgPollTick
	msgPollResult
	msgOrchestrationTimeout
	msgStreamOpened
	msgStreamEvent
	msgStreamClosed
	msgTeardownDone
)

// message is one item on the controller's sequential queue. gen tags async
// completions with the session attempt that spawned them; -1 marks user
// intents, which always apply to the current attempt.
type message struct {
	gen       int
	kind      msgKind
	profile   protocol.Profile
	pcm       []byte
	sessionID string
	status    protocol.OrchestrationStatus
	stream    StreamHandle
	event     protocol.Event
	err       error
}

// Controller is the authoritative session state machine. All session state is
// owned by a single event loop goroutine: transitions are evaluated one event
// at a time in arrival order, so no locking is needed on the snapshot, and the
// UI-facing methods never block on network I/O.
type Controller struct {
	cfg     *config.Config
	backend Backend
	sink    AudioSink
	gate    *audio.Gate
	store   *Store
	logger  zerolog.Logger

	msgs      chan message
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// Loop-owned state; touched only by run()
	gen           int
	snap          Snapshot
	stream        StreamHandle
	attemptCtx    context.Context
	attemptCancel context.CancelFunc
	pollTimer     *time.Timer
	deadlineTimer *time.Timer
	teardownTimer *time.Timer
	metrics       *observability.SessionMetrics
}

// New creates a controller and starts its event loop
func New(cfg *config.Config, backend Backend, sink AudioSink) *Controller {
	initial := Snapshot{State: StateIdle, StatusMessage: "Ready to start a session"}
	c := &Controller{
		cfg:     cfg,
		backend: backend,
		sink:    sink,
		gate:    audio.NewGate(cfg.SilenceGateEnabled, cfg.SilenceGateThreshold),
		store:   NewStore(initial),
		logger:  observability.GetLogger().With().Str("component", "session").Logger(),
		msgs:    make(chan message, 256),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		snap:    initial,
	}
	go c.run()
	return c
}

// Store returns the observable session store
func (c *Controller) Store() *Store {
	return c.store
}

// Start begins a new session. From Ended or Error it first resets all session
// data; during an active session it is ignored.
func (c *Controller) Start(profile protocol.Profile) {
	c.post(message{gen: -1, kind: msgStartCall, profile: profile})
}

// End tears the session down. Always reaches Ended within the teardown grace;
// calling it again during or after teardown is a no-op.
func (c *Controller) End() {
	c.post(message{gen: -1, kind: msgEndCall})
}

// Reset returns a terminal session to Idle, clearing all session data
func (c *Controller) Reset() {
	c.post(message{gen: -1, kind: msgReset})
}

// SendAudio forwards one capture chunk to the stream. Dropped silently
// outside the connected states.
func (c *Controller) SendAudio(pcm []byte) {
	c.post(message{gen: -1, kind: msgSendAudio, pcm: pcm})
}

// Close stops the event loop and releases the stream, for app shutdown
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.quit) })
	<-c.done
}

func (c *Controller) post(m message) {
	select {
	case c.msgs <- m:
	case <-c.quit:
	}
}

func (c *Controller) run() {
	defer close(c.done)

	for {
		select {
		case <-c.quit:
			c.cancelAttempt()
			c.stopTimer(&c.teardownTimer)
			if c.stream != nil {
				c.stream.Close()
				c.stream = nil
			}
			return
		case m := <-c.msgs:
			c.handle(m)
		}
	}
}

func (c *Controller) handle(m message) {
	if m.gen >= 0 && m.gen != c.gen {
		// Completion of a superseded attempt. A stream handed to a dead
		// session still has to be released.
		if m.kind == msgStreamOpened && m.stream != nil {
			m.stream.Close()
		}
		c.logger.Debug().Int("gen", m.gen).Int("current", c.gen).Msg("Discarded stale event")
		return
	}

	switch m.kind {
	case msgStartCall:
		c.handleStart(m.profile)
	case msgEndCall:
		c.handleEnd()
	case msgReset:
		c.handleReset()
	case msgSendAudio:
		c.handleSendAudio(m.pcm)
	case msgSessionCreated:
		c.handleSessionCreated(m)
	case msgPollTick:
		if c.snap.State == StateWaitingOrchestration {
			c.startPoll()
		}
	case msgPollResult:
		c.handlePollResult(m)
	case msgOrchestrationTimeout:
		if c.snap.State == StateWaitingOrchestration {
			c.fail("orchestration timeout", "orchestration")
		}
	case msgStreamOpened:
		c.handleStreamOpened(m)
	case msgStreamEvent:
		if c.snap.State.InCall() {
			c.handleStreamEvent(m.event)
		}
	case msgStreamClosed:
		if c.snap.State.InCall() {
			c.fail("connection lost", "stream")
		}
	case msgTeardownDone:
		if c.snap.State == StateEnding {
			c.finishEnd()
		}
	}
}

func (c *Controller) handleStart(profile protocol.Profile) {
	// Starting over from a terminal state is a full reset; mid-session the
	// call is ignored
	if c.snap.State != StateIdle && !c.snap.State.Terminal() {
		c.logger.Warn().Str("state", string(c.snap.State)).Msg("Start ignored during active session")
		return
	}

	c.gen++
	gen := c.gen
	c.attemptCtx, c.attemptCancel = context.WithCancel(context.Background())
	ctx := c.attemptCtx
	c.metrics = observability.NewSessionMetrics()
	c.gate.Reset()

	// Each attempt logs under its own correlation ID
	c.logger = observability.WithCorrelationID(observability.NewCorrelationID()).
		With().
		Str("component", "session").
		Logger()

	c.snap = Snapshot{State: StateStartingSession, StatusMessage: "Starting session"}
	c.store.Publish(c.snap)

	go func() {
		id, err := c.backend.CreateSession(ctx, profile)
		c.post(message{gen: gen, kind: msgSessionCreated, sessionID: id, err: err})
	}()
}

func (c *Controller) handleSessionCreated(m message) {
	if c.snap.State != StateStartingSession {
		return
	}
	if m.err != nil {
		c.fail("session start failed: "+m.err.Error(), "create_session")
		return
	}

	c.update(func(s *Snapshot) {
		s.State = StateWaitingOrchestration
		s.SessionID = m.sessionID
		s.StatusMessage = "Preparing your companion"
	})

	gen := c.gen
	c.deadlineTimer = time.AfterFunc(c.cfg.OrchestrationDeadline(), func() {
		c.post(message{gen: gen, kind: msgOrchestrationTimeout})
	})
	c.startPoll()
}

func (c *Controller) startPoll() {
	gen := c.gen
	ctx := c.attemptCtx
	id := c.snap.SessionID
	c.metrics.RecordPoll()

	go func() {
		status, err := c.backend.PollOrchestration(ctx, id)
		c.post(message{gen: gen, kind: msgPollResult, status: status, err: err})
	}()
}

func (c *Controller) handlePollResult(m message) {
	if c.snap.State != StateWaitingOrchestration {
		return
	}

	if m.err == nil && m.status.Ready {
		// Orchestration is complete; only now may the audio socket open
		c.stopTimer(&c.deadlineTimer)
		c.update(func(s *Snapshot) {
			s.State = StateConnectingAudio
			s.StatusMessage = "Connecting audio"
		})

		gen := c.gen
		ctx := c.attemptCtx
		id := c.snap.SessionID
		go func() {
			stream, err := c.backend.OpenStream(ctx, id)
			c.post(message{gen: gen, kind: msgStreamOpened, stream: stream, err: err})
		}()
		return
	}

	if m.err != nil {
		// A failed poll is treated as not-ready; the overall deadline caps it
		c.logger.Warn().Err(m.err).Msg("Orchestration poll failed")
		observability.RecordError("poll", "session")
	}

	gen := c.gen
	c.pollTimer = time.AfterFunc(c.cfg.PollIntervalDuration(), func() {
		c.post(message{gen: gen, kind: msgPollTick})
	})
}

func (c *Controller) handleStreamOpened(m message) {
	if c.snap.State != StateConnectingAudio {
		if m.stream != nil {
			m.stream.Close()
		}
		return
	}
	if m.err != nil {
		c.fail("audio connection failed: "+m.err.Error(), "open_stream")
		return
	}

	c.stream = m.stream
	c.update(func(s *Snapshot) {
		s.State = StateConnected
		s.StatusMessage = "Connected, you can speak now"
	})

	gen := c.gen
	go func(stream StreamHandle) {
		for ev := range stream.Events() {
			c.post(message{gen: gen, kind: msgStreamEvent, event: ev})
		}
		c.post(message{gen: gen, kind: msgStreamClosed})
	}(m.stream)
}

func (c *Controller) handleStreamEvent(ev protocol.Event) {
	switch ev := ev.(type) {
	case protocol.AudioFrame:
		if c.sink != nil {
			c.sink.Play(ev.Data)
		}
		if c.snap.State == StateConnected {
			c.update(func(s *Snapshot) {
				s.State = StateListening
				s.StatusMessage = "Companion is speaking"
			})
		}

	case protocol.AgentTranscriptDelta:
		c.update(func(s *Snapshot) {
			s.AgentTranscript = ev.Text
			if s.State == StateConnected {
				s.State = StateListening
				s.StatusMessage = "Companion is speaking"
			}
		})

	case protocol.UserTranscriptDelta:
		c.update(func(s *Snapshot) {
			s.UserTranscript = ev.Text
			if s.State == StateConnected {
				s.State = StateSpeaking
				s.StatusMessage = "Listening to you"
			}
		})

	case protocol.TurnComplete:
		if c.snap.State == StateSpeaking || c.snap.State == StateListening {
			c.update(func(s *Snapshot) {
				s.State = StateConnected
				s.StatusMessage = "Listening"
			})
		}

	case protocol.LiveAnalysis:
		analysis := ev
		c.update(func(s *Snapshot) {
			s.Analysis = &analysis
		})

	case protocol.AudioSessionStarted:
		c.logger.Debug().Msg("Audio session confirmed by backend")

	case protocol.OrchestrationComplete:
		c.logger.Debug().Str("message", ev.Message).Msg("Orchestration complete notice")

	case protocol.ContextUpdate:
		c.logger.Debug().Str("context", ev.Context).Msg("Context injected by backend")

	case protocol.SessionEnding:
		c.update(func(s *Snapshot) {
			s.StatusMessage = "Companion is wrapping up"
		})

	case protocol.SessionEnded:
		c.logger.Info().Str("reason", ev.Reason).Msg("Session ended by backend")
		c.cancelAttempt()
		if c.stream != nil {
			c.stream.Close()
			c.stream = nil
		}
		c.gen++
		c.update(func(s *Snapshot) {
			s.State = StateEnded
			s.StatusMessage = "Session ended"
			s.AgentTranscript = ""
			s.UserTranscript = ""
		})
		if c.metrics != nil {
			c.metrics.RecordEnd("ended")
		}

	case protocol.ProtocolError:
		c.fail("protocol error: "+ev.Message, "protocol")
	}
}

func (c *Controller) handleEnd() {
	switch {
	case c.snap.State == StateIdle || c.snap.State == StateEnding || c.snap.State.Terminal():
		// Idempotent: a second end-call is a no-op

	case c.snap.State.InCall():
		stream := c.stream
		c.stream = nil
		c.cancelAttempt()
		c.gen++
		gen := c.gen

		c.update(func(s *Snapshot) {
			s.State = StateEnding
			s.StatusMessage = "Ending session"
		})

		// Send the end signal best effort; the grace timer bounds teardown
		// even when the backend is unreachable
		go func() {
			if stream != nil {
				if err := stream.SendEnd(); err != nil {
					c.logger.Debug().Err(err).Msg("End signal not delivered")
				}
				stream.Close()
			}
			c.post(message{gen: gen, kind: msgTeardownDone})
		}()
		c.teardownTimer = time.AfterFunc(c.cfg.TeardownGraceDuration(), func() {
			c.post(message{gen: gen, kind: msgTeardownDone})
		})

	default:
		// Setup states: cancel whatever is in flight, no socket to drain
		c.cancelAttempt()
		c.gen++
		c.update(func(s *Snapshot) {
			s.State = StateEnding
			s.StatusMessage = "Ending session"
		})
		c.finishEnd()
	}
}

func (c *Controller) finishEnd() {
	c.stopTimer(&c.teardownTimer)
	c.update(func(s *Snapshot) {
		s.State = StateEnded
		s.StatusMessage = "Session ended"
		s.AgentTranscript = ""
		s.UserTranscript = ""
	})
	if c.metrics != nil {
		c.metrics.RecordEnd("ended")
	}
}

func (c *Controller) handleReset() {
	if !c.snap.State.Terminal() {
		return
	}
	c.gen++
	c.snap = Snapshot{State: StateIdle, StatusMessage: "Ready to start a session"}
	c.store.Publish(c.snap)
}

func (c *Controller) handleSendAudio(pcm []byte) {
	if !c.snap.State.InCall() || c.stream == nil {
		return
	}
	if !c.gate.Pass(pcm) {
		return
	}
	if err := c.stream.SendAudio(pcm); err != nil {
		c.logger.Warn().Err(err).Msg("Audio send failed")
		observability.RecordError("audio_send", "session")
	}
}

// fail moves to the absorbing Error state. Transcripts from an in-call
// failure are preserved for display; ErrorDetail clears on Reset.
func (c *Controller) fail(detail, component string) {
	observability.RecordError(component, "session")
	c.cancelAttempt()
	if c.stream != nil {
		c.stream.Close()
		c.stream = nil
	}
	c.gen++
	c.update(func(s *Snapshot) {
		s.State = StateError
		s.ErrorDetail = detail
		s.StatusMessage = "Something went wrong"
	})
	if c.metrics != nil {
		c.metrics.RecordEnd("error")
	}
	c.logger.Error().Str("detail", detail).Str("component", component).Msg("Session failed")
}

func (c *Controller) cancelAttempt() {
	if c.attemptCancel != nil {
		c.attemptCancel()
		c.attemptCancel = nil
	}
	c.attemptCtx = nil
	c.stopTimer(&c.pollTimer)
	c.stopTimer(&c.deadlineTimer)
}

func (c *Controller) stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func (c *Controller) update(fn func(*Snapshot)) {
	fn(&c.snap)
	c.store.Publish(c.snap)
}
