package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/aurawell/companion/internal/audio"
	"github.com/aurawell/companion/internal/config"
	"github.com/aurawell/companion/internal/observability"
	"github.com/aurawell/companion/internal/protocol"
	"github.com/aurawell/companion/internal/resilience"
	"github.com/aurawell/companion/internal/session"
	"github.com/aurawell/companion/internal/transport"
)

func main() {
	var (
		name     = flag.String("name", "", "user display name sent with the session profile")
		mood     = flag.String("mood", "", "current mood, free text")
		goals    = flag.String("goals", "", "wellness goals, free text")
		chatMsg  = flag.String("chat", "", "send one text message instead of starting a voice session")
		events   = flag.Bool("events", false, "list events near the given coordinates instead of starting a session")
		lat      = flag.Float64("lat", 0, "latitude for event lookup")
		lon      = flag.Float64("lon", 0, "longitude for event lookup")
		keyword  = flag.String("keyword", "", "keyword filter for event lookup")
		social   = flag.Bool("social", false, "use the social gathering lookup instead of general events")
		duration = flag.Duration("for", 0, "end the session automatically after this long (0 = until interrupted)")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("api_url", cfg.APIBaseURL).
		Str("socket_url", cfg.SocketBaseURL).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Wellness companion client starting")

	breaker := resilience.NewCircuitBreaker(
		"backend",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)
	client := transport.NewClient(cfg, breaker)

	// One-shot text surfaces share the transport but skip the session machine
	if *chatMsg != "" {
		runChat(client, *chatMsg, logger)
		return
	}
	if *events {
		runEvents(client, protocol.EventsQuery{Lat: *lat, Lon: *lon, Keyword: *keyword}, *social, logger)
		return
	}

	// Local admin listener: health, readiness, Prometheus metrics
	admin := startAdminServer(cfg, client, logger)

	profile := protocol.Profile{Name: *name}
	if *mood != "" {
		profile.Mood = mood
	}
	if *goals != "" {
		profile.Goals = goals
	}

	sink := newPlaybackSink(cfg, logger)
	ctrl := session.New(cfg, clientBackend{client}, sink)

	transitions, unsubscribe := ctrl.Store().Subscribe()
	finished := make(chan session.State, 1)
	go func() {
		for snap := range transitions {
			evt := logger.Info().
				Str("state", string(snap.State)).
				Str("status", snap.StatusMessage)
			if snap.SessionID != "" {
				evt = evt.Str("session_id", snap.SessionID)
			}
			if snap.ErrorDetail != "" {
				evt = evt.Str("error", snap.ErrorDetail)
			}
			if snap.Analysis != nil {
				evt = evt.Float64("mood_score", snap.Analysis.MoodScore).
					Str("mood_trend", snap.Analysis.MoodTrend)
			}
			evt.Msg("Session transition")

			if snap.State.Terminal() {
				select {
				case finished <- snap.State:
				default:
				}
			}
		}
	}()

	ctrl.Start(profile)

	// Wait for interrupt, the optional deadline, or the session ending on its own
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}

	select {
	case <-quit:
		logger.Info().Msg("Interrupted, ending session")
		ctrl.End()
		awaitTerminal(finished, logger)
	case <-deadline:
		logger.Info().Dur("after", *duration).Msg("Session deadline reached, ending session")
		ctrl.End()
		awaitTerminal(finished, logger)
	case state := <-finished:
		logger.Info().Str("state", string(state)).Msg("Session finished")
	}

	unsubscribe()
	ctrl.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := admin.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Admin server shutdown failed")
	}

	logger.Info().Int64("playback_bytes", sink.totalBytes()).Msg("Wellness companion client stopped")
}

// awaitTerminal blocks until the session reaches a terminal state, bounded so
// a wedged teardown cannot hang shutdown
func awaitTerminal(finished <-chan session.State, logger zerolog.Logger) {
	select {
	case state := <-finished:
		logger.Info().Str("state", string(state)).Msg("Session finished")
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("Timed out waiting for session teardown")
	}
}

func runChat(client *transport.Client, message string, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.WellnessChat(ctx, "", message)
	if err != nil {
		logger.Fatal().Err(err).Msg("Chat request failed")
	}
	for _, reply := range resp.Replies() {
		fmt.Println(reply)
	}
}

func runEvents(client *transport.Client, query protocol.EventsQuery, social bool, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		found []protocol.EventSummary
		err   error
	)
	if social {
		found, err = client.SocialEvents(ctx, query)
	} else {
		found, err = client.EventsNearMe(ctx, query)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("Event lookup failed")
	}

	if len(found) == 0 {
		fmt.Println("No events found")
		return
	}
	for _, ev := range found {
		line := ev.Name
		if ev.VenueName != "" {
			line += " @ " + ev.VenueName
		}
		if ev.LocalDate != "" {
			line += " (" + ev.LocalDate
			if ev.LocalTime != "" {
				line += " " + ev.LocalTime
			}
			line += ")"
		}
		fmt.Println(line)
	}
}

func startAdminServer(cfg *config.Config, client *transport.Client, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	backendCheck := func(ctx context.Context) (bool, error) {
		return client.HealthCheck(ctx)
	}
	mux.HandleFunc("/ready", observability.ReadinessHandler(backendCheck))

	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AdminPort),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.AdminPort).Msg("Admin server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Admin server failed")
		}
	}()

	return server
}

// clientBackend adapts the transport client to the controller's backend
// contract
type clientBackend struct {
	client *transport.Client
}

func (b clientBackend) CreateSession(ctx context.Context, profile protocol.Profile) (string, error) {
	return b.client.CreateSession(ctx, profile)
}

func (b clientBackend) PollOrchestration(ctx context.Context, sessionID string) (protocol.OrchestrationStatus, error) {
	return b.client.PollOrchestration(ctx, sessionID)
}

func (b clientBackend) OpenStream(ctx context.Context, sessionID string) (session.StreamHandle, error) {
	stream, err := b.client.OpenStream(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// playbackSink stages agent audio through a jitter buffer the way a
// device-facing player would. Without a local audio device it drains the
// buffer immediately and accounts for the bytes.
type playbackSink struct {
	mu      sync.Mutex
	ring    *audio.RingBuffer
	scratch []byte
	total   int64
	logger  zerolog.Logger
}

func newPlaybackSink(cfg *config.Config, logger zerolog.Logger) *playbackSink {
	return &playbackSink{
		ring:    audio.NewRingBuffer(cfg.PlaybackBufferSize),
		scratch: make([]byte, 4096),
		logger:  logger.With().Str("component", "playback").Logger(),
	}
}

func (p *playbackSink) Play(pcm []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := p.ring.Write(pcm); n < len(pcm) {
		p.logger.Warn().Int("dropped", len(pcm)-n).Msg("Playback buffer overflow")
	}
	for p.ring.Available() > 0 {
		p.total += int64(p.ring.Read(p.scratch))
	}
}

func (p *playbackSink) totalBytes() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}
