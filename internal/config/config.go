package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the companion voice client
type Config struct {
	// Backend endpoints. The socket URL is derived from the API URL when unset.
	APIBaseURL    string `envconfig:"COMPANION_API_URL" default:"http://localhost:8000"`
	SocketBaseURL string `envconfig:"COMPANION_SOCKET_URL" default:""`

	// Session setup timing
	CreateSessionTimeout int `envconfig:"CREATE_SESSION_TIMEOUT" default:"60"` // Seconds; backend cold start can be slow
	PollInterval         int `envconfig:"ORCHESTRATION_POLL_INTERVAL_MS" default:"1500"`
	OrchestrationTimeout int `envconfig:"ORCHESTRATION_TIMEOUT" default:"45"` // Seconds; overall cap on readiness polling
	TeardownGrace        int `envconfig:"TEARDOWN_GRACE_MS" default:"1000"`   // Bound on end-of-call cleanup

	// Resilience configuration
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum retry attempts on transient failures
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds
	DialMaxAttempts            int `envconfig:"DIAL_MAX_ATTEMPTS" default:"3"`              // Maximum websocket dial attempts
	DialBackoff                int `envconfig:"DIAL_BACKOFF" default:"500"`                 // Dial backoff in milliseconds
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery

	// Audio configuration
	SilenceGateEnabled   bool    `envconfig:"SILENCE_GATE_ENABLED" default:"false"`
	SilenceGateThreshold float64 `envconfig:"SILENCE_GATE_THRESHOLD" default:"500.0"` // RMS energy threshold
	PlaybackBufferSize   int     `envconfig:"PLAYBACK_BUFFER_SIZE" default:"65536"`   // Jitter buffer size in bytes

	// Observability configuration
	AdminPort      string `envconfig:"ADMIN_PORT" default:"9090"`      // Local /metrics and /health listener
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("COMPANION_API_URL is required")
	}
	if cfg.SocketBaseURL == "" {
		cfg.SocketBaseURL = deriveSocketURL(cfg.APIBaseURL)
	}

	return &cfg, nil
}

// deriveSocketURL maps an HTTP base URL onto its websocket scheme
func deriveSocketURL(apiURL string) string {
	switch {
	case strings.HasPrefix(apiURL, "https://"):
		return "wss://" + strings.TrimPrefix(apiURL, "https://")
	case strings.HasPrefix(apiURL, "http://"):
		return "ws://" + strings.TrimPrefix(apiURL, "http://")
	default:
		return apiURL
	}
}

// CreateSessionDeadline returns the bound on the start-session call
func (c *Config) CreateSessionDeadline() time.Duration {
	return time.Duration(c.CreateSessionTimeout) * time.Second
}

// PollIntervalDuration returns the fixed delay between orchestration polls
func (c *Config) PollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Millisecond
}

// OrchestrationDeadline returns the overall cap on readiness polling
func (c *Config) OrchestrationDeadline() time.Duration {
	return time.Duration(c.OrchestrationTimeout) * time.Second
}

// TeardownGraceDuration returns the bound on end-of-call cleanup
func (c *Config) TeardownGraceDuration() time.Duration {
	return time.Duration(c.TeardownGrace) * time.Millisecond
}
