package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("COMPANION_API_URL")
	os.Unsetenv("COMPANION_SOCKET_URL")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.APIBaseURL != "http://localhost:8000" {
		t.Errorf("Expected default APIBaseURL 'http://localhost:8000', got '%s'", cfg.APIBaseURL)
	}

	if cfg.CreateSessionTimeout != 60 {
		t.Errorf("Expected default CreateSessionTimeout 60, got %d", cfg.CreateSessionTimeout)
	}

	if cfg.PollInterval != 1500 {
		t.Errorf("Expected default PollInterval 1500, got %d", cfg.PollInterval)
	}

	if cfg.OrchestrationTimeout != 45 {
		t.Errorf("Expected default OrchestrationTimeout 45, got %d", cfg.OrchestrationTimeout)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default LogLevel 'info', got '%s'", cfg.LogLevel)
	}
}

func TestLoad_SocketURLDerived(t *testing.T) {
	os.Setenv("COMPANION_API_URL", "https://api.wellness.example.com")
	os.Unsetenv("COMPANION_SOCKET_URL")
	defer os.Unsetenv("COMPANION_API_URL")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.SocketBaseURL != "wss://api.wellness.example.com" {
		t.Errorf("Expected derived SocketBaseURL 'wss://api.wellness.example.com', got '%s'", cfg.SocketBaseURL)
	}
}

func TestLoad_SocketURLExplicit(t *testing.T) {
	os.Setenv("COMPANION_API_URL", "http://localhost:8000")
	os.Setenv("COMPANION_SOCKET_URL", "ws://stream.internal:9000")
	defer os.Unsetenv("COMPANION_API_URL")
	defer os.Unsetenv("COMPANION_SOCKET_URL")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.SocketBaseURL != "ws://stream.internal:9000" {
		t.Errorf("Expected explicit SocketBaseURL 'ws://stream.internal:9000', got '%s'", cfg.SocketBaseURL)
	}
}

func TestDeriveSocketURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:8000", "ws://localhost:8000"},
		{"https://api.example.com", "wss://api.example.com"},
		{"ws://already-socket:1234", "ws://already-socket:1234"},
	}

	for _, tt := range tests {
		if got := deriveSocketURL(tt.in); got != tt.want {
			t.Errorf("deriveSocketURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
