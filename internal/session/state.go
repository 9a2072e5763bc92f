package session

import "github.com/aurawell/companion/internal/protocol"

// State is one position in the session lifecycle
type State string

const (
	StateIdle                 State = "idle"
	StateStartingSession      State = "starting_session"
	StateWaitingOrchestration State = "waiting_orchestration"
	StateConnectingAudio      State = "connecting_audio"
	StateConnected            State = "connected"
	StateSpeaking             State = "speaking"
	StateListening            State = "listening"
	StateEnding               State = "ending"
	StateEnded                State = "ended"
	StateError                State = "error"
)

// InCall reports whether the audio stream is live in this state
func (s State) InCall() bool {
	return s == StateConnected || s == StateSpeaking || s == StateListening
}

// Terminal reports whether the session has finished, successfully or not
func (s State) Terminal() bool {
	return s == StateEnded || s == StateError
}

// Snapshot is one immutable view of the session, broadcast to every
// subscriber on each transition. StatusMessage is always non-empty;
// ErrorDetail is set only in StateError.
type Snapshot struct {
	State           State
	SessionID       string
	AgentTranscript string
	UserTranscript  string
	StatusMessage   string
	ErrorDetail     string
	Analysis        *protocol.LiveAnalysis
}
