package protocol

// FrameType identifies inbound stream frame variants.
type FrameType string

const (
	TypeAudio                 FrameType = "audio"
	TypeAgentTranscript       FrameType = "agent_transcript"
	TypeUserTranscript        FrameType = "user_transcript"
	TypeTurnComplete          FrameType = "turn_complete"
	TypeLiveAnalysis          FrameType = "live_analysis"
	TypeSessionEnding         FrameType = "session_ending"
	TypeSessionEnded          FrameType = "session_ended"
	TypeError                 FrameType = "error"
	TypeAudioSessionStarted   FrameType = "audio_session_started"
	TypeOrchestrationComplete FrameType = "orchestration_complete"
	TypeContextUpdate         FrameType = "context_update"

	// Outbound discriminant for the end-of-session signal
	TypeEndSession FrameType = "end_session"
)

// Event is one decoded inbound stream frame. The set of implementations is
// closed; malformed or unrecognized frames decode to ProtocolError so the
// consumer always receives a value.
type Event interface {
	// FrameType returns the wire discriminant the event was decoded from
	FrameType() FrameType
	isEvent()
}

// AudioFrame carries one chunk of agent speech audio for playback
type AudioFrame struct {
	Data []byte
}

// AgentTranscriptDelta carries the latest agent utterance text
type AgentTranscriptDelta struct {
	Text string
}

// UserTranscriptDelta carries the latest recognized user utterance text
type UserTranscriptDelta struct {
	Text string
}

// TurnComplete marks the end of one utterance from either party
type TurnComplete struct{}

// LiveAnalysis carries the backend's rolling wellness analysis
type LiveAnalysis struct {
	MoodScore         float64
	MoodTrend         string
	Urgency           string
	SocialSuggestions []string
	HealthInsights    []string
}

// AudioSessionStarted confirms the backend accepted the audio stream
type AudioSessionStarted struct{}

// OrchestrationComplete signals backend-side preparation has finished
type OrchestrationComplete struct {
	Message string
}

// ContextUpdate reports fresh context injected into the conversation by the
// backend's live agents. Informational; carries no state change.
type ContextUpdate struct {
	Context string
}

// SessionEnding announces an imminent backend-initiated teardown
type SessionEnding struct {
	Reason string
}

// SessionEnded reports the session is over
type SessionEnded struct {
	Reason    string
	Timestamp string
}

// ProtocolError represents a malformed or unrecognized frame
type ProtocolError struct {
	Message string
}

func (AudioFrame) FrameType() FrameType            { return TypeAudio }
func (AgentTranscriptDelta) FrameType() FrameType  { return TypeAgentTranscript }
func (UserTranscriptDelta) FrameType() FrameType   { return TypeUserTranscript }
func (TurnComplete) FrameType() FrameType          { return TypeTurnComplete }
func (LiveAnalysis) FrameType() FrameType          { return TypeLiveAnalysis }
func (AudioSessionStarted) FrameType() FrameType   { return TypeAudioSessionStarted }
func (OrchestrationComplete) FrameType() FrameType { return TypeOrchestrationComplete }
func (ContextUpdate) FrameType() FrameType         { return TypeContextUpdate }
func (SessionEnding) FrameType() FrameType         { return TypeSessionEnding }
func (SessionEnded) FrameType() FrameType          { return TypeSessionEnded }
func (ProtocolError) FrameType() FrameType         { return TypeError }

func (AudioFrame) isEvent()            {}
func (AgentTranscriptDelta) isEvent()  {}
func (UserTranscriptDelta) isEvent()   {}
func (TurnComplete) isEvent()          {}
func (LiveAnalysis) isEvent()          {}
func (AudioSessionStarted) isEvent()   {}
func (OrchestrationComplete) isEvent() {}
func (ContextUpdate) isEvent()         {}
func (SessionEnding) isEvent()         {}
func (SessionEnded) isEvent()          {}
func (ProtocolError) isEvent()         {}
