package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// frame is the superset of fields carried by inbound stream frames
type frame struct {
	Type      string   `json:"type"`
	Data      string   `json:"data"`
	Text      string   `json:"text"`
	Message   string   `json:"message"`
	Reason    string   `json:"reason"`
	Timestamp string   `json:"timestamp"`
	Context   string   `json:"context"`
	MoodScore float64  `json:"mood_score"`
	MoodTrend string   `json:"mood_trend"`
	Urgency   string   `json:"urgency"`
	Social    []string `json:"social_suggestions"`
	Health    []string `json:"health_insights"`
}

// DecodeFrame parses one raw stream payload into an Event. It is total:
// malformed JSON, a missing or unknown discriminant, and an undecodable audio
// payload all yield ProtocolError rather than an error return, so the event
// loop never sees a decode failure.
func DecodeFrame(raw []byte) Event {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return ProtocolError{Message: fmt.Sprintf("malformed frame: %v", err)}
	}

	switch FrameType(f.Type) {
	case TypeAudio:
		data, err := base64.StdEncoding.DecodeString(f.Data)
		if err != nil {
			return ProtocolError{Message: fmt.Sprintf("invalid audio payload: %v", err)}
		}
		return AudioFrame{Data: data}

	case TypeAgentTranscript:
		return AgentTranscriptDelta{Text: f.Text}

	case TypeUserTranscript:
		return UserTranscriptDelta{Text: f.Text}

	case TypeTurnComplete:
		return TurnComplete{}

	case TypeLiveAnalysis:
		return LiveAnalysis{
			MoodScore:         f.MoodScore,
			MoodTrend:         f.MoodTrend,
			Urgency:           f.Urgency,
			SocialSuggestions: f.Social,
			HealthInsights:    f.Health,
		}

	case TypeAudioSessionStarted:
		return AudioSessionStarted{}

	case TypeOrchestrationComplete:
		return OrchestrationComplete{Message: f.Message}

	case TypeContextUpdate:
		return ContextUpdate{Context: f.Context}

	case TypeSessionEnding:
		// Older backends put the ending notice in "message"
		reason := f.Reason
		if reason == "" {
			reason = f.Message
		}
		return SessionEnding{Reason: reason}

	case TypeSessionEnded:
		return SessionEnded{Reason: f.Reason, Timestamp: f.Timestamp}

	case TypeError:
		return ProtocolError{Message: f.Message}

	case "":
		return ProtocolError{Message: "frame missing type discriminant"}

	default:
		return ProtocolError{Message: fmt.Sprintf("unknown frame type %q", f.Type)}
	}
}
