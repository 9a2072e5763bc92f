package protocol

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame_Audio(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte{0x01, 0x02, 0x03})
	ev := DecodeFrame([]byte(`{"type":"audio","data":"` + payload + `"}`))

	frame, ok := ev.(AudioFrame)
	require.True(t, ok, "expected AudioFrame, got %T", ev)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, frame.Data)
}

func TestDecodeFrame_AudioBadBase64(t *testing.T) {
	ev := DecodeFrame([]byte(`{"type":"audio","data":"not-base64!!!"}`))

	perr, ok := ev.(ProtocolError)
	require.True(t, ok, "expected ProtocolError, got %T", ev)
	assert.Contains(t, perr.Message, "invalid audio payload")
}

func TestDecodeFrame_Transcripts(t *testing.T) {
	ev := DecodeFrame([]byte(`{"type":"agent_transcript","text":"take a deep breath"}`))
	require.IsType(t, AgentTranscriptDelta{}, ev)
	assert.Equal(t, "take a deep breath", ev.(AgentTranscriptDelta).Text)

	ev = DecodeFrame([]byte(`{"type":"user_transcript","text":"I'm stressed"}`))
	require.IsType(t, UserTranscriptDelta{}, ev)
	assert.Equal(t, "I'm stressed", ev.(UserTranscriptDelta).Text)
}

func TestDecodeFrame_TurnComplete(t *testing.T) {
	ev := DecodeFrame([]byte(`{"type":"turn_complete"}`))
	assert.IsType(t, TurnComplete{}, ev)
}

func TestDecodeFrame_LiveAnalysis(t *testing.T) {
	raw := `{"type":"live_analysis","mood_score":0.7,"mood_trend":"improving",
		"urgency":"low","social_suggestions":["join a walking group"],
		"health_insights":["sleep is trending up"]}`
	ev := DecodeFrame([]byte(raw))

	analysis, ok := ev.(LiveAnalysis)
	require.True(t, ok, "expected LiveAnalysis, got %T", ev)
	assert.Equal(t, 0.7, analysis.MoodScore)
	assert.Equal(t, "improving", analysis.MoodTrend)
	assert.Equal(t, []string{"join a walking group"}, analysis.SocialSuggestions)
}

func TestDecodeFrame_ContextUpdate(t *testing.T) {
	ev := DecodeFrame([]byte(`{"type":"context_update","context":"mood trending up"}`))

	update, ok := ev.(ContextUpdate)
	require.True(t, ok, "expected ContextUpdate, got %T", ev)
	assert.Equal(t, "mood trending up", update.Context)
}

func TestDecodeFrame_Lifecycle(t *testing.T) {
	ev := DecodeFrame([]byte(`{"type":"orchestration_complete","message":"agents ready"}`))
	require.IsType(t, OrchestrationComplete{}, ev)
	assert.Equal(t, "agents ready", ev.(OrchestrationComplete).Message)

	ev = DecodeFrame([]byte(`{"type":"audio_session_started"}`))
	assert.IsType(t, AudioSessionStarted{}, ev)

	ev = DecodeFrame([]byte(`{"type":"session_ended","reason":"ai_initiated","timestamp":"2025-01-01T00:00:00"}`))
	ended, ok := ev.(SessionEnded)
	require.True(t, ok)
	assert.Equal(t, "ai_initiated", ended.Reason)
	assert.Equal(t, "2025-01-01T00:00:00", ended.Timestamp)
}

func TestDecodeFrame_SessionEndingMessageFallback(t *testing.T) {
	ev := DecodeFrame([]byte(`{"type":"session_ending","message":"AI is ending the session"}`))

	ending, ok := ev.(SessionEnding)
	require.True(t, ok)
	assert.Equal(t, "AI is ending the session", ending.Reason)
}

func TestDecodeFrame_UnknownFieldsIgnored(t *testing.T) {
	ev := DecodeFrame([]byte(`{"type":"turn_complete","extra":"field","還有":123}`))
	assert.IsType(t, TurnComplete{}, ev)
}

func TestDecodeFrame_MalformedInput(t *testing.T) {
	cases := map[string]string{
		"not json":       `{{{`,
		"missing type":   `{"text":"hello"}`,
		"unknown type":   `{"type":"telemetry_v2"}`,
		"empty":          ``,
		"wrong top type": `[1,2,3]`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			ev := DecodeFrame([]byte(raw))
			assert.IsType(t, ProtocolError{}, ev, "input %q must decode to ProtocolError", raw)
		})
	}
}

func TestDecodeFrame_ErrorFrame(t *testing.T) {
	ev := DecodeFrame([]byte(`{"type":"error","message":"Gemini error: overloaded"}`))

	perr, ok := ev.(ProtocolError)
	require.True(t, ok)
	assert.Equal(t, "Gemini error: overloaded", perr.Message)
}
