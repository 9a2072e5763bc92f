package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAudioChunk_RoundTrip(t *testing.T) {
	pcm := []byte{0x10, 0x20, 0x30, 0x40}

	raw, err := EncodeAudioChunk(pcm)
	require.NoError(t, err)

	ev := DecodeFrame(raw)
	frame, ok := ev.(AudioFrame)
	require.True(t, ok, "expected AudioFrame, got %T", ev)
	assert.Equal(t, pcm, frame.Data)
}

func TestEncodeEndSession(t *testing.T) {
	raw, err := EncodeEndSession()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "end_session", decoded["type"])
	assert.NotContains(t, decoded, "data")
}

func TestProfile_OmitsAbsentFields(t *testing.T) {
	raw, err := json.Marshal(Profile{Name: "Maya"})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	// The backend parser ignores unknown fields but rejects explicit nulls,
	// so absent optionals must not appear at all.
	assert.Equal(t, map[string]any{"name": "Maya"}, decoded)
}

func TestProfile_IncludesSetFields(t *testing.T) {
	mood := "anxious"
	steps := 4200
	raw, err := json.Marshal(Profile{
		Name:   "Maya",
		Mood:   &mood,
		Health: &HealthSnapshot{StepsToday: &steps},
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "anxious", decoded["mood"])

	health, ok := decoded["health"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(4200), health["steps_today"])
	assert.NotContains(t, health, "sleep_hours_last_night")
}

func TestChatResponse_Replies(t *testing.T) {
	withMessages := ChatResponse{Messages: []ChatMessage{
		{Role: "agent", Text: "hello"},
		{Role: "agent", Text: "how are you feeling?"},
	}}
	assert.Equal(t, []string{"hello", "how are you feeling?"}, withMessages.Replies())

	fallback := ChatResponse{Reply: "hello"}
	assert.Equal(t, []string{"hello"}, fallback.Replies())

	empty := ChatResponse{}
	assert.Nil(t, empty.Replies())
}
