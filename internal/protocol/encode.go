package protocol

import (
	"encoding/base64"
	"encoding/json"
)

type outboundFrame struct {
	Type FrameType `json:"type"`
	Data string    `json:"data,omitempty"`
}

// EncodeAudioChunk frames one capture chunk for the stream, base64 in-band
func EncodeAudioChunk(pcm []byte) ([]byte, error) {
	return json.Marshal(outboundFrame{
		Type: TypeAudio,
		Data: base64.StdEncoding.EncodeToString(pcm),
	})
}

// EncodeEndSession frames the end-of-session signal
func EncodeEndSession() ([]byte, error) {
	return json.Marshal(outboundFrame{Type: TypeEndSession})
}
