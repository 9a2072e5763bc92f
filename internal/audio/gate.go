package audio

import (
	"encoding/binary"
	"math"
)

// defaultHangover is how many consecutive quiet chunks still pass after
// speech, so word endings are not clipped.
const defaultHangover = 10

// Gate suppresses capture chunks that carry no speech energy, saving
// bandwidth on the uplink. Disabled it passes everything through.
type Gate struct {
	enabled   bool
	threshold float64
	hangover  int

	speaking bool
	quietRun int
}

// NewGate creates a silence gate with the given RMS energy threshold
func NewGate(enabled bool, threshold float64) *Gate {
	return &Gate{
		enabled:   enabled,
		threshold: threshold,
		hangover:  defaultHangover,
	}
}

// Pass reports whether a little-endian PCM16 chunk should be sent upstream
func (g *Gate) Pass(pcm []byte) bool {
	if !g.enabled {
		return true
	}

	if RMS(pcm) >= g.threshold {
		g.speaking = true
		g.quietRun = 0
		return true
	}

	if !g.speaking {
		return false
	}

	g.quietRun++
	if g.quietRun >= g.hangover {
		g.speaking = false
		g.quietRun = 0
	}
	return true
}

// Reset clears the gate's speech tracking state
func (g *Gate) Reset() {
	g.speaking = false
	g.quietRun = 0
}

// RMS computes root-mean-square energy of a little-endian PCM16 chunk
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		sum += float64(sample) * float64(sample)
	}
	return math.Sqrt(sum / float64(n))
}
