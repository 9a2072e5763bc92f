package audio

import (
	"sync"
)

// RingBuffer is a thread-safe byte ring. It sits between the bursty inbound
// audio frames and the playback sink so short network stalls do not starve
// playback.
type RingBuffer struct {
	mu    sync.Mutex
	buf   []byte
	read  int
	write int
	count int
}

// NewRingBuffer creates a ring buffer holding up to size bytes
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{buf: make([]byte, size)}
}

// Write copies data into the buffer. Returns the number of bytes written,
// which is less than len(data) when the buffer fills.
func (rb *RingBuffer) Write(data []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	written := 0
	for written < len(data) && rb.count < len(rb.buf) {
		chunk := len(rb.buf) - rb.write // contiguous run to end of buffer
		if free := len(rb.buf) - rb.count; chunk > free {
			chunk = free
		}
		if remain := len(data) - written; chunk > remain {
			chunk = remain
		}
		copy(rb.buf[rb.write:rb.write+chunk], data[written:written+chunk])
		rb.write = (rb.write + chunk) % len(rb.buf)
		rb.count += chunk
		written += chunk
	}
	return written
}

// Read copies buffered bytes into data. Returns the number of bytes read.
func (rb *RingBuffer) Read(data []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	read := 0
	for read < len(data) && rb.count > 0 {
		chunk := len(rb.buf) - rb.read
		if chunk > rb.count {
			chunk = rb.count
		}
		if remain := len(data) - read; chunk > remain {
			chunk = remain
		}
		copy(data[read:read+chunk], rb.buf[rb.read:rb.read+chunk])
		rb.read = (rb.read + chunk) % len(rb.buf)
		rb.count -= chunk
		read += chunk
	}
	return read
}

// Available returns the number of bytes buffered for reading
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Clear discards all buffered bytes
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.read = 0
	rb.write = 0
	rb.count = 0
}
