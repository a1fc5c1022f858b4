package audio

import (
	"io"
	"sync"
)

// Jitter buffer sizing. At 44.1kHz stereo s16le one second is ~176KB; the
// default cap holds roughly two seconds of live audio before old frames
// are dropped.
const (
	defaultStreamCap = 2 * SampleRate * ChannelCount * BytesPerSample

	// silenceChunk is what Read hands out on underrun: ~20ms of silence,
	// so a stalled network stream produces a brief gap instead of
	// blocking the output.
	silenceChunk = SampleRate / 50 * ChannelCount * BytesPerSample
)

// StreamProvider is a live, push-fed Provider backed by a bounded jitter
// buffer. Inbound frames are appended in arrival order; Read drains them.
// On underrun Read yields silence rather than blocking; after Close the
// remaining buffered audio is drained and then Read returns io.EOF.
type StreamProvider struct {
	mu     sync.Mutex
	buf    []byte
	cap    int
	closed bool
}

// NewStreamProvider creates a stream with the given buffer cap in bytes.
// A cap <= 0 selects the default (~2s of audio).
func NewStreamProvider(capBytes int) *StreamProvider {
	if capBytes <= 0 {
		capBytes = defaultStreamCap
	}
	return &StreamProvider{cap: capBytes}
}

// Push appends an inbound audio frame. If the buffer would exceed its cap,
// the oldest audio is dropped to make room. Push after Close is a no-op.
func (s *StreamProvider) Push(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.buf = append(s.buf, frame...)
	if over := len(s.buf) - s.cap; over > 0 {
		s.buf = s.buf[over:]
	}
}

// Close marks the end of the live stream. Buffered audio still drains.
func (s *StreamProvider) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Buffered returns the number of bytes currently queued.
func (s *StreamProvider) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

func (s *StreamProvider) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buf) > 0 {
		n := copy(p, s.buf)
		s.buf = s.buf[n:]
		return n, nil
	}

	if s.closed {
		return 0, io.EOF
	}

	// Underrun: feed silence so the output keeps running while the
	// network catches up.
	n := silenceChunk
	if n > len(p) {
		n = len(p)
	}
	for i := 0; i < n; i++ {
		p[i] = 0
	}
	return n, nil
}
