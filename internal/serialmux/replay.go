package serialmux

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// ReplayPort plays back a captured byte stream as if it were arriving on
// the wire. Writes are discarded. Reads return io.EOF once the capture is
// exhausted, which the pipeline treats as the stream closing.
type ReplayPort struct {
	mu       sync.Mutex
	src      io.Reader
	closer   io.Closer
	chunk    int
	interval time.Duration
	closed   bool
}

// NewReplayPort replays src in reads of at most chunk bytes, sleeping
// interval before each read. A zero interval replays as fast as possible.
func NewReplayPort(src io.Reader, chunk int, interval time.Duration) *ReplayPort {
	if chunk <= 0 {
		chunk = 64
	}
	rp := &ReplayPort{src: src, chunk: chunk, interval: interval}
	if c, ok := src.(io.Closer); ok {
		rp.closer = c
	}
	return rp
}

// OpenReplayFile opens a raw capture file for replay, pacing reads to
// roughly the given baud rate (10 bits per byte on an 8N1 line). A
// non-positive baud replays without pacing.
func OpenReplayFile(path string, baud int) (*ReplayPort, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	const chunk = 64
	var interval time.Duration
	if baud > 0 {
		interval = time.Duration(chunk*10) * time.Second / time.Duration(baud)
	}
	return NewReplayPort(f, chunk, interval), nil
}

// Read returns the next chunk of the capture.
func (r *ReplayPort) Read(p []byte) (int, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, ErrPortClosed
	}
	r.mu.Unlock()

	if r.interval > 0 {
		time.Sleep(r.interval)
	}
	if len(p) > r.chunk {
		p = p[:r.chunk]
	}
	return r.src.Read(p)
}

// Write discards p.
func (r *ReplayPort) Write(p []byte) (int, error) {
	return len(p), nil
}

// Close releases the underlying capture.
func (r *ReplayPort) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
