package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SampledLogger logs the first Initial events it sees and then every
// Interval-th event after that. It keeps noisy per-packet diagnostics
// (rejected packets, checksum drops) readable on a live stream.
type SampledLogger struct {
	Initial  uint64
	Interval uint64
	count    atomic.Uint64
}

// NewSampledLogger returns a SampledLogger. An interval of 0 logs only the
// initial events.
func NewSampledLogger(initial, interval uint64) *SampledLogger {
	return &SampledLogger{Initial: initial, Interval: interval}
}

// Logf records one event and forwards it to the package logger if it is
// sampled. The event's ordinal is appended so skipped events are visible.
func (s *SampledLogger) Logf(format string, v ...interface{}) {
	n := s.count.Add(1)
	if n > s.Initial && (s.Interval == 0 || (n-s.Initial)%s.Interval != 0) {
		return
	}
	Logf(format+" (event %d)", append(v, n)...)
}

// Count returns how many events have been recorded, logged or not.
func (s *SampledLogger) Count() uint64 {
	return s.count.Load()
}
