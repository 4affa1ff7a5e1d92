package pipeline

import (
	"github.com/banshee-data/rangescan/internal/lidar/l1packets"
	"github.com/banshee-data/rangescan/internal/lidar/l2frames"
	"github.com/banshee-data/rangescan/internal/lidar/l3filter"
	"github.com/banshee-data/rangescan/internal/monitoring"
)

// Sink consumes pipeline output. HandleReading is called for every reading
// accepted into the current revolution, before filtering. HandleRevolution
// is called once per completed revolution with the filtered points.
//
// Calls arrive in FIFO order from the pipeline goroutine. A sink that needs
// more than one revolution of history buffers it itself.
type Sink interface {
	HandleReading(l1packets.Reading)
	HandleRevolution(l2frames.Revolution, []l3filter.FilteredPoint)
}

// MultiSink fans output out to several sinks in order.
type MultiSink []Sink

// HandleReading implements Sink.
func (m MultiSink) HandleReading(r l1packets.Reading) {
	for _, s := range m {
		s.HandleReading(r)
	}
}

// HandleRevolution implements Sink.
func (m MultiSink) HandleRevolution(rev l2frames.Revolution, pts []l3filter.FilteredPoint) {
	for _, s := range m {
		s.HandleRevolution(rev, pts)
	}
}

// SinkFuncs adapts plain functions to Sink. Nil fields are skipped.
type SinkFuncs struct {
	Reading    func(l1packets.Reading)
	Revolution func(l2frames.Revolution, []l3filter.FilteredPoint)
}

// HandleReading implements Sink.
func (f SinkFuncs) HandleReading(r l1packets.Reading) {
	if f.Reading != nil {
		f.Reading(r)
	}
}

// HandleRevolution implements Sink.
func (f SinkFuncs) HandleRevolution(rev l2frames.Revolution, pts []l3filter.FilteredPoint) {
	if f.Revolution != nil {
		f.Revolution(rev, pts)
	}
}

// LogSink writes one line per revolution, and optionally one per reading,
// through monitoring.Logf.
type LogSink struct {
	Readings bool
}

// HandleReading implements Sink.
func (l LogSink) HandleReading(r l1packets.Reading) {
	if !l.Readings {
		return
	}
	monitoring.Logf("speed : %.2f RPM, angle : %.0f, dist : %d, checksum_ok=%t",
		r.SpeedRPM, r.AngleDegrees(), r.DistanceMM, r.ChecksumValid)
}

// HandleRevolution implements Sink.
func (l LogSink) HandleRevolution(rev l2frames.Revolution, pts []l3filter.FilteredPoint) {
	monitoring.Logf("revolution %d (%s): readings=%d filtered=%d checksum_failures=%d mean_speed=%.2f RPM duration=%v",
		rev.Sequence, rev.ID, len(rev.Readings), len(pts), rev.ChecksumFailures(),
		rev.MeanSpeedRPM(), rev.EndWallTime.Sub(rev.StartWallTime))
}
