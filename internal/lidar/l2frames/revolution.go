package l2frames

import (
	"time"

	"github.com/banshee-data/rangescan/internal/lidar/l1packets"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// Revolution defaults for the serial sensor.
const (
	DefaultMinDistanceMM  = 100  // readings closer than this are sensor noise
	DefaultMaxDistanceMM  = 3000 // readings further than this are past the sensor's range
	DefaultRevolutionSize = 360  // one reading per degree
)

// Revolution is one full sweep of accepted readings. It is a snapshot: the
// Aggregator never touches Readings after emitting it.
type Revolution struct {
	ID            string    // unique identifier for this revolution
	SensorID      string    // which sensor produced it
	Sequence      int64     // 1-based revolution counter
	StartWallTime time.Time // wall-clock time the first reading was accepted
	EndWallTime   time.Time // wall-clock time the last reading was accepted
	Readings      []l1packets.Reading
}

// Distances returns the revolution's distances in millimetres.
func (r Revolution) Distances() []float64 {
	out := make([]float64, len(r.Readings))
	for i, rd := range r.Readings {
		out[i] = float64(rd.DistanceMM)
	}
	return out
}

// MeanSpeedRPM returns the mean smoothed motor speed over the revolution.
func (r Revolution) MeanSpeedRPM() float64 {
	if len(r.Readings) == 0 {
		return 0
	}
	speeds := make([]float64, len(r.Readings))
	for i, rd := range r.Readings {
		speeds[i] = rd.SpeedRPM
	}
	return stat.Mean(speeds, nil)
}

// ChecksumFailures counts readings whose packet failed the checksum.
func (r Revolution) ChecksumFailures() int {
	n := 0
	for _, rd := range r.Readings {
		if !rd.ChecksumValid {
			n++
		}
	}
	return n
}

// AggregatorConfig configures an Aggregator. Zero values select defaults.
type AggregatorConfig struct {
	SensorID       string
	MinDistanceMM  uint16
	MaxDistanceMM  uint16
	RevolutionSize int
}

// Aggregator buffers accepted readings until a full revolution is
// collected. There is no timeout: if packets are lost the buffer keeps
// filling with later readings until it reaches RevolutionSize.
type Aggregator struct {
	sensorID string
	minDist  uint16
	maxDist  uint16
	size     int

	buf      []l1packets.Reading
	start    time.Time
	sequence int64
	dropped  uint64
	now      func() time.Time
}

// NewAggregator creates an Aggregator from cfg.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	if cfg.MinDistanceMM == 0 {
		cfg.MinDistanceMM = DefaultMinDistanceMM
	}
	if cfg.MaxDistanceMM == 0 {
		cfg.MaxDistanceMM = DefaultMaxDistanceMM
	}
	if cfg.RevolutionSize <= 0 {
		cfg.RevolutionSize = DefaultRevolutionSize
	}
	return &Aggregator{
		sensorID: cfg.SensorID,
		minDist:  cfg.MinDistanceMM,
		maxDist:  cfg.MaxDistanceMM,
		size:     cfg.RevolutionSize,
		buf:      make([]l1packets.Reading, 0, cfg.RevolutionSize),
		now:      time.Now,
	}
}

// Add offers one reading. accepted reports whether the reading was inside
// the distance band and was buffered. When the reading completes a
// revolution the snapshot is returned and the buffer starts empty again.
func (a *Aggregator) Add(r l1packets.Reading) (rev *Revolution, accepted bool) {
	if r.DistanceMM < a.minDist || r.DistanceMM > a.maxDist {
		a.dropped++
		return nil, false
	}

	now := a.now()
	if len(a.buf) == 0 {
		a.start = now
	}
	a.buf = append(a.buf, r)
	if len(a.buf) < a.size {
		return nil, true
	}

	a.sequence++
	rev = &Revolution{
		ID:            uuid.NewString(),
		SensorID:      a.sensorID,
		Sequence:      a.sequence,
		StartWallTime: a.start,
		EndWallTime:   now,
		Readings:      a.buf,
	}
	a.buf = make([]l1packets.Reading, 0, a.size)
	return rev, true
}

// Len returns the number of readings waiting in the current revolution.
func (a *Aggregator) Len() int {
	return len(a.buf)
}

// Size returns the number of readings that completes a revolution.
func (a *Aggregator) Size() int {
	return a.size
}

// Dropped returns how many readings fell outside the distance band.
func (a *Aggregator) Dropped() uint64 {
	return a.dropped
}

// Revolutions returns how many revolutions have been emitted.
func (a *Aggregator) Revolutions() int64 {
	return a.sequence
}

// Reset discards the partially filled revolution.
func (a *Aggregator) Reset() {
	a.buf = a.buf[:0]
	a.start = time.Time{}
}
