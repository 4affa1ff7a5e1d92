package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/rangescan/internal/lidar/l1packets"
	"github.com/banshee-data/rangescan/internal/lidar/l2frames"
	"github.com/banshee-data/rangescan/internal/lidar/l3filter"
	"github.com/banshee-data/rangescan/internal/monitoring"
)

// ErrStreamClosed is returned by Run when the byte source ends or fails.
// The transport error is wrapped alongside it.
var ErrStreamClosed = errors.New("lidar stream closed")

// DefaultReadBufferSize is the chunk size Run reads from the source.
const DefaultReadBufferSize = 256

// Rate limits for repeated per-packet warnings.
const (
	warnInitial  = 5
	warnInterval = 500
)

// Options configures a Pipeline. Zero distance and size fields select the
// l2frames defaults.
type Options struct {
	SensorID       string
	StrictChecksum bool
	MinDistanceMM  uint16
	MaxDistanceMM  uint16
	RevolutionSize int
	ReadBufferSize int
}

// Pipeline turns a raw byte stream into filtered revolutions. It is not
// safe for concurrent use except for Stats, which may be read from any
// goroutine.
type Pipeline struct {
	opts    Options
	framer  *l1packets.Framer
	decoder *l1packets.Decoder
	agg     *l2frames.Aggregator
	sink    Sink

	stats     Stats
	angleLog  *monitoring.SampledLogger
	strictLog *monitoring.SampledLogger
	fieldLog  *monitoring.SampledLogger
}

// New creates a pipeline delivering output to sink. A nil sink discards
// output; the counters are still maintained.
func New(opts Options, sink Sink) *Pipeline {
	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = DefaultReadBufferSize
	}
	if sink == nil {
		sink = SinkFuncs{}
	}
	return &Pipeline{
		opts:    opts,
		framer:  l1packets.NewFramer(),
		decoder: l1packets.NewDecoder(),
		agg: l2frames.NewAggregator(l2frames.AggregatorConfig{
			SensorID:       opts.SensorID,
			MinDistanceMM:  opts.MinDistanceMM,
			MaxDistanceMM:  opts.MaxDistanceMM,
			RevolutionSize: opts.RevolutionSize,
		}),
		sink:      sink,
		angleLog:  monitoring.NewSampledLogger(warnInitial, warnInterval),
		strictLog: monitoring.NewSampledLogger(warnInitial, warnInterval),
		fieldLog:  monitoring.NewSampledLogger(warnInitial, warnInterval),
	}
}

// CheckStrict returns ErrChecksumMismatch for a reading whose packet failed
// checksum validation.
func CheckStrict(r l1packets.Reading) error {
	if r.ChecksumValid {
		return nil
	}
	return fmt.Errorf("%w: angle %.0f°", l1packets.ErrChecksumMismatch, r.AngleDegrees())
}

// Feed pushes one byte through framing, decoding, aggregation and
// filtering. Sink callbacks run synchronously from within Feed.
func (p *Pipeline) Feed(b byte) {
	p.stats.BytesRead.Add(1)
	discarded := p.framer.Discarded()
	pkt, ok := p.framer.Feed(b)
	if p.framer.Discarded() != discarded {
		p.stats.BytesDiscarded.Add(1)
	}
	if !ok {
		return
	}
	p.stats.Packets.Add(1)

	readings, err := p.decoder.Decode(pkt)
	switch {
	case errors.Is(err, l1packets.ErrAngleBaseOutOfRange):
		p.stats.AngleRejected.Add(1)
		p.angleLog.Logf("pipeline: dropping packet: %v", err)
		return
	case err != nil:
		p.stats.FieldErrors.Add(1)
		p.fieldLog.Logf("pipeline: %v", err)
	}

	for _, r := range readings {
		p.handleReading(r)
	}
}

func (p *Pipeline) handleReading(r l1packets.Reading) {
	if !r.ChecksumValid {
		p.stats.ChecksumFailures.Add(1)
		if p.opts.StrictChecksum {
			p.stats.StrictDrops.Add(1)
			p.strictLog.Logf("pipeline: strict mode dropping reading: %v", CheckStrict(r))
			return
		}
	}

	rev, accepted := p.agg.Add(r)
	if !accepted {
		p.stats.ReadingsOutOfBand.Add(1)
		return
	}
	p.stats.ReadingsAccepted.Add(1)
	p.sink.HandleReading(r)

	if rev == nil {
		return
	}
	points := l3filter.Filter(rev.Readings)
	p.stats.Revolutions.Add(1)
	p.stats.FilteredPoints.Add(uint64(len(points)))
	p.sink.HandleRevolution(*rev, points)
}

// Write feeds every byte of buf. It always consumes the whole buffer and
// never fails, so a Pipeline can be the destination of io.Copy.
func (p *Pipeline) Write(buf []byte) (int, error) {
	for _, b := range buf {
		p.Feed(b)
	}
	return len(buf), nil
}

// Run reads from src until the context is cancelled or the source fails.
// A read that returns no bytes and no error is treated as a poll timeout
// and retried. On cancellation Run returns ctx.Err(); otherwise it returns
// an error wrapping both ErrStreamClosed and the read error (io.EOF for an
// exhausted capture).
func (p *Pipeline) Run(ctx context.Context, src io.Reader) error {
	buf := make([]byte, p.opts.ReadBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := src.Read(buf)
		for _, b := range buf[:n] {
			p.Feed(b)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%w: %w", ErrStreamClosed, err)
		}
	}
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() StatsSnapshot {
	return p.stats.Snapshot()
}

// DecoderState exposes the decoder's carried-over speed memory.
func (p *Pipeline) DecoderState() l1packets.DecoderState {
	return p.decoder.State()
}

// FramerState exposes the framer's position within the current packet.
func (p *Pipeline) FramerState() l1packets.FramerState {
	return p.framer.State()
}

// Pending returns the number of readings buffered toward the next
// revolution.
func (p *Pipeline) Pending() int {
	return p.agg.Len()
}
