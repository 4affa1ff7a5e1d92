package pipeline

import "sync/atomic"

// Stats are the pipeline's running counters. They are updated by the
// pipeline goroutine and may be read concurrently, e.g. by admin routes.
type Stats struct {
	BytesRead         atomic.Uint64
	BytesDiscarded    atomic.Uint64 // framing loss while hunting for a header
	Packets           atomic.Uint64
	AngleRejected     atomic.Uint64
	FieldErrors       atomic.Uint64
	ChecksumFailures  atomic.Uint64 // readings with checksum_valid=false
	StrictDrops       atomic.Uint64 // readings dropped by strict_checksum
	ReadingsAccepted  atomic.Uint64
	ReadingsOutOfBand atomic.Uint64
	Revolutions       atomic.Uint64
	FilteredPoints    atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	BytesRead         uint64 `json:"bytes_read"`
	BytesDiscarded    uint64 `json:"bytes_discarded"`
	Packets           uint64 `json:"packets"`
	AngleRejected     uint64 `json:"angle_rejected"`
	FieldErrors       uint64 `json:"field_errors"`
	ChecksumFailures  uint64 `json:"checksum_failures"`
	StrictDrops       uint64 `json:"strict_drops"`
	ReadingsAccepted  uint64 `json:"readings_accepted"`
	ReadingsOutOfBand uint64 `json:"readings_out_of_band"`
	Revolutions       uint64 `json:"revolutions"`
	FilteredPoints    uint64 `json:"filtered_points"`
}

// Snapshot copies the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		BytesRead:         s.BytesRead.Load(),
		BytesDiscarded:    s.BytesDiscarded.Load(),
		Packets:           s.Packets.Load(),
		AngleRejected:     s.AngleRejected.Load(),
		FieldErrors:       s.FieldErrors.Load(),
		ChecksumFailures:  s.ChecksumFailures.Load(),
		StrictDrops:       s.StrictDrops.Load(),
		ReadingsAccepted:  s.ReadingsAccepted.Load(),
		ReadingsOutOfBand: s.ReadingsOutOfBand.Load(),
		Revolutions:       s.Revolutions.Load(),
		FilteredPoints:    s.FilteredPoints.Load(),
	}
}
