package l1packets

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Decoding constants for the packet payload.
const (
	AngleBaseOffset   = 0xA0  // angle byte value for 0°
	AngleStepDegrees  = 4     // degrees covered by one angle index step
	MaxAngleBase      = 360   // packets whose angle base exceeds this are dropped
	SpeedScale        = 64.0  // raw speed units per RPM
	SpeedJumpRPM      = 100.0 // speed delta above which smoothing blends instead of snapping
	SpeedBlendCurrent = 0.95  // weight of the remembered speed when blending
	SpeedBlendInstant = 0.05  // weight of the new speed when blending
	SamplesPerPacket  = 4     // range samples carried by one packet
	SampleStride      = 4     // bytes between consecutive sample starts
	FirstSampleOffset = 4     // offset of sample 0 lo byte

	distanceMask    = 0x3F // magnitude bits of the sample hi byte
	strengthWarnBit = 1 << 6
	invalidDataBit  = 1 << 7
)

// Reading is one decoded range sample.
type Reading struct {
	AngleRadians  float64
	DistanceMM    uint16
	SpeedRPM      float64 // smoothed motor speed shared by the packet's four samples
	ChecksumValid bool

	// Status bits from the sample hi byte. Decoded for inspection only.
	StrengthWarning bool
	InvalidData     bool
}

// AngleDegrees returns the reading's angle in degrees.
func (r Reading) AngleDegrees() float64 {
	return r.AngleRadians * 180 / math.Pi
}

// DecoderState is the memory carried across packets by a Decoder.
type DecoderState struct {
	CurrentSpeedRPM float64
}

// Decoder turns framed packets into Readings.
type Decoder struct {
	state DecoderState
}

// NewDecoder returns a Decoder with zero speed memory.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// State returns a copy of the decoder's carried-over state.
func (d *Decoder) State() DecoderState {
	return d.state
}

// SetState replaces the decoder's carried-over state.
func (d *Decoder) SetState(s DecoderState) {
	d.state = s
}

// Decode decodes one framed packet. It returns no readings and
// ErrAngleBaseOutOfRange when the angle index is past 360°, otherwise
// exactly four readings.
func (d *Decoder) Decode(p Packet) ([]Reading, error) {
	return d.DecodeBytes(p[:])
}

// DecodeBytes decodes a packet held in an arbitrary slice, typically a frame
// cut from a capture file that may be short. Samples whose bytes are missing
// are skipped and reported through an error wrapping ErrFieldParse; the
// readings that could be decoded are still returned alongside it. A missing
// checksum trailer marks every reading as invalid.
func (d *Decoder) DecodeBytes(b []byte) ([]Reading, error) {
	if len(b) < FirstSampleOffset {
		return nil, fmt.Errorf("%w: packet of %d bytes has no speed field", ErrFieldParse, len(b))
	}

	angleBase := (int(b[1]) - AngleBaseOffset) * AngleStepDegrees
	if angleBase > MaxAngleBase {
		return nil, fmt.Errorf("%w: %d°", ErrAngleBaseOutOfRange, angleBase)
	}

	speed := d.smoothSpeed(float64(binary.LittleEndian.Uint16(b[2:4])) / SpeedScale)

	valid := false
	if len(b) >= ChecksumOffset+2 {
		expected := binary.LittleEndian.Uint16(b[ChecksumOffset : ChecksumOffset+2])
		valid = ValidChecksum(b[:ChecksumOffset], expected)
	}

	readings := make([]Reading, 0, SamplesPerPacket)
	skipped := 0
	for k := 0; k < SamplesPerPacket; k++ {
		dist, flags, err := parseSample(b, FirstSampleOffset+k*SampleStride)
		if err != nil {
			skipped++
			continue
		}
		readings = append(readings, Reading{
			AngleRadians:    float64(angleBase+k) * math.Pi / 180,
			DistanceMM:      dist,
			SpeedRPM:        speed,
			ChecksumValid:   valid,
			StrengthWarning: flags&strengthWarnBit != 0,
			InvalidData:     flags&invalidDataBit != 0,
		})
	}

	if skipped > 0 {
		return readings, fmt.Errorf("%w: %d of %d samples truncated", ErrFieldParse, skipped, SamplesPerPacket)
	}
	return readings, nil
}

// smoothSpeed folds an instantaneous speed into the remembered speed.
// Large jumps are blended slowly and small ones are taken as-is. This is the
// reverse of the usual spike filter but matches the sensor's reference
// decoder, so it is kept.
func (d *Decoder) smoothSpeed(instant float64) float64 {
	if math.Abs(instant-d.state.CurrentSpeedRPM) > SpeedJumpRPM {
		d.state.CurrentSpeedRPM = d.state.CurrentSpeedRPM*SpeedBlendCurrent + instant*SpeedBlendInstant
	} else {
		d.state.CurrentSpeedRPM = instant
	}
	return d.state.CurrentSpeedRPM
}

// parseSample extracts the 14-bit distance and the two status bits of the
// sample starting at off.
func parseSample(b []byte, off int) (uint16, byte, error) {
	if off+1 >= len(b) {
		return 0, 0, fmt.Errorf("%w: sample at offset %d", ErrFieldParse, off)
	}
	lo, hi := b[off], b[off+1]
	return uint16(hi&distanceMask)<<8 | uint16(lo), hi &^ distanceMask, nil
}

// EncodePacket builds a wire packet from an angle index byte, a raw speed
// and four raw sample words, filling in the checksum trailer. It is the
// inverse of Decode and is used to synthesise captures.
func EncodePacket(angleByte byte, speedRaw uint16, samples [SamplesPerPacket]uint16) Packet {
	var p Packet
	p[0] = HeaderByte
	p[1] = angleByte
	binary.LittleEndian.PutUint16(p[2:4], speedRaw)
	for k, s := range samples {
		binary.LittleEndian.PutUint16(p[FirstSampleOffset+k*SampleStride:], s)
	}
	binary.LittleEndian.PutUint16(p[ChecksumOffset:], Checksum(p[:ChecksumOffset]))
	return p
}
