package l1packets

// Packet framing constants for the serial sensor.
const (
	HeaderByte     = 0xFA // first byte of every frame
	PacketSize     = 22   // bytes per frame including header and checksum
	ChecksumOffset = 20   // checksum trailer offset; the checksum covers bytes [0, ChecksumOffset)
)

// Packet is one raw frame as delivered by the Framer. Byte 0 holds HeaderByte.
type Packet [PacketSize]byte

// FramerMode is the framing state machine position.
type FramerMode int

const (
	// WaitingForHeader discards bytes until HeaderByte arrives.
	WaitingForHeader FramerMode = iota
	// Filling appends bytes until a full packet is assembled.
	Filling
)

func (m FramerMode) String() string {
	switch m {
	case WaitingForHeader:
		return "waiting_for_header"
	case Filling:
		return "filling"
	default:
		return "unknown"
	}
}

// FramerState is the framing progress carried between calls to Feed.
type FramerState struct {
	Mode   FramerMode
	Packet Packet
	Index  int
}

// Framer assembles fixed-size packets from an unstructured byte stream.
//
// Once a header byte has been seen the next PacketSize-1 bytes are taken as
// the rest of the frame without re-checking for a header. A byte dropped on
// the wire therefore misaligns framing until a later frame happens to start
// on a header value. Existing captures depend on this, so it is not
// resynchronised here.
type Framer struct {
	state     FramerState
	discarded uint64
	frames    uint64
}

// NewFramer returns a Framer waiting for its first header byte.
func NewFramer() *Framer {
	return &Framer{}
}

// Feed consumes one byte. It returns a completed packet and true when b was
// the final byte of a frame, and false otherwise.
func (f *Framer) Feed(b byte) (Packet, bool) {
	switch f.state.Mode {
	case WaitingForHeader:
		if b != HeaderByte {
			f.discarded++
			return Packet{}, false
		}
		f.state.Packet = Packet{}
		f.state.Packet[0] = b
		f.state.Index = 1
		f.state.Mode = Filling
		return Packet{}, false

	default:
		f.state.Packet[f.state.Index] = b
		f.state.Index++
		if f.state.Index < PacketSize {
			return Packet{}, false
		}
		pkt := f.state.Packet
		f.Reset()
		f.frames++
		return pkt, true
	}
}

// Reset abandons any partially assembled frame.
func (f *Framer) Reset() {
	f.state = FramerState{}
}

// State returns a copy of the current framing state.
func (f *Framer) State() FramerState {
	return f.state
}

// Discarded returns how many bytes were dropped while waiting for a header.
func (f *Framer) Discarded() uint64 {
	return f.discarded
}

// Frames returns how many complete packets have been emitted.
func (f *Framer) Frames() uint64 {
	return f.frames
}
