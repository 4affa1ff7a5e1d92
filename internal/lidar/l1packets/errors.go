package l1packets

import "errors"

// Error kinds reported by the packet layer. None of them is fatal: callers
// recover by dropping the affected packet or sample and carrying on.
var (
	// ErrFramingLoss marks a byte discarded while hunting for a header.
	ErrFramingLoss = errors.New("framing loss: byte discarded before header")

	// ErrAngleBaseOutOfRange means the packet's angle index decodes past 360°
	// and none of its readings were emitted.
	ErrAngleBaseOutOfRange = errors.New("angle base out of range")

	// ErrFieldParse means one field could not be extracted from the packet
	// bytes. Only the affected sample is skipped.
	ErrFieldParse = errors.New("field parse failure")

	// ErrChecksumMismatch is returned when a caller asks for strict checksum
	// handling and a reading carries checksum_valid=false.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)
