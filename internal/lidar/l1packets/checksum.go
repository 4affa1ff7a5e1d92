package l1packets

// Checksum computes the sensor's 15-bit carry-folding checksum over window.
//
// The window is read as little-endian 16-bit words. Each word is folded into
// a 32-bit accumulator as acc = acc<<1 + w, with uint32 wrap-around matching
// the firmware. The accumulator is then reduced to 15 bits. A trailing odd
// byte is ignored.
func Checksum(window []byte) uint16 {
	var acc uint32
	for i := 0; i+1 < len(window); i += 2 {
		w := uint32(window[i]) | uint32(window[i+1])<<8
		acc = (acc << 1) + w
	}
	folded := (acc & 0x7FFF) + (acc >> 15)
	return uint16(folded & 0x7FFF)
}

// ValidChecksum reports whether the folding checksum of window equals expected.
func ValidChecksum(window []byte, expected uint16) bool {
	return Checksum(window) == expected
}
