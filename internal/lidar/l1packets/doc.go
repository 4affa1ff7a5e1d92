// Package l1packets owns Layer 1 (Packets) of the LiDAR data model.
//
// Responsibilities: framing the sensor's serial byte stream into fixed
// 22-byte packets, validating the 15-bit folding checksum and decoding each
// packet into four range readings. This layer produces the Readings consumed
// by L2 (Frames).
//
// Wire layout of one packet (little-endian multi-byte fields):
//
//	0       header, always 0xFA
//	1       angle base index, (b-0xA0)*4 degrees
//	2-3     raw motor speed, /64 = RPM
//	4-5     sample 0: lo, hi (hi bits 0-5 distance, bit 6 strength warning, bit 7 invalid)
//	6-7     sample 0 signal (unused)
//	8-9     sample 1
//	12-13   sample 2
//	16-17   sample 3
//	20-21   checksum over bytes 0-19
//
// Dependency rule: L1 has no inward dependencies on higher layers.
package l1packets
