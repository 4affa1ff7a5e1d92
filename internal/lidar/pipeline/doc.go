// Package pipeline provides orchestration for the serial LiDAR decode path.
//
// It wires the framer and decoder (L1), the revolution aggregator (L2) and
// the outlier filter (L3) to a byte source and a consumer Sink. The
// pipeline does not own domain logic; it delegates to the layer packages.
//
// This package is the composition root: it imports from l1packets,
// l2frames and l3filter, but none of those packages import pipeline/.
package pipeline
