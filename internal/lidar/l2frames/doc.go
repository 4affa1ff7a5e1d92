// Package l2frames owns Layer 2 (Frames) of the LiDAR data model.
//
// Responsibilities: accumulating decoded readings into complete revolutions.
// Key types: Revolution, Aggregator.
//
// Dependency rule: L2 may depend on L1, but never on L3+.
package l2frames
