// Package l3filter owns Layer 3 (Filtering) of the LiDAR data model.
//
// Responsibilities: removing statistical outliers from one revolution and
// correcting the sensor's mirrored angle convention before the points reach
// a consumer. The filter is stateless across revolutions.
//
// Dependency rule: L3 may depend on L1 and L2.
package l3filter
