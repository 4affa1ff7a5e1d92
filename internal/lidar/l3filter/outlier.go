package l3filter

import (
	"math"

	"github.com/banshee-data/rangescan/internal/lidar/l1packets"
	"gonum.org/v1/gonum/stat"
)

// WindowHalfWidth is the number of samples taken either side of the sample
// under test. The window spans [p-WindowHalfWidth, p+WindowHalfWidth).
const WindowHalfWidth = 3

// MinFilterLength is the shortest revolution that yields any output.
const MinFilterLength = 2*WindowHalfWidth + 1

// FilteredPoint is one accepted, angle-corrected sample.
type FilteredPoint struct {
	AngleRadians float64
	DistanceMM   uint16
}

// X returns the point's horizontal offset in millimetres.
func (p FilteredPoint) X() float64 {
	return float64(p.DistanceMM) * math.Cos(p.AngleRadians)
}

// Y returns the point's vertical offset in millimetres.
func (p FilteredPoint) Y() float64 {
	return float64(p.DistanceMM) * math.Sin(p.AngleRadians)
}

// Filter keeps the readings that sit within one sample standard deviation
// of their local window mean and mirrors their angle across the vertical
// axis (θ' = π - θ).
//
// For every index p in [3, N-4] the window is distances[p-3 : p+3]: six
// samples ending just before p+3, so it is not centred on p. A sample is
// kept only when |d[p] - mean| < stdev. The comparison is strict, so a
// perfectly flat window (stdev 0) rejects its sample.
//
// Order is preserved. Revolutions shorter than MinFilterLength produce no
// points.
func Filter(readings []l1packets.Reading) []FilteredPoint {
	n := len(readings)
	if n < MinFilterLength {
		return nil
	}

	dist := make([]float64, n)
	for i, r := range readings {
		dist[i] = float64(r.DistanceMM)
	}

	out := make([]FilteredPoint, 0, n-2*WindowHalfWidth)
	for p := WindowHalfWidth; p <= n-WindowHalfWidth-1; p++ {
		mean, std := stat.MeanStdDev(dist[p-WindowHalfWidth:p+WindowHalfWidth], nil)
		if math.Abs(dist[p]-mean) >= std {
			continue
		}
		out = append(out, FilteredPoint{
			AngleRadians: MirrorAngle(readings[p].AngleRadians),
			DistanceMM:   readings[p].DistanceMM,
		})
	}
	return out
}

// MirrorAngle reflects an angle across the vertical axis: 0° and 180° swap
// while 90° and 270° stay put.
func MirrorAngle(theta float64) float64 {
	return math.Pi - theta
}
