package visualiser

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/rangescan/internal/lidar/l1packets"
	"github.com/banshee-data/rangescan/internal/lidar/l2frames"
	"github.com/banshee-data/rangescan/internal/lidar/l3filter"
	"github.com/banshee-data/rangescan/internal/monitoring"
)

// PlotSink writes a PNG scatter of every filtered revolution into a
// directory, named rev_<sequence>.png.
type PlotSink struct {
	outputDir     string
	maxDistanceMM float64

	mu      sync.Mutex
	written int
	lastErr error
}

// NewPlotSink creates outputDir if needed and returns a sink writing into
// it. A zero maxDistanceMM uses l2frames.DefaultMaxDistanceMM.
func NewPlotSink(outputDir string, maxDistanceMM float64) (*PlotSink, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create plot directory: %w", err)
	}
	if maxDistanceMM <= 0 {
		maxDistanceMM = l2frames.DefaultMaxDistanceMM
	}
	return &PlotSink{outputDir: outputDir, maxDistanceMM: maxDistanceMM}, nil
}

// HandleReading implements pipeline.Sink.
func (ps *PlotSink) HandleReading(l1packets.Reading) {}

// HandleRevolution implements pipeline.Sink. Failures are logged and kept
// for Err; they never stop the pipeline.
func (ps *PlotSink) HandleRevolution(rev l2frames.Revolution, pts []l3filter.FilteredPoint) {
	_, err := ps.WritePlot(rev, pts)

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if err != nil {
		ps.lastErr = err
		monitoring.Logf("visualiser: revolution %d: %v", rev.Sequence, err)
		return
	}
	ps.written++
}

// WritePlot renders one revolution and returns the file it wrote.
func (ps *PlotSink) WritePlot(rev l2frames.Revolution, pts []l3filter.FilteredPoint) (string, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Revolution %d (%d/%d points)", rev.Sequence, len(pts), len(rev.Readings))
	p.X.Label.Text = "X (mm)"
	p.Y.Label.Text = "Y (mm)"
	p.X.Min, p.X.Max = -ps.maxDistanceMM, ps.maxDistanceMM
	p.Y.Min, p.Y.Max = -ps.maxDistanceMM, ps.maxDistanceMM
	p.Add(plotter.NewGrid())

	if len(pts) > 0 {
		xys := make(plotter.XYs, len(pts))
		for i, pt := range pts {
			xys[i] = plotter.XY{X: pt.X(), Y: pt.Y()}
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return "", fmt.Errorf("failed to create scatter: %w", err)
		}
		sc.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
		sc.GlyphStyle.Radius = vg.Points(1.5)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
	}

	file := filepath.Join(ps.outputDir, fmt.Sprintf("rev_%06d.png", rev.Sequence))
	if err := p.Save(6*vg.Inch, 6*vg.Inch, file); err != nil {
		return "", fmt.Errorf("failed to save plot: %w", err)
	}
	return file, nil
}

// Written returns how many plots have been saved.
func (ps *PlotSink) Written() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.written
}

// Err returns the most recent write failure, if any.
func (ps *PlotSink) Err() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.lastErr
}
