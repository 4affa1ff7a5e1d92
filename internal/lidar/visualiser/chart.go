package visualiser

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"tailscale.com/tsweb"

	"github.com/banshee-data/rangescan/internal/lidar/l1packets"
	"github.com/banshee-data/rangescan/internal/lidar/l2frames"
	"github.com/banshee-data/rangescan/internal/lidar/l3filter"
)

// ChartSink holds the most recent filtered revolution and renders it as an
// HTML scatter chart. It is safe to render from HTTP handlers while the
// pipeline goroutine delivers new revolutions.
type ChartSink struct {
	// MaxDistanceMM bounds both axes. Zero uses l2frames.DefaultMaxDistanceMM.
	MaxDistanceMM float64

	mu       sync.Mutex
	rev      l2frames.Revolution
	points   []l3filter.FilteredPoint
	received time.Time
	count    int64
}

// NewChartSink creates a ChartSink with axes bounded at maxDistanceMM.
func NewChartSink(maxDistanceMM float64) *ChartSink {
	return &ChartSink{MaxDistanceMM: maxDistanceMM}
}

// HandleReading implements pipeline.Sink. Individual readings are not charted.
func (c *ChartSink) HandleReading(l1packets.Reading) {}

// HandleRevolution implements pipeline.Sink.
func (c *ChartSink) HandleRevolution(rev l2frames.Revolution, pts []l3filter.FilteredPoint) {
	cp := make([]l3filter.FilteredPoint, len(pts))
	copy(cp, pts)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rev = rev
	c.points = cp
	c.received = time.Now()
	c.count++
}

// Revolutions returns how many revolutions the sink has received.
func (c *ChartSink) Revolutions() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *ChartSink) bound() float64 {
	if c.MaxDistanceMM > 0 {
		return c.MaxDistanceMM
	}
	return l2frames.DefaultMaxDistanceMM
}

// Render writes the chart page for the latest revolution to w. Before the
// first revolution arrives the chart is rendered empty.
func (c *ChartSink) Render(w io.Writer) error {
	c.mu.Lock()
	rev := c.rev
	pts := c.points
	count := c.count
	received := c.received
	c.mu.Unlock()

	data := make([]opts.ScatterData, 0, len(pts))
	for _, p := range pts {
		data = append(data, opts.ScatterData{Value: []interface{}{p.X(), p.Y(), p.DistanceMM}})
	}

	subtitle := "waiting for first revolution"
	if count > 0 {
		subtitle = fmt.Sprintf("sensor=%s rev=%d points=%d/%d speed=%.1f RPM at %s",
			rev.SensorID, rev.Sequence, len(pts), len(rev.Readings), rev.MeanSpeedRPM(), received.Format(time.TimeOnly))
	}

	pad := c.bound()
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Range Scan", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Latest Revolution", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (mm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (mm)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("filtered", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	return scatter.Render(w)
}

// ServeHTTP renders the chart page.
func (c *ChartSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		http.Error(w, fmt.Sprintf("failed to render chart: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// AttachAdminRoutes serves the chart at /debug/scan.
func (c *ChartSink) AttachAdminRoutes(debug *tsweb.DebugHandler) {
	debug.Handle("scan", "latest filtered revolution (XY scatter)", http.HandlerFunc(c.ServeHTTP))
}
