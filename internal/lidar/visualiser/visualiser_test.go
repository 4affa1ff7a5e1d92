package visualiser

import (
	"bytes"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tailscale.com/tsweb"

	"github.com/banshee-data/rangescan/internal/lidar/l1packets"
	"github.com/banshee-data/rangescan/internal/lidar/l2frames"
	"github.com/banshee-data/rangescan/internal/lidar/l3filter"
)

func testRevolution(seq int64) (l2frames.Revolution, []l3filter.FilteredPoint) {
	rev := l2frames.Revolution{ID: "rev-test", SensorID: "bench", Sequence: seq}
	var pts []l3filter.FilteredPoint
	for deg := 0; deg < 360; deg++ {
		a := float64(deg) * math.Pi / 180
		rev.Readings = append(rev.Readings, l1packets.Reading{AngleRadians: a, DistanceMM: 1200, SpeedRPM: 300, ChecksumValid: true})
		if deg%3 == 0 {
			pts = append(pts, l3filter.FilteredPoint{AngleRadians: l3filter.MirrorAngle(a), DistanceMM: 1200})
		}
	}
	return rev, pts
}

func TestChartSink_EmptyRender(t *testing.T) {
	t.Parallel()

	c := NewChartSink(0)
	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf))
	assert.Contains(t, buf.String(), "waiting for first revolution")
	assert.Equal(t, int64(0), c.Revolutions())
}

func TestChartSink_ServeLatest(t *testing.T) {
	t.Parallel()

	c := NewChartSink(3000)
	rev, pts := testRevolution(1)
	c.HandleRevolution(rev, pts)
	rev2, pts2 := testRevolution(2)
	c.HandleRevolution(rev2, pts2[:10])

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/scan", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<title>Range Scan</title>")
	assert.Contains(t, body, "rev=2 points=10/360")
	assert.Equal(t, int64(2), c.Revolutions())
}

func TestChartSink_CopiesPoints(t *testing.T) {
	t.Parallel()

	c := NewChartSink(0)
	rev, pts := testRevolution(1)
	c.HandleRevolution(rev, pts)
	pts[0].DistanceMM = 9999

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, uint16(1200), c.points[0].DistanceMM)
}

func TestChartSink_ConcurrentRender(t *testing.T) {
	t.Parallel()

	c := NewChartSink(0)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := int64(1); i <= 20; i++ {
			rev, pts := testRevolution(i)
			c.HandleRevolution(rev, pts)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			var buf bytes.Buffer
			assert.NoError(t, c.Render(&buf))
		}
	}()
	wg.Wait()
	assert.Equal(t, int64(20), c.Revolutions())
}

func TestPlotSink_WritesPNG(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "plots")
	ps, err := NewPlotSink(dir, 0)
	require.NoError(t, err)

	rev, pts := testRevolution(7)
	ps.HandleRevolution(rev, pts)
	require.NoError(t, ps.Err())
	assert.Equal(t, 1, ps.Written())

	data, err := os.ReadFile(filepath.Join(dir, "rev_000007.png"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "expected a PNG header")
}

func TestPlotSink_EmptyRevolution(t *testing.T) {
	t.Parallel()

	ps, err := NewPlotSink(t.TempDir(), 3000)
	require.NoError(t, err)

	file, err := ps.WritePlot(l2frames.Revolution{Sequence: 1}, nil)
	require.NoError(t, err)
	assert.FileExists(t, file)
}

func TestPlotSink_WriteFailureIsKept(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ps, err := NewPlotSink(dir, 0)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	rev, pts := testRevolution(1)
	ps.HandleRevolution(rev, pts)
	assert.Error(t, ps.Err())
	assert.Equal(t, 0, ps.Written())
}

func TestChartSink_AdminRoute(t *testing.T) {
	t.Parallel()

	c := NewChartSink(0)
	mux := http.NewServeMux()
	c.AttachAdminRoutes(tsweb.Debugger(mux))

	req := httptest.NewRequest(http.MethodGet, "/debug/scan", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Range Scan</title>")
}
