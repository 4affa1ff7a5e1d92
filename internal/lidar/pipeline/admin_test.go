package pipeline

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tailscale.com/tsweb"
)

// localHostRequest creates a request that appears to come from localhost so
// tsweb's debug access check lets it through.
func localHostRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

func TestAttachAdminRoutes(t *testing.T) {
	t.Parallel()

	p := New(Options{}, nil)
	_, _ = p.Write(capture(90, 1000))

	mux := http.NewServeMux()
	p.AttachAdminRoutes(tsweb.Debugger(mux))

	t.Run("stats json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, localHostRequest(http.MethodGet, "/debug/pipeline-stats", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var got StatsSnapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, p.Stats(), got)
		assert.Equal(t, uint64(1), got.Revolutions)
	})

	t.Run("debug index", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, localHostRequest(http.MethodGet, "/debug/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.True(t, strings.Contains(body, "lidar revolutions"), "index should list the counters")
		assert.Contains(t, body, "pipeline-stats")
	})
}
