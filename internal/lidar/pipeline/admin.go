package pipeline

import (
	"encoding/json"
	"net/http"

	"tailscale.com/tsweb"
)

// AttachAdminRoutes publishes the pipeline counters on the debug index and
// as JSON at /debug/pipeline-stats.
func (p *Pipeline) AttachAdminRoutes(debug *tsweb.DebugHandler) {
	debug.KVFunc("lidar packets", func() any { return p.stats.Packets.Load() })
	debug.KVFunc("lidar revolutions", func() any { return p.stats.Revolutions.Load() })
	debug.KVFunc("lidar checksum failures", func() any { return p.stats.ChecksumFailures.Load() })
	debug.KVFunc("lidar bytes discarded", func() any { return p.stats.BytesDiscarded.Load() })

	debug.Handle("pipeline-stats", "decoder and aggregator counters (JSON)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(p.Stats()); err != nil {
			http.Error(w, "Failed to encode stats", http.StatusInternalServerError)
		}
	}))
}
