package pipeline

import (
	crand "crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/rangescan/internal/lidar/l1packets"
	"github.com/banshee-data/rangescan/internal/lidar/l2frames"
	"github.com/banshee-data/rangescan/internal/lidar/l3filter"
)

// subscriberBuffer is how many summaries a slow subscriber may fall behind
// before new ones are dropped for it.
const subscriberBuffer = 8

// RevolutionSummary is the JSON line published for every revolution.
type RevolutionSummary struct {
	ID               string    `json:"id"`
	SensorID         string    `json:"sensor_id"`
	Sequence         int64     `json:"sequence"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	Readings         int       `json:"readings"`
	Filtered         int       `json:"filtered"`
	ChecksumFailures int       `json:"checksum_failures"`
	MeanSpeedRPM     float64   `json:"mean_speed_rpm"`
}

// Summarise builds the published summary of rev.
func Summarise(rev l2frames.Revolution, pts []l3filter.FilteredPoint) RevolutionSummary {
	return RevolutionSummary{
		ID:               rev.ID,
		SensorID:         rev.SensorID,
		Sequence:         rev.Sequence,
		Start:            rev.StartWallTime,
		End:              rev.EndWallTime,
		Readings:         len(rev.Readings),
		Filtered:         len(pts),
		ChecksumFailures: rev.ChecksumFailures(),
		MeanSpeedRPM:     rev.MeanSpeedRPM(),
	}
}

// Broadcaster is a Sink that fans revolution summaries out to any number of
// subscribers, such as the /debug/tail event stream. Delivery never blocks
// the pipeline: a subscriber whose buffer is full misses that revolution.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]chan string
	closing     bool
	dropped     uint64
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[string]chan string)}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	_, _ = crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe registers a new subscriber. The returned ID is used to
// Unsubscribe. After Close the channel is returned already closed.
func (b *Broadcaster) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closing {
		close(ch)
		return id, ch
	}
	b.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Close closes every subscriber channel. Later revolutions are ignored.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closing = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Dropped returns how many deliveries were skipped for full subscribers.
func (b *Broadcaster) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// HandleReading implements Sink.
func (b *Broadcaster) HandleReading(l1packets.Reading) {}

// HandleRevolution implements Sink.
func (b *Broadcaster) HandleRevolution(rev l2frames.Revolution, pts []l3filter.FilteredPoint) {
	line, err := json.Marshal(Summarise(rev, pts))
	if err != nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closing {
		return
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- string(line):
		default:
			b.dropped++
		}
	}
}

// AttachAdminRoutes serves revolution summaries as server-sent events at
// /debug/tail.
func (b *Broadcaster) AttachAdminRoutes(debug *tsweb.DebugHandler) {
	debug.HandleSilent("tail", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

		id, c := b.Subscribe()
		defer b.Unsubscribe(id)

		// Send initial ping to establish connection
		_, _ = w.Write([]byte(": ping\n\n"))
		flusher.Flush()

		for {
			select {
			case payload, ok := <-c:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	}))
}
