package handlers

import (
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"youtv/utils"
)

// StreamTracker records the proxy relays that are currently open.
type StreamTracker struct {
	mu      sync.RWMutex
	streams map[string]*trackedStream
}

// TrackedStream is a point-in-time copy of one active relay. The client
// fields stay server-side; /api/streams is public.
type TrackedStream struct {
	ID            string    `json:"id"`
	Target        string    `json:"target"`
	ClientIP      string    `json:"-"`
	UserAgent     string    `json:"-"`
	RangeHeader   string    `json:"range,omitempty"`
	StartTime     time.Time `json:"startTime"`
	LastActivity  time.Time `json:"lastActivity"`
	ContentLength int64     `json:"contentLength"`
	BytesStreamed int64     `json:"bytesStreamed"`
}

type trackedStream struct {
	info     TrackedStream
	bytes    atomic.Int64
	activity atomic.Int64
}

func NewStreamTracker() *StreamTracker {
	return &StreamTracker{streams: make(map[string]*trackedStream)}
}

// Start registers a relay for r and returns its id. Bytes written through
// the returned writer are counted against it.
func (t *StreamTracker) Start(w http.ResponseWriter, r *http.Request, target string, contentLength int64) (string, *trackingWriter) {
	now := time.Now()
	s := &trackedStream{info: TrackedStream{
		ID:            uuid.NewString(),
		Target:        target,
		ClientIP:      utils.ClientIP(r),
		UserAgent:     r.UserAgent(),
		RangeHeader:   r.Header.Get("Range"),
		StartTime:     now,
		ContentLength: contentLength,
	}}
	s.activity.Store(now.UnixNano())

	t.mu.Lock()
	t.streams[s.info.ID] = s
	t.mu.Unlock()

	return s.info.ID, &trackingWriter{ResponseWriter: w, stream: s}
}

// End forgets a relay. Unknown ids are ignored.
func (t *StreamTracker) End(id string) {
	t.mu.Lock()
	delete(t.streams, id)
	t.mu.Unlock()
}

// Active returns every open relay, oldest first.
func (t *StreamTracker) Active() []TrackedStream {
	t.mu.RLock()
	out := make([]TrackedStream, 0, len(t.streams))
	for _, s := range t.streams {
		info := s.info
		info.BytesStreamed = s.bytes.Load()
		info.LastActivity = time.Unix(0, s.activity.Load())
		out = append(out, info)
	}
	t.mu.RUnlock()

	slices.SortFunc(out, func(a, b TrackedStream) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return out
}

func (t *StreamTracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.streams)
}

// List serves /api/streams.
func (t *StreamTracker) List(w http.ResponseWriter, r *http.Request) {
	streams := t.Active()
	writeJSON(w, http.StatusOK, map[string]any{
		"code":    200,
		"streams": streams,
		"count":   len(streams),
	})
}

// trackingWriter counts relayed bytes and flushes after every write so
// players see segments as they arrive.
type trackingWriter struct {
	http.ResponseWriter
	stream *trackedStream
}

func (tw *trackingWriter) Write(b []byte) (int, error) {
	n, err := tw.ResponseWriter.Write(b)
	if n > 0 {
		tw.stream.bytes.Add(int64(n))
		tw.stream.activity.Store(time.Now().UnixNano())
	}
	if f, ok := tw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
	return n, err
}
