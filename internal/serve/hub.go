package serve

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitepipe/internal/metrics"
)

// Event is pushed to browsers after a task changed output files. When CSS is
// set every changed file was a stylesheet and clients swap stylesheets
// instead of reloading the page.
type Event struct {
	Hash string `json:"hash"`
	CSS  bool   `json:"css,omitempty"`
}

// Hub manages SSE clients and broadcasts reload events to them.
type Hub struct {
	mu        sync.RWMutex
	nextID    int
	clients   map[int]*hubClient
	recorder  metrics.Recorder
	closed    bool
	last      Event
	heartbeat time.Duration
}

type hubClient struct {
	id   int
	ch   chan Event
	done chan struct{}
}

// NewHub returns a hub reporting to rec (nil means no metrics).
func NewHub(rec metrics.Recorder) *Hub {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Hub{clients: map[int]*hubClient{}, recorder: rec, heartbeat: 30 * time.Second}
}

// ServeHTTP implements the SSE endpoint at /livereload.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := &hubClient{ch: make(chan Event, 8), done: make(chan struct{})}
	h.mu.Lock()
	client.id = h.nextID
	h.nextID++
	h.clients[client.id] = client
	current := h.last
	n := len(h.clients)
	h.mu.Unlock()
	h.recorder.SetLiveReloadClients(n)
	defer h.removeClient(client.id)

	// The first event is the client's baseline; it never triggers a reload.
	bw := bufio.NewWriter(w)
	if err := writeEvent(bw, current); err != nil {
		slog.Debug("livereload write", "error", err)
		return
	}
	_ = bw.Flush()
	flusher.Flush()

	hb := time.NewTicker(h.heartbeat)
	defer hb.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.done:
			return
		case <-hb.C:
			if _, err := bw.WriteString(": ping\n\n"); err != nil {
				slog.Debug("livereload ping write", "error", err)
				return
			}
			_ = bw.Flush()
			flusher.Flush()
		case ev := <-client.ch:
			if err := writeEvent(bw, ev); err != nil {
				slog.Debug("livereload broadcast write", "error", err)
				return
			}
			_ = bw.Flush()
			flusher.Flush()
		}
	}
}

func writeEvent(bw *bufio.Writer, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = bw.WriteString("data: " + string(data) + "\n\n")
	return err
}

func (h *Hub) removeClient(id int) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(c.done)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.recorder.SetLiveReloadClients(n)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends ev to all clients. Repeated hashes are ignored and clients
// whose buffers are full are dropped.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	if h.closed || ev.Hash == "" || ev.Hash == h.last.Hash {
		h.mu.Unlock()
		return
	}
	h.last = ev
	snapshot := make([]*hubClient, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- ev:
		case <-c.done:
		default:
			dropped++
			h.removeClient(c.id)
		}
	}
	kind := "page"
	if ev.CSS {
		kind = "css"
	}
	h.recorder.IncReloadBroadcast(kind)
	slog.Debug("livereload broadcast", "hash", ev.Hash, "css", ev.CSS, "clients", len(snapshot), "dropped", dropped)
}

// Notify broadcasts a reload for the changed output paths.
func (h *Hub) Notify(paths []string) {
	if len(paths) == 0 {
		return
	}
	css := true
	for _, p := range paths {
		if !strings.EqualFold(path.Ext(p), ".css") {
			css = false
			break
		}
	}
	h.Broadcast(Event{Hash: strconv.FormatInt(time.Now().UnixNano(), 36), CSS: css})
}

// Shutdown closes all clients and prevents future broadcasts.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*hubClient{}
	h.mu.Unlock()
	for _, c := range clients {
		close(c.done)
	}
	h.recorder.SetLiveReloadClients(0)
}
