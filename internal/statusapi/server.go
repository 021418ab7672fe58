package statusapi

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Handler builds the status HTTP mux: a polled JSON snapshot at
// GET /api/status (grounded on internal/web/server.go's
// mux.HandleFunc + json.MarshalIndent pattern) and a websocket stream
// at GET /api/stream that pushes a fresh snapshot to every connected
// client whenever PushUpdate is called.
func Handler(status *Status, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	mux := http.NewServeMux()
	hub := newHub(logger)

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		snap := status.Snapshot(time.Now().UTC())
		b, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			http.Error(w, "marshal failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
		_, _ = w.Write([]byte("\n"))
	})

	mux.HandleFunc("/api/stream", hub.serveWS)

	status.hub = hub
	return mux
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// hub fans a pushed snapshot out to every connected websocket client.
// Modeled on the teacher's attitude_broadcaster.go fan-out shape, but
// over a websocket connection instead of an in-process channel list,
// since a live status feed needs to reach a browser.
type hub struct {
	logger *log.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

func newHub(logger *log.Logger) *hub {
	return &hub{logger: logger, clients: make(map[*websocket.Conn]chan []byte)}
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("statusapi: websocket upgrade failed: %v", err)
		return
	}

	ch := make(chan []byte, 4)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		_ = conn.Close()
	}()

	for b := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}

func (h *hub) broadcast(b []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- b:
		default:
			h.logger.Printf("statusapi: slow websocket client %s, dropping update", conn.RemoteAddr())
		}
	}
}

// PushUpdate marshals the current snapshot and pushes it to every
// connected websocket client. It is a no-op if Handler has not been
// called for this Status yet.
func (s *Status) PushUpdate() {
	if s.hub == nil {
		return
	}
	b, err := json.Marshal(s.Snapshot(time.Now().UTC()))
	if err != nil {
		return
	}
	s.hub.broadcast(b)
}
