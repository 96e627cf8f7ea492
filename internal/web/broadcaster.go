package web

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Event kinds.
const (
	KindLog     = "log"
	KindStatus  = "status"
	KindCommand = "command"
	KindError   = "error"
)

// Event is one SSE message.
type Event struct {
	Time  string   `json:"t"`
	Kind  string   `json:"k"`
	Msg   string   `json:"msg,omitempty"`
	Lines []string `json:"lines,omitempty"`
}

// Hub fans events out to SSE clients. The last status event is replayed
// to new subscribers so a fresh page shows the autopilot state at once.
type Hub struct {
	mu         sync.RWMutex
	clients    map[chan string]struct{}
	lastStatus string
	now        func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[chan string]struct{}),
		now:     time.Now,
	}
}

// Subscribe returns a channel that receives events and a cleanup function.
// The caller must call the returned cleanup when done (e.g. on client disconnect).
func (h *Hub) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	if h.lastStatus != "" {
		ch <- h.lastStatus
	}
	h.mu.Unlock()

	unsub := func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
		close(ch)
	}
	return ch, unsub
}

// Publish sends evt to every client. Slow clients miss events rather
// than block the control loop.
func (h *Hub) Publish(evt Event) {
	if evt.Time == "" {
		evt.Time = h.now().Format(time.RFC3339)
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	payload := string(data)

	h.mu.Lock()
	defer h.mu.Unlock()
	if evt.Kind == KindStatus {
		h.lastStatus = payload
	}
	for ch := range h.clients {
		select {
		case ch <- payload:
		default:
		}
	}
}

// Status publishes the status lines of one tick.
func (h *Hub) Status(lines []string) {
	h.Publish(Event{Kind: KindStatus, Lines: append([]string(nil), lines...)})
}

func (h *Hub) Log(msg string) {
	h.Publish(Event{Kind: KindLog, Msg: msg})
}

func (h *Hub) Error(msg string) {
	h.Publish(Event{Kind: KindError, Msg: msg})
}

// Clients returns the number of subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// LogWriter returns an io.Writer that publishes each write as a log event,
// for use with debug.SetOutput.
func LogWriter(h *Hub) *logWriter {
	return &logWriter{h: h}
}

type logWriter struct {
	h *Hub
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(string(p), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			w.h.Log(line)
		}
	}
	return len(p), nil
}
