package web

import (
	"encoding/json"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cjeanneret/TrimPilot/internal/config"
	"github.com/cjeanneret/TrimPilot/internal/logic/autopilot"
)

// maxBodyBytes bounds POST bodies.
const maxBodyBytes = 4 << 10

// Pilot is the autopilot as seen by the HTTP layer.
type Pilot interface {
	Handle(line string) error
	SetGains(a autopilot.Axis, g autopilot.Gains)
	Snapshot() autopilot.Snapshot
}

// CommandRequest is the body of POST /command.
type CommandRequest struct {
	Command string `json:"command"`
}

// GainsRequest is the body of POST /gains.
type GainsRequest struct {
	Axis string  `json:"axis"`
	Kp   float64 `json:"kp"`
	Ki   float64 `json:"ki"`
	Kd   float64 `json:"kd"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	autopilot.Snapshot
	LastTickAgo string `json:"last_tick_ago"`
	Uptime      string `json:"uptime"`
	Clients     int    `json:"clients"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Hub     *Hub
	Pilot   Pilot
	Config  interface{} // served as-is by GET /config
	Started time.Time

	staticFS fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If pilot is nil, command and gains requests return 503 Service Unavailable.
func NewHandlers(hub *Hub, pilot Pilot, cfg interface{}, staticFS fs.FS) *Handlers {
	return &Handlers{
		Hub:      hub,
		Pilot:    pilot,
		Config:   cfg,
		Started:  time.Now(),
		staticFS: staticFS,
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// HandleConfig returns the loaded configuration as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Config)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleCommand handles POST /command. The body is either JSON
// {"command": "..."} or the command as plain text.
func (h *Handlers) HandleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Pilot == nil {
		writeError(w, http.StatusServiceUnavailable, "autopilot not configured")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "request body too large")
		return
	}
	line := strings.TrimSpace(string(body))
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req CommandRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		line = strings.TrimSpace(req.Command)
	}

	if err := h.Pilot.Handle(line); err != nil {
		h.Hub.Error("Command rejected: " + err.Error())
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.Hub.Publish(Event{Kind: KindCommand, Msg: line})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "command": line})
}

// HandleGains handles POST /gains. Gains change without resetting the
// controller history.
func (h *Handlers) HandleGains(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Pilot == nil {
		writeError(w, http.StatusServiceUnavailable, "autopilot not configured")
		return
	}

	var req GainsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	axis, err := autopilot.ParseAxis(req.Axis)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := config.ValidateGains(req.Kp, req.Ki, req.Kd); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	g := autopilot.Gains{Kp: req.Kp, Ki: req.Ki, Kd: req.Kd}
	h.Pilot.SetGains(axis, g)
	h.Hub.Log(axis.String() + " gains updated")
	writeJSON(w, http.StatusOK, g)
}

// HandleStatus handles GET /status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if h.Pilot == nil {
		writeError(w, http.StatusServiceUnavailable, "autopilot not configured")
		return
	}
	snap := h.Pilot.Snapshot()
	resp := StatusResponse{
		Snapshot:    snap,
		LastTickAgo: "never",
		Uptime:      strings.TrimSuffix(humanize.Time(h.Started), " ago"),
		Clients:     h.Hub.Clients(),
	}
	if !snap.LastTick.IsZero() {
		resp.LastTickAgo = humanize.Time(snap.LastTick)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Hub.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
