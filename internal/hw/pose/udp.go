package pose

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/cjeanneret/TrimPilot/internal/debug"
	"github.com/cjeanneret/TrimPilot/internal/logic/attitude"
)

const maxDatagram = 2048

// Datagram is the JSON wire form of a pose sample.
type Datagram struct {
	Forward [3]float64 `json:"forward"`
	Up      [3]float64 `json:"up"`
	Gravity [3]float64 `json:"gravity"`
}

// Sample converts the datagram.
func (d Datagram) Sample() Sample {
	vec := func(a [3]float64) r3.Vector { return r3.Vector{X: a[0], Y: a[1], Z: a[2]} }
	return Sample{
		Frame:   attitude.Frame{Forward: vec(d.Forward), Up: vec(d.Up)},
		Gravity: vec(d.Gravity),
	}
}

// UDPConfig configures a UDP pose listener.
type UDPConfig struct {
	Name       string
	Listen     string // e.g. ":49010"
	Main       bool
	StaleAfter time.Duration
}

// UDPSource receives pose datagrams from a simulator or an attitude
// estimator. It counts as under control while samples are fresh.
type UDPSource struct {
	cfg UDPConfig
	now func() time.Time

	started atomic.Bool

	mu       sync.RWMutex
	conn     net.PacketConn
	last     Sample
	lastSeen time.Time
	count    uint64
	lastErr  string

	cancel context.CancelFunc
	done   chan struct{}
}

// UDPSnapshot reports the listener state.
type UDPSnapshot struct {
	Name     string    `json:"name"`
	Addr     string    `json:"addr"`
	Samples  uint64    `json:"samples"`
	LastSeen time.Time `json:"last_seen"`
	LastErr  string    `json:"last_error,omitempty"`
}

func NewUDPSource(cfg UDPConfig) (*UDPSource, error) {
	if cfg.Name == "" {
		return nil, errors.New("udp cockpit name is required")
	}
	if cfg.Listen == "" {
		return nil, errors.Errorf("udp cockpit %s: listen address is required", cfg.Name)
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = time.Second
	}
	return &UDPSource{cfg: cfg, now: time.Now, done: make(chan struct{})}, nil
}

// Start binds the socket and reads datagrams until ctx is cancelled or
// Close is called.
func (u *UDPSource) Start(ctx context.Context) error {
	if u.started.Swap(true) {
		return errors.Errorf("udp cockpit %s already started", u.cfg.Name)
	}
	conn, err := net.ListenPacket("udp", u.cfg.Listen)
	if err != nil {
		close(u.done)
		return errors.Wrapf(err, "udp cockpit %s", u.cfg.Name)
	}
	u.mu.Lock()
	u.conn = conn
	u.mu.Unlock()
	debug.Info("Cockpit %s listening on %s", u.cfg.Name, conn.LocalAddr())

	runCtx, cancel := context.WithCancel(ctx)
	u.cancel = cancel
	go func() {
		<-runCtx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer close(u.done)
		u.readLoop(conn)
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (u *UDPSource) Addr() net.Addr {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.conn == nil {
		return nil
	}
	return u.conn.LocalAddr()
}

func (u *UDPSource) readLoop(conn net.PacketConn) {
	buf := make([]byte, maxDatagram)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				debug.Error(errors.Wrapf(err, "udp cockpit %s", u.cfg.Name))
			}
			return
		}
		if err := u.Ingest(buf[:n]); err != nil {
			debug.Verbose("Cockpit %s: dropped datagram: %v", u.cfg.Name, err)
		}
	}
}

// Ingest decodes one datagram and stores it as the latest sample.
func (u *UDPSource) Ingest(raw []byte) error {
	var d Datagram
	if err := json.Unmarshal(raw, &d); err != nil {
		u.setErr(err)
		return errors.Wrap(err, "decode pose")
	}
	s := d.Sample()
	if err := s.Validate(); err != nil {
		u.setErr(err)
		return err
	}
	u.mu.Lock()
	u.last = s
	u.lastSeen = u.now()
	u.count++
	u.lastErr = ""
	u.mu.Unlock()
	return nil
}

func (u *UDPSource) setErr(err error) {
	u.mu.Lock()
	u.lastErr = err.Error()
	u.mu.Unlock()
}

// Close stops the listener and waits for the reader to exit.
func (u *UDPSource) Close() {
	if !u.started.Load() {
		return
	}
	if u.cancel != nil {
		u.cancel()
	}
	<-u.done
}

func (u *UDPSource) Name() string { return u.cfg.Name }
func (u *UDPSource) IsMain() bool { return u.cfg.Main }

func (u *UDPSource) IsUnderControl() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return !u.lastSeen.IsZero() && u.now().Sub(u.lastSeen) <= u.cfg.StaleAfter
}

// Sample returns the latest pose. Stale samples are still returned; the
// caller decides via IsUnderControl whether to trust them.
func (u *UDPSource) Sample() (Sample, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.lastSeen.IsZero() {
		return Sample{}, errors.Wrapf(ErrNoSample, "cockpit %s", u.cfg.Name)
	}
	return u.last, nil
}

func (u *UDPSource) Snapshot() UDPSnapshot {
	u.mu.RLock()
	defer u.mu.RUnlock()
	snap := UDPSnapshot{
		Name:     u.cfg.Name,
		Addr:     u.cfg.Listen,
		Samples:  u.count,
		LastSeen: u.lastSeen,
		LastErr:  u.lastErr,
	}
	if u.conn != nil {
		snap.Addr = u.conn.LocalAddr().String()
	}
	return snap
}
