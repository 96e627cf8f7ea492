// Package autopilot runs the attitude-hold control loop: it reads the pose
// of the primary cockpit, compares it with the held setpoints and trims the
// control surfaces of each axis.
package autopilot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/cjeanneret/TrimPilot/internal/debug"
	"github.com/cjeanneret/TrimPilot/internal/hw/pose"
	"github.com/cjeanneret/TrimPilot/internal/hw/surface"
	"github.com/cjeanneret/TrimPilot/internal/logic/attitude"
	"github.com/cjeanneret/TrimPilot/internal/logic/command"
	"github.com/cjeanneret/TrimPilot/internal/metrics"
)

// DefaultTickPeriod is the control period: ten frames at 60 Hz.
const DefaultTickPeriod = 10 * time.Second / 60

// DefaultTimeStep is DefaultTickPeriod in seconds, without the nanosecond
// rounding.
const DefaultTimeStep = 10.0 / 60.0

// DefaultGroups are the device group names per axis.
var DefaultGroups = [NumAxes]string{"Elevators", "Ailerons", "Rudders"}

// DefaultGains apply to every axis unless configured otherwise.
var DefaultGains = Gains{Kp: 5}

// Discovery finds the devices of a named group.
type Discovery interface {
	FindDevicesWithCapability(group, capability string) ([]*surface.Device, error)
}

// Config configures an Autopilot.
type Config struct {
	TickPeriod time.Duration
	// TimeStep is the fixed PID time step in seconds. It defaults to
	// TickPeriod, which a Duration can only hold to the nanosecond.
	TimeStep float64
	// VariableTimestep feeds the measured tick interval to the PIDs
	// instead of TickPeriod.
	VariableTimestep bool
	Gains            [NumAxes]Gains
	Groups           [NumAxes]string
	TrimLimit        float64
	StartEnabled     bool
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		TickPeriod: DefaultTickPeriod,
		TimeStep:   DefaultTimeStep,
		Gains:      [NumAxes]Gains{DefaultGains, DefaultGains, DefaultGains},
		Groups:     DefaultGroups,
		TrimLimit:  surface.TrimLimit,
	}
}

// Autopilot owns the control state. Commands and ticks are serialised by
// one mutex, so a tick always sees a consistent set of setpoints.
type Autopilot struct {
	mu sync.Mutex

	cfg       Config
	loop      *Loop
	mapper    surface.Mapper
	cockpits  []pose.Cockpit
	discovery Discovery
	metrics   *metrics.Metrics
	now       func() time.Time

	setpoints   [NumAxes]Setpoint
	enabled     bool
	initialized bool

	primary pose.Cockpit
	devices [NumAxes][]*surface.Device

	status     []string
	attitude   attitude.Attitude
	commands   [NumAxes]float64
	ticks      uint64
	lastTick   time.Time
	properties []string

	onStatus func([]string)
}

// New creates an autopilot. m may be nil.
func New(cfg Config, cockpits []pose.Cockpit, discovery Discovery, m *metrics.Metrics) *Autopilot {
	def := DefaultConfig()
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = def.TickPeriod
	}
	if cfg.TimeStep <= 0 {
		if cfg.TickPeriod == DefaultTickPeriod {
			cfg.TimeStep = DefaultTimeStep
		} else {
			cfg.TimeStep = cfg.TickPeriod.Seconds()
		}
	}
	for _, a := range Axes {
		if cfg.Groups[a] == "" {
			cfg.Groups[a] = def.Groups[a]
		}
	}
	if cfg.TrimLimit <= 0 {
		cfg.TrimLimit = def.TrimLimit
	}

	ap := &Autopilot{
		cfg:       cfg,
		loop:      NewLoop(cfg.Gains, cfg.TimeStep),
		mapper:    surface.Mapper{Limit: cfg.TrimLimit},
		cockpits:  cockpits,
		discovery: discovery,
		metrics:   m,
		now:       time.Now,
		enabled:   cfg.StartEnabled,
	}
	m.SetEnabled(ap.enabled)
	return ap
}

// OnStatus registers fn to receive the status lines of every tick.
func (ap *Autopilot) OnStatus(fn func(lines []string)) {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	ap.onStatus = fn
}

// setup discovers the cockpit and devices once, and again after refresh.
func (ap *Autopilot) setup() {
	if ap.initialized {
		return
	}
	ap.initialized = true
	ap.discover()
}

func (ap *Autopilot) discover() {
	ap.primary = pose.SelectPrimary(ap.cockpits)
	if ap.primary == nil {
		debug.Info("Discovery: no cockpit")
		return
	}
	debug.Info("Discovery: primary cockpit %s", ap.primary.Name())

	ap.devices = [NumAxes][]*surface.Device{}
	if ap.discovery == nil {
		return
	}
	// A missing group stops discovery; later groups stay empty.
	for _, a := range Axes {
		devs, err := ap.discovery.FindDevicesWithCapability(ap.cfg.Groups[a], surface.CapabilityTrim)
		if err != nil {
			debug.Info("Discovery: %v", err)
			return
		}
		ap.devices[a] = devs
		debug.Info("Discovery: %d device(s) in %s", len(devs), ap.cfg.Groups[a])
	}
}

// Tick runs one control step. elapsed is the time since the previous
// tick and is only used when VariableTimestep is set. It returns the
// status lines.
func (ap *Autopilot) Tick(elapsed time.Duration) []string {
	ap.mu.Lock()
	lines := ap.tick(elapsed)
	ap.status = lines
	fn := ap.onStatus
	ap.mu.Unlock()

	for _, l := range lines {
		debug.Axis(l)
	}
	if fn != nil {
		fn(lines)
	}
	return lines
}

func (ap *Autopilot) tick(elapsed time.Duration) []string {
	ap.setup()

	if ap.primary == nil {
		ap.metrics.Skip(metrics.ReasonNoCockpit)
		return []string{"Error: Could not find a cockpit!"}
	}
	for _, a := range Axes {
		if len(ap.devices[a]) == 0 {
			ap.metrics.Skip(metrics.ReasonNoDevices)
			return []string{fmt.Sprintf("Error: Could not find any %s!", strings.ToLower(ap.cfg.Groups[a]))}
		}
	}
	if !ap.enabled {
		ap.metrics.Skip(metrics.ReasonDisabled)
		return []string{"Status: Disabled"}
	}
	lines := []string{"Status: Enabled"}

	if !ap.primary.IsUnderControl() {
		ap.metrics.Skip(metrics.ReasonNoPose)
		return append(lines, fmt.Sprintf("Error: Cockpit %s is not under control!", ap.primary.Name()))
	}
	sample, err := ap.primary.Sample()
	if err != nil {
		ap.metrics.Skip(metrics.ReasonNoPose)
		return append(lines, fmt.Sprintf("Error: %v", err))
	}
	if !attitude.HasReference(sample.Gravity) {
		ap.metrics.Skip(metrics.ReasonNoGravity)
		return append(lines, "Error: No gravity reference!")
	}

	att := attitude.Read(sample.Frame, sample.Gravity)
	debug.Live("Pose %s: fwd=%v up=%v g=%v", ap.primary.Name(), sample.Frame.Forward, sample.Frame.Up, sample.Gravity)
	var cmds [NumAxes]float64
	if ap.cfg.VariableTimestep && elapsed > 0 {
		cmds = ap.loop.StepDt(att, ap.setpoints, elapsed.Seconds())
	} else {
		cmds = ap.loop.Step(att, ap.setpoints)
	}

	for _, a := range Axes {
		if err := ap.mapper.ApplyMultiple(ap.devices[a], cmds[a], a.InvertProperty()); err != nil {
			debug.Error(err)
		}
		ap.metrics.TrimWritten(ap.cfg.Groups[a], len(ap.devices[a]))
	}

	for _, a := range Axes {
		sp := ap.setpoints[a]
		lines = append(lines, fmt.Sprintf("%s: C:%v T:%s PID:%v", a, a.Of(att), sp, cmds[a]))
		target, ok := sp.Value()
		if !ok {
			target = math.NaN()
		}
		ap.metrics.ObserveAxis(strings.ToLower(a.String()), a.Of(att), target, cmds[a])
	}

	ap.attitude = att
	ap.commands = cmds
	ap.ticks++
	ap.lastTick = ap.now()
	ap.metrics.Tick()
	return lines
}

// Run ticks every TickPeriod until ctx is cancelled.
func (ap *Autopilot) Run(ctx context.Context) error {
	ticker := time.NewTicker(ap.cfg.TickPeriod)
	defer ticker.Stop()

	debug.Info("Autopilot running every %v", ap.cfg.TickPeriod)
	last := ap.now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := ap.now()
			ap.Tick(now.Sub(last))
			last = now
		}
	}
}

// Handle parses and executes one operator command. Invalid commands leave
// the state unchanged and return the parse error.
func (ap *Autopilot) Handle(line string) error {
	debug.Command(line)
	cmd, err := command.Parse(line)
	if err != nil {
		return err
	}
	return ap.Execute(cmd)
}

// ErrNoDevices is returned by debug when no elevator is known.
var ErrNoDevices = errors.New("no devices discovered")

// Execute applies a parsed command.
func (ap *Autopilot) Execute(cmd command.Command) error {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	ap.setup()

	switch cmd.Kind {
	case command.Start:
		ap.enabled = true
		ap.metrics.SetEnabled(true)
		debug.Status("Autopilot enabled")
	case command.Stop:
		ap.enabled = false
		ap.metrics.SetEnabled(false)
		for _, a := range Axes {
			if err := ap.mapper.ApplyMultiple(ap.devices[a], 0, a.InvertProperty()); err != nil {
				debug.Error(err)
			}
		}
		debug.Status("Autopilot disabled, trims zeroed")
	case command.Refresh:
		ap.initialized = false
		debug.Status("Device discovery scheduled")
	case command.Set, command.Add, command.Sub:
		a, err := ParseAxis(cmd.Axis)
		if err != nil {
			return err
		}
		switch cmd.Kind {
		case command.Set:
			ap.setpoints[a] = Hold(cmd.Value)
		case command.Add:
			ap.setpoints[a] = ap.setpoints[a].Offset(cmd.Value)
		case command.Sub:
			ap.setpoints[a] = ap.setpoints[a].Offset(-cmd.Value)
		}
		debug.Verbose("%s target = %s", a, ap.setpoints[a])
	case command.Reset:
		if cmd.Axis == command.AllAxes {
			ap.setpoints = [NumAxes]Setpoint{}
			break
		}
		a, err := ParseAxis(cmd.Axis)
		if err != nil {
			return err
		}
		ap.setpoints[a] = Setpoint{}
	case command.Debug:
		devs := ap.devices[Pitch]
		if len(devs) == 0 {
			return ErrNoDevices
		}
		keys, props := devs[0].Properties()
		ap.properties = ap.properties[:0]
		debug.Info("Properties of %s:", devs[0].Name())
		for _, k := range keys {
			line := k + ":" + props[k]
			ap.properties = append(ap.properties, line)
			debug.Info("  %s", line)
		}
	default:
		return fmt.Errorf("unsupported command %s", cmd.Kind)
	}
	return nil
}

// SetGains retunes one axis without resetting its history.
func (ap *Autopilot) SetGains(a Axis, g Gains) {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	ap.loop.Controller(a).SetGains(g.Kp, g.Ki, g.Kd)
	ap.cfg.Gains[a] = g
	debug.Info("%s gains: kp=%g ki=%g kd=%g", a, g.Kp, g.Ki, g.Kd)
}

// Setpoints returns the held targets.
func (ap *Autopilot) Setpoints() [NumAxes]Setpoint {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	return ap.setpoints
}

func (ap *Autopilot) Enabled() bool {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	return ap.enabled
}

// AxisState is one axis of a Snapshot.
type AxisState struct {
	Axis     string   `json:"axis"`
	Group    string   `json:"group"`
	Devices  int      `json:"devices"`
	Current  float64  `json:"current"`
	Target   *float64 `json:"target"`
	Command  float64  `json:"command"`
	Integral float64  `json:"integral"`
	Gains    Gains    `json:"gains"`
}

// Snapshot is a copy of the autopilot state.
type Snapshot struct {
	Enabled    bool        `json:"enabled"`
	Cockpit    string      `json:"cockpit,omitempty"`
	Status     []string    `json:"status"`
	Axes       []AxisState `json:"axes"`
	Ticks      uint64      `json:"ticks"`
	LastTick   time.Time   `json:"last_tick"`
	Properties []string    `json:"properties,omitempty"`
}

func (ap *Autopilot) Snapshot() Snapshot {
	ap.mu.Lock()
	defer ap.mu.Unlock()

	snap := Snapshot{
		Enabled:    ap.enabled,
		Status:     append([]string(nil), ap.status...),
		Ticks:      ap.ticks,
		LastTick:   ap.lastTick,
		Properties: append([]string(nil), ap.properties...),
	}
	if ap.primary != nil {
		snap.Cockpit = ap.primary.Name()
	}
	for _, a := range Axes {
		c := ap.loop.Controller(a)
		kp, ki, kd := c.Gains()
		st := AxisState{
			Axis:     strings.ToLower(a.String()),
			Group:    ap.cfg.Groups[a],
			Devices:  len(ap.devices[a]),
			Current:  a.Of(ap.attitude),
			Command:  ap.commands[a],
			Integral: c.Integral(),
			Gains:    Gains{Kp: kp, Ki: ki, Kd: kd},
		}
		if v, ok := ap.setpoints[a].Value(); ok {
			st.Target = &v
		}
		snap.Axes = append(snap.Axes, st)
	}
	return snap
}
