package autopilot

import (
	"math"

	"github.com/cjeanneret/TrimPilot/internal/logic/attitude"
	"github.com/cjeanneret/TrimPilot/internal/logic/pid"
)

// Gains are the PID coefficients of one axis.
type Gains struct {
	Kp float64 `json:"kp"`
	Ki float64 `json:"ki"`
	Kd float64 `json:"kd"`
}

// NormalizeBearingError wraps a bearing difference into [-180, 180).
func NormalizeBearingError(e float64) float64 {
	return e - 360*math.Floor((e+180)/360)
}

// Loop holds one PID controller per axis.
type Loop struct {
	pids [NumAxes]*pid.Controller
}

// NewLoop creates the per-axis controllers with a fixed time step in seconds.
func NewLoop(gains [NumAxes]Gains, timeStep float64) *Loop {
	l := &Loop{}
	for _, a := range Axes {
		g := gains[a]
		l.pids[a] = pid.New(g.Kp, g.Ki, g.Kd, timeStep)
	}
	return l
}

// Controller returns the PID of axis.
func (l *Loop) Controller(a Axis) *pid.Controller { return l.pids[a] }

// Step computes one command per axis with the fixed time step.
func (l *Loop) Step(att attitude.Attitude, setpoints [NumAxes]Setpoint) [NumAxes]float64 {
	return l.step(att, setpoints, 0)
}

// StepDt is Step with a measured time step in seconds.
func (l *Loop) StepDt(att attitude.Attitude, setpoints [NumAxes]Setpoint, dt float64) [NumAxes]float64 {
	return l.step(att, setpoints, dt)
}

func (l *Loop) step(att attitude.Attitude, setpoints [NumAxes]Setpoint, dt float64) [NumAxes]float64 {
	var out [NumAxes]float64
	for _, a := range Axes {
		desired, ok := setpoints[a].Value()
		if !ok {
			// Unheld axes stay neutral and keep their PID history.
			continue
		}
		e := desired - a.Of(att)
		if a == Bearing {
			e = -NormalizeBearingError(e)
		}
		if dt > 0 {
			out[a] = l.pids[a].ControlStep(e, dt)
		} else {
			out[a] = l.pids[a].Control(e)
		}
	}
	return out
}
