// Package metrics exposes autopilot state as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "trimpilot"

// Skip reasons used as the "reason" label of SkippedTicks.
const (
	ReasonDisabled  = "disabled"
	ReasonNoCockpit = "no_cockpit"
	ReasonNoDevices = "no_devices"
	ReasonNoPose    = "no_pose"
	ReasonNoGravity = "no_gravity"
)

// Metrics groups every collector. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	Current      *prometheus.GaugeVec
	Target       *prometheus.GaugeVec
	Command      *prometheus.GaugeVec
	Ticks        prometheus.Counter
	SkippedTicks *prometheus.CounterVec
	Enabled      prometheus.Gauge
	TrimWrites   *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. Use
// prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Current: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "attitude_degrees",
			Help:      "Current attitude per axis.",
		}, []string{"axis"}),
		Target: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_degrees",
			Help:      "Held setpoint per axis, NaN when the axis is not held.",
		}, []string{"axis"}),
		Command: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "command",
			Help:      "Controller output per axis before clamping.",
		}, []string{"axis"}),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Control ticks that ran to completion.",
		}),
		SkippedTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_skipped_total",
			Help:      "Control ticks aborted before actuation.",
		}, []string{"reason"}),
		Enabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enabled",
			Help:      "1 when the autopilot is engaged.",
		}),
		TrimWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trim_writes_total",
			Help:      "Trim writes per device group.",
		}, []string{"group"}),
	}

	for _, c := range []prometheus.Collector{
		m.Current, m.Target, m.Command, m.Ticks, m.SkippedTicks, m.Enabled, m.TrimWrites,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveAxis records one axis of a completed tick.
func (m *Metrics) ObserveAxis(axis string, current, target, command float64) {
	if m == nil {
		return
	}
	m.Current.WithLabelValues(axis).Set(current)
	m.Target.WithLabelValues(axis).Set(target)
	m.Command.WithLabelValues(axis).Set(command)
}

func (m *Metrics) Tick() {
	if m == nil {
		return
	}
	m.Ticks.Inc()
}

func (m *Metrics) Skip(reason string) {
	if m == nil {
		return
	}
	m.SkippedTicks.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetEnabled(on bool) {
	if m == nil {
		return
	}
	if on {
		m.Enabled.Set(1)
	} else {
		m.Enabled.Set(0)
	}
}

// TrimWritten counts n device writes in group.
func (m *Metrics) TrimWritten(group string, n int) {
	if m == nil {
		return
	}
	m.TrimWrites.WithLabelValues(group).Add(float64(n))
}
