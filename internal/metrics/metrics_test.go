package metrics

import (
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Record(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	m.ObserveAxis("pitch", 2.5, 5, 12.5)
	m.ObserveAxis("bearing", 90, math.NaN(), 0)
	m.Tick()
	m.Tick()
	m.Skip(ReasonNoDevices)
	m.SetEnabled(true)
	m.TrimWritten("Elevators", 2)
	m.TrimWritten("Elevators", 2)

	if got := testutil.ToFloat64(m.Current.WithLabelValues("pitch")); got != 2.5 {
		t.Errorf("pitch current = %v, want 2.5", got)
	}
	if got := testutil.ToFloat64(m.Command.WithLabelValues("pitch")); got != 12.5 {
		t.Errorf("pitch command = %v, want 12.5", got)
	}
	if got := testutil.ToFloat64(m.Target.WithLabelValues("bearing")); !math.IsNaN(got) {
		t.Errorf("bearing target = %v, want NaN", got)
	}
	if got := testutil.ToFloat64(m.Ticks); got != 2 {
		t.Errorf("ticks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SkippedTicks.WithLabelValues(ReasonNoDevices)); got != 1 {
		t.Errorf("skipped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Enabled); got != 1 {
		t.Errorf("enabled = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.TrimWrites.WithLabelValues("Elevators")); got != 4 {
		t.Errorf("trim writes = %v, want 4", got)
	}
}

func TestMetrics_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Error("second New on the same registry should fail")
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAxis("roll", 1, 2, 3)
	m.Tick()
	m.Skip(ReasonDisabled)
	m.SetEnabled(false)
	m.TrimWritten("Rudders", 1)
}
