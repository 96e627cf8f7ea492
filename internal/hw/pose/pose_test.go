package pose

import (
	"context"
	"errors"
	"math"
	"net"
	"testing"
	"time"

	"github.com/golang/geo/r3"

	"github.com/cjeanneret/TrimPilot/internal/logic/attitude"
)

var level = Sample{
	Frame:   attitude.Frame{Forward: r3.Vector{Z: 1}, Up: r3.Vector{Y: 1}},
	Gravity: r3.Vector{Y: -1},
}

type fakeCockpit struct {
	name          string
	main, control bool
}

func (f fakeCockpit) Name() string            { return f.name }
func (f fakeCockpit) IsMain() bool            { return f.main }
func (f fakeCockpit) IsUnderControl() bool    { return f.control }
func (f fakeCockpit) Sample() (Sample, error) { return level, nil }

func TestSelectPrimary(t *testing.T) {
	cases := []struct {
		name     string
		cockpits []Cockpit
		want     string
	}{
		{"empty", nil, ""},
		{"fallback_first", []Cockpit{fakeCockpit{name: "a"}, fakeCockpit{name: "b"}}, "a"},
		{"main_wins", []Cockpit{fakeCockpit{name: "a"}, fakeCockpit{name: "b", main: true}}, "b"},
		{"controlled_wins", []Cockpit{fakeCockpit{name: "a"}, fakeCockpit{name: "b", control: true}}, "b"},
		{"main_beats_earlier_controlled", []Cockpit{
			fakeCockpit{name: "a"},
			fakeCockpit{name: "b", control: true},
			fakeCockpit{name: "c", main: true},
		}, "c"},
		{"first_main_in_order", []Cockpit{
			fakeCockpit{name: "a", main: true},
			fakeCockpit{name: "b", main: true, control: true},
		}, "a"},
		{"first_controlled_in_order", []Cockpit{
			fakeCockpit{name: "a", control: true},
			fakeCockpit{name: "b", control: true},
		}, "a"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SelectPrimary(tc.cockpits)
			name := ""
			if got != nil {
				name = got.Name()
			}
			if name != tc.want {
				t.Errorf("SelectPrimary() = %q, want %q", name, tc.want)
			}
		})
	}
}

func TestSample_Validate(t *testing.T) {
	cases := []struct {
		name    string
		s       Sample
		wantErr bool
	}{
		{"level", level, false},
		{"zero_gravity_is_valid", Sample{Frame: level.Frame}, false},
		{"nan_gravity", Sample{Frame: level.Frame, Gravity: r3.Vector{Y: math.NaN()}}, true},
		{"inf_forward", Sample{Frame: attitude.Frame{Forward: r3.Vector{Z: math.Inf(1)}, Up: r3.Vector{Y: 1}}}, true},
		{"zero_forward", Sample{Frame: attitude.Frame{Up: r3.Vector{Y: 1}}, Gravity: r3.Vector{Y: -1}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.s.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestStatic(t *testing.T) {
	s := NewStatic("bench", true, level)
	if !s.IsMain() || !s.IsUnderControl() {
		t.Error("static cockpit should be main and under control")
	}
	got, err := s.Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if got != level {
		t.Errorf("Sample() = %+v, want %+v", got, level)
	}

	bad := NewStatic("bad", false, Sample{})
	if _, err := bad.Sample(); err == nil {
		t.Error("expected error for zero frame")
	}
}

func TestSelectPrimary_MainUDPBeatsEarlierStatic(t *testing.T) {
	u, err := NewUDPSource(UDPConfig{Name: "sim", Listen: "127.0.0.1:0", Main: true})
	if err != nil {
		t.Fatalf("NewUDPSource: %v", err)
	}
	cockpits := []Cockpit{NewStatic("bench", false, level), u}
	if got := SelectPrimary(cockpits); got.Name() != "sim" {
		t.Errorf("SelectPrimary = %s, want sim", got.Name())
	}
}

func TestUDPSource_IngestAndStaleness(t *testing.T) {
	u, err := NewUDPSource(UDPConfig{Name: "sim", Listen: "127.0.0.1:0", StaleAfter: time.Second})
	if err != nil {
		t.Fatalf("NewUDPSource: %v", err)
	}
	now := time.Unix(1000, 0)
	u.now = func() time.Time { return now }

	if u.IsUnderControl() {
		t.Error("no sample yet, should not be under control")
	}
	if _, err := u.Sample(); !errors.Is(err, ErrNoSample) {
		t.Errorf("Sample() error = %v, want ErrNoSample", err)
	}

	raw := []byte(`{"forward":[0,0,1],"up":[0,1,0],"gravity":[0,-9.81,0]}`)
	if err := u.Ingest(raw); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	s, err := u.Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if s.Gravity.Y != -9.81 || s.Frame.Forward.Z != 1 {
		t.Errorf("Sample() = %+v", s)
	}
	if !u.IsUnderControl() {
		t.Error("fresh sample should be under control")
	}

	now = now.Add(1500 * time.Millisecond)
	if u.IsUnderControl() {
		t.Error("stale sample should not be under control")
	}
	if _, err := u.Sample(); err != nil {
		t.Errorf("stale Sample() error = %v, want nil", err)
	}
}

func TestUDPSource_IngestRejects(t *testing.T) {
	u, _ := NewUDPSource(UDPConfig{Name: "sim", Listen: ":0"})
	cases := []struct {
		name string
		raw  string
	}{
		{"not_json", `forward=1`},
		{"zero_frame", `{"gravity":[0,-1,0]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := u.Ingest([]byte(tc.raw)); err == nil {
				t.Error("expected error")
			}
		})
	}
	if u.Snapshot().LastErr == "" {
		t.Error("snapshot should record the last error")
	}
	if u.Snapshot().Samples != 0 {
		t.Error("rejected datagrams must not count")
	}
}

func TestNewUDPSource_Validation(t *testing.T) {
	if _, err := NewUDPSource(UDPConfig{Listen: ":0"}); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := NewUDPSource(UDPConfig{Name: "x"}); err == nil {
		t.Error("expected error for missing listen address")
	}
}

func TestUDPSource_ReceivesDatagrams(t *testing.T) {
	u, err := NewUDPSource(UDPConfig{Name: "sim", Listen: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("NewUDPSource: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := u.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer u.Close()

	conn, err := net.Dial("udp", u.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	raw := []byte(`{"forward":[1,0,0],"up":[0,1,0],"gravity":[0,-1,0]}`)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, _ = conn.Write(raw)
		if u.IsUnderControl() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	s, err := u.Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if s.Frame.Forward.X != 1 {
		t.Errorf("forward = %v, want (1,0,0)", s.Frame.Forward)
	}
	if err := u.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}
}
