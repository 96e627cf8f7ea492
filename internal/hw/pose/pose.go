// Package pose provides the vehicle pose sources ("cockpits") the
// autopilot reads its orientation and gravity reference from.
package pose

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/cjeanneret/TrimPilot/internal/logic/attitude"
	"github.com/cjeanneret/TrimPilot/internal/logic/geometry"
)

// ErrNoSample is returned by a source that has never received a pose.
var ErrNoSample = errors.New("no pose sample")

// Sample is one instantaneous pose: the orientation frame in world space
// and the local gravity vector.
type Sample struct {
	Frame   attitude.Frame
	Gravity r3.Vector
}

// Validate rejects samples with non-finite components or a degenerate frame.
func (s Sample) Validate() error {
	if !s.Frame.IsFinite() || !geometry.IsFinite(s.Gravity) {
		return errors.New("pose sample has non-finite components")
	}
	if geometry.IsZero(s.Frame.Forward) || geometry.IsZero(s.Frame.Up) {
		return errors.New("pose frame has a zero axis")
	}
	return nil
}

// Cockpit is a pose source.
type Cockpit interface {
	Name() string
	// IsMain marks the operator's preferred source.
	IsMain() bool
	// IsUnderControl reports whether the source is live right now.
	IsUnderControl() bool
	Sample() (Sample, error)
}

// SelectPrimary returns the first main cockpit, else the first one under
// control, else the first one. It returns nil for an empty list.
func SelectPrimary(cockpits []Cockpit) Cockpit {
	for _, c := range cockpits {
		if c.IsMain() {
			return c
		}
	}
	for _, c := range cockpits {
		if c.IsUnderControl() {
			return c
		}
	}
	if len(cockpits) > 0 {
		return cockpits[0]
	}
	return nil
}

// Static is a fixed pose, useful for bench tests and simulation.
type Static struct {
	name   string
	main   bool
	sample Sample
}

func NewStatic(name string, main bool, s Sample) *Static {
	return &Static{name: name, main: main, sample: s}
}

func (s *Static) Name() string        { return s.name }
func (s *Static) IsMain() bool        { return s.main }
func (s *Static) IsUnderControl() bool { return true }

func (s *Static) Sample() (Sample, error) {
	if err := s.sample.Validate(); err != nil {
		return Sample{}, errors.Wrapf(err, "cockpit %s", s.name)
	}
	return s.sample, nil
}
