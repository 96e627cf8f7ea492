// Package surface models trimmable control surfaces and the actuator
// mapping policy that turns a controller output into a bounded trim.
package surface

import (
	"math"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/cjeanneret/TrimPilot/internal/debug"
)

const (
	// CapabilityTrim marks a device that accepts a trim command.
	CapabilityTrim = "ControlSurface.Trim"

	PropInvertPitch = "ControlSurface.InvertPitch"
	PropInvertRoll  = "ControlSurface.Invert"
	PropInvertYaw   = "ControlSurface.InvertYaw"

	// TrimLimit bounds every trim command.
	TrimLimit = 44.0
)

// Output is the physical side of a surface.
type Output interface {
	WriteTrim(trim float64) error
}

// NopOutput accepts every write. Used by mock surfaces.
type NopOutput struct{}

func (NopOutput) WriteTrim(float64) error { return nil }

// Device is one control surface. Boolean properties are read at dispatch
// time, so flipping an inversion flag takes effect on the next write.
type Device struct {
	name string
	out  Output

	mu    sync.RWMutex
	trim  float64
	flags map[string]bool
}

// NewDevice creates a device writing to out. A nil out discards writes.
func NewDevice(name string, out Output) *Device {
	if out == nil {
		out = NopOutput{}
	}
	return &Device{
		name:  name,
		out:   out,
		flags: map[string]bool{CapabilityTrim: true},
	}
}

func (d *Device) Name() string { return d.name }

// HasProperty reports whether the device exposes prop.
func (d *Device) HasProperty(prop string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.flags[prop]
	return ok
}

// Bool returns a boolean property. Unknown properties read false.
func (d *Device) Bool(prop string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.flags[prop]
}

func (d *Device) SetBool(prop string, v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flags[prop] = v
}

// Trim returns the last trim written.
func (d *Device) Trim() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.trim
}

// SetTrim writes trim to the output and remembers it on success.
func (d *Device) SetTrim(trim float64) error {
	if err := d.out.WriteTrim(trim); err != nil {
		return errors.Wrapf(err, "surface %s", d.name)
	}
	d.mu.Lock()
	d.trim = trim
	d.mu.Unlock()
	return nil
}

// Properties returns every property as text, keyed by name, plus the
// sorted key list.
func (d *Device) Properties() ([]string, map[string]string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	props := make(map[string]string, len(d.flags)+1)
	for k, v := range d.flags {
		props[k] = strconv.FormatBool(v)
	}
	props["ControlSurface.TrimValue"] = strconv.FormatFloat(d.trim, 'f', 2, 64)
	keys := maps.Keys(props)
	slices.Sort(keys)
	return keys, props
}

// Mapper clamps and inverts trim commands.
type Mapper struct {
	Limit float64
}

// DefaultMapper clamps to ±TrimLimit.
var DefaultMapper = Mapper{Limit: TrimLimit}

// Map returns the trim to write for command. ok is false when command is
// not finite and nothing must be written.
func (m Mapper) Map(command float64, invert bool) (trim float64, ok bool) {
	if math.IsNaN(command) || math.IsInf(command, 0) {
		return 0, false
	}
	limit := m.Limit
	if limit <= 0 || limit > TrimLimit {
		limit = TrimLimit
	}
	trim = math.Max(-limit, math.Min(limit, command))
	if trim != 0 && invert {
		trim = -trim
	}
	return trim, true
}

// Apply writes command to dev. The inversion property is only read when
// the clamped command is non-zero.
func (m Mapper) Apply(dev *Device, command float64, invertProp string) error {
	trim, ok := m.Map(command, false)
	if !ok {
		return nil
	}
	inverted := false
	if trim != 0 && dev.Bool(invertProp) {
		inverted = true
		trim = -trim
	}
	debug.Trim(dev.Name(), trim, inverted)
	return dev.SetTrim(trim)
}

// ApplyMultiple fans command out to every device. A failing device does
// not stop the others; the first error is returned.
func (m Mapper) ApplyMultiple(devs []*Device, command float64, invertProp string) error {
	var first error
	for _, d := range devs {
		if err := m.Apply(d, command, invertProp); err != nil {
			debug.Error(err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// MapTrim is DefaultMapper.Map.
func MapTrim(command float64, invert bool) (float64, bool) {
	return DefaultMapper.Map(command, invert)
}

// ApplyTrim is DefaultMapper.Apply.
func ApplyTrim(dev *Device, command float64, invertProp string) error {
	return DefaultMapper.Apply(dev, command, invertProp)
}

// ApplyTrimMultiple is DefaultMapper.ApplyMultiple.
func ApplyTrimMultiple(devs []*Device, command float64, invertProp string) error {
	return DefaultMapper.ApplyMultiple(devs, command, invertProp)
}
