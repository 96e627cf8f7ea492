// Package maestro drives servos through a Pololu Maestro USB servo
// controller using the compact serial protocol.
package maestro

import (
	"io"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"

	"github.com/cjeanneret/TrimPilot/internal/debug"
	"github.com/cjeanneret/TrimPilot/internal/hw/servo"
)

const (
	cmdSetTarget = 0x84

	// MaxChannel is the highest channel of the largest Maestro (Mini 24).
	MaxChannel = 23

	DefaultBaud = 9600
)

// Controller owns the serial link. Channels share it.
type Controller struct {
	mu   sync.Mutex
	port io.WriteCloser
	name string
}

// Open connects to a Maestro on a serial device such as /dev/ttyACM0.
func Open(device string, baud int) (*Controller, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	cfg := &serial.Config{Name: device, Baud: baud, ReadTimeout: 500 * time.Millisecond}
	p, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "open maestro on %s", device)
	}
	debug.Info("Maestro opened on %s @ %d baud", device, baud)
	return New(p, device), nil
}

// New wraps an already open link.
func New(w io.WriteCloser, name string) *Controller {
	return &Controller{port: w, name: name}
}

// EncodeSetTarget builds a compact Set Target frame. target is in
// quarter-microseconds.
func EncodeSetTarget(channel int, target uint16) []byte {
	return []byte{
		cmdSetTarget,
		byte(channel),
		byte(target & 0x7f),
		byte((target >> 7) & 0x7f),
	}
}

// SetTarget sets the pulse width of channel in microseconds.
func (c *Controller) SetTarget(channel int, pulseUs float64) error {
	if channel < 0 || channel > MaxChannel {
		return errors.Errorf("maestro channel %d out of range [0,%d]", channel, MaxChannel)
	}
	if math.IsNaN(pulseUs) || pulseUs < 0 {
		return errors.Errorf("invalid pulse %v µs", pulseUs)
	}
	q := math.Round(pulseUs * 4)
	if q > 0x3fff {
		q = 0x3fff
	}
	frame := EncodeSetTarget(channel, uint16(q))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return errors.New("maestro is closed")
	}
	debug.Serial(c.name, frame)
	if _, err := c.port.Write(frame); err != nil {
		return errors.Wrapf(err, "write to %s", c.name)
	}
	return nil
}

// Close releases the serial link. Servos hold their last target.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	return err
}

// Channel is one servo output on the controller.
type Channel struct {
	ctrl  *Controller
	index int
	cal   servo.Calibration
}

// Channel returns the output for channel index using cal.
func (c *Controller) Channel(index int, cal servo.Calibration) (*Channel, error) {
	if index < 0 || index > MaxChannel {
		return nil, errors.Errorf("maestro channel %d out of range [0,%d]", index, MaxChannel)
	}
	if cal == (servo.Calibration{}) {
		cal = servo.DefaultCalibration
	}
	return &Channel{ctrl: c, index: index, cal: cal}, nil
}

// WriteTrim moves the channel's servo to the position for trim.
func (ch *Channel) WriteTrim(trim float64) error {
	return ch.ctrl.SetTarget(ch.index, ch.cal.Pulse(trim))
}
