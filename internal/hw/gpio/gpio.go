package gpio

import (
	"github.com/cjeanneret/TrimPilot/internal/debug"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// PinMode indicates whether a GPIO is input or output.
type PinMode int

const (
	Input PinMode = iota
	Output
)

// Driver defines the abstract interface for controlling GPIOs.
// Servos are driven through hardware PWM; plain digital pins are used for
// servo power relays.
type Driver interface {
	SetupPin(pin int, mode PinMode) error
	WritePin(pin int, level Level) error
	// SetupPWM switches pin to hardware PWM with the given clock frequency.
	SetupPWM(pin int, clockHz int) error
	// WritePWM sets the pulse as dutyLen clock ticks out of cycleLen.
	WritePWM(pin int, dutyLen, cycleLen uint32) error
	Close() error
}

// MockDriver is a test implementation that simply logs actions.
// Used for development on PC or testing.
type MockDriver struct{}

// NewDriver creates a GPIO driver based on the chosen mode.
// If mock is true, returns a MockDriver (for dev/test).
// If mock is false, returns a real RPiDriver (for Raspberry Pi).
func NewDriver(mock bool) (Driver, error) {
	if mock {
		debug.Info("Using MOCK GPIO driver (development mode)")
		return &MockDriver{}, nil
	}
	return NewRPiRealDriver()
}

func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	debug.PWM("SetupPin", pin, mode)
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	debug.PWM("WritePin", pin, level)
	return nil
}

func (m *MockDriver) SetupPWM(pin int, clockHz int) error {
	debug.PWM("SetupPWM", pin, clockHz)
	return nil
}

func (m *MockDriver) WritePWM(pin int, dutyLen, cycleLen uint32) error {
	debug.PWM("WritePWM", pin, debug.Fmt("%d/%d", dutyLen, cycleLen))
	return nil
}

func (m *MockDriver) Close() error {
	debug.Trace("GPIO Close (mock)")
	return nil
}
