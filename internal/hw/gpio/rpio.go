package gpio

import (
	"fmt"
	"sync"

	"github.com/cjeanneret/TrimPilot/internal/debug"
	"github.com/stianeikeland/go-rpio/v4"
)

// RPiDriver is the real implementation for Raspberry Pi using go-rpio.
type RPiDriver struct {
	mu   sync.Mutex
	pins map[int]rpio.Pin
	pwm  map[int]bool
}

// NewRPiRealDriver creates a real GPIO driver for Raspberry Pi.
// Requires running on a Raspberry Pi with access to /dev/gpiomem or as root.
// Hardware PWM additionally needs /dev/mem (root).
func NewRPiRealDriver() (*RPiDriver, error) {
	debug.Info("Initializing real GPIO driver (go-rpio)")

	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}

	debug.Verbose("GPIO memory mapped successfully")

	return &RPiDriver{
		pins: make(map[int]rpio.Pin),
		pwm:  make(map[int]bool),
	}, nil
}

func (r *RPiDriver) SetupPin(pin int, mode PinMode) error {
	debug.PWM("SetupPin", pin, mode)

	r.mu.Lock()
	defer r.mu.Unlock()

	p := rpio.Pin(pin)
	r.pins[pin] = p

	switch mode {
	case Input:
		p.Input()
	case Output:
		p.Output()
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}

	return nil
}

func (r *RPiDriver) WritePin(pin int, level Level) error {
	debug.PWM("WritePin", pin, level)

	r.mu.Lock()
	p, ok := r.pins[pin]
	r.mu.Unlock()
	if !ok {
		// Pin not setup yet, setup as output
		if err := r.SetupPin(pin, Output); err != nil {
			return err
		}
		p = rpio.Pin(pin)
	}

	if level == High {
		p.High()
	} else {
		p.Low()
	}

	return nil
}

func (r *RPiDriver) SetupPWM(pin int, clockHz int) error {
	debug.PWM("SetupPWM", pin, clockHz)

	if clockHz <= 0 {
		return fmt.Errorf("pwm clock must be > 0, got %d", clockHz)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p := rpio.Pin(pin)
	p.Mode(rpio.Pwm)
	p.Freq(clockHz)
	r.pins[pin] = p
	r.pwm[pin] = true
	return nil
}

func (r *RPiDriver) WritePWM(pin int, dutyLen, cycleLen uint32) error {
	debug.PWM("WritePWM", pin, debug.Fmt("%d/%d", dutyLen, cycleLen))

	r.mu.Lock()
	p, ok := r.pins[pin]
	isPWM := r.pwm[pin]
	r.mu.Unlock()
	if !ok || !isPWM {
		return fmt.Errorf("pin %d is not configured for PWM", pin)
	}
	if dutyLen > cycleLen {
		return fmt.Errorf("pwm duty %d exceeds cycle %d", dutyLen, cycleLen)
	}

	p.DutyCycle(dutyLen, cycleLen)
	return nil
}

func (r *RPiDriver) Close() error {
	debug.Trace("GPIO Close (real driver)")

	r.mu.Lock()
	defer r.mu.Unlock()

	// Reset all pins to input (safe state)
	for pin, p := range r.pins {
		debug.Verbose("Resetting pin %d to input", pin)
		if r.pwm[pin] {
			p.DutyCycle(0, 1)
		}
		p.Input()
	}

	return rpio.Close()
}
