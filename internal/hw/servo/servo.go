package servo

import (
	"fmt"
	"math"

	"github.com/cjeanneret/TrimPilot/internal/debug"
	"github.com/cjeanneret/TrimPilot/internal/hw/gpio"
)

// Calibration maps a trim value onto a servo pulse width.
type Calibration struct {
	CenterUs  float64 // pulse at zero trim, e.g. 1500
	SpanUs    float64 // pulse offset at full trim, e.g. 500
	TrimLimit float64 // trim that produces the full span, e.g. 44
}

// DefaultCalibration is a standard hobby servo: 1000-2000 µs for ±44 trim.
var DefaultCalibration = Calibration{CenterUs: 1500, SpanUs: 500, TrimLimit: 44}

// Pulse returns the pulse width in microseconds for trim.
// Trim beyond the limit is clamped so the pulse never leaves the span.
func (c Calibration) Pulse(trim float64) float64 {
	if c.TrimLimit <= 0 {
		return c.CenterUs
	}
	ratio := trim / c.TrimLimit
	if ratio > 1 {
		ratio = 1
	}
	if ratio < -1 {
		ratio = -1
	}
	return c.CenterUs + ratio*c.SpanUs
}

// Config holds the hardware configuration for a PWM servo.
type Config struct {
	Pin         int // BCM pin with hardware PWM (12, 13, 18 or 19)
	EnablePin   int // servo power relay (BCM). 0 = not used. Active HIGH.
	FrequencyHz int // PWM frame rate; 50 for most analog servos
	Calibration Calibration
}

// Servo drives one control surface through hardware PWM with 1 µs resolution.
type Servo struct {
	gpio     gpio.Driver
	cfg      Config
	cycleLen uint32 // frame length in µs
}

// NewServo configures the PWM pin and powers the servo.
func NewServo(g gpio.Driver, cfg Config) (*Servo, error) {
	if cfg.FrequencyHz <= 0 {
		cfg.FrequencyHz = 50
	}
	if cfg.Calibration == (Calibration{}) {
		cfg.Calibration = DefaultCalibration
	}

	cycle := uint32(1_000_000 / cfg.FrequencyHz)
	// One clock tick per microsecond.
	if err := g.SetupPWM(cfg.Pin, cfg.FrequencyHz*int(cycle)); err != nil {
		return nil, fmt.Errorf("servo pin %d: %w", cfg.Pin, err)
	}

	s := &Servo{
		gpio:     g,
		cfg:      cfg,
		cycleLen: cycle,
	}

	if cfg.EnablePin > 0 {
		if err := g.SetupPin(cfg.EnablePin, gpio.Output); err != nil {
			return nil, fmt.Errorf("servo enable pin %d: %w", cfg.EnablePin, err)
		}
		if err := g.WritePin(cfg.EnablePin, gpio.High); err != nil {
			return nil, fmt.Errorf("servo enable pin %d: %w", cfg.EnablePin, err)
		}
	}

	return s, nil
}

// WriteTrim moves the servo to the position for trim.
func (s *Servo) WriteTrim(trim float64) error {
	pulse := uint32(math.Round(s.cfg.Calibration.Pulse(trim)))
	if pulse > s.cycleLen {
		pulse = s.cycleLen
	}
	debug.Printf("Servo: pin %d trim %.2f -> %d µs", s.cfg.Pin, trim, pulse)
	return s.gpio.WritePWM(s.cfg.Pin, pulse, s.cycleLen)
}

// Close cuts servo power. The surface freewheels afterwards.
func (s *Servo) Close() error {
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.Low)
}
