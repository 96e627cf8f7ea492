package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes bounds the size of a configuration file.
const MaxConfigFileBytes = 1 << 20

// Backends for a control surface.
const (
	BackendPWM     = "pwm"     // hardware PWM pin on the Raspberry Pi
	BackendMaestro = "maestro" // Pololu Maestro channel over USB serial
	BackendMock    = "mock"    // log only
)

// Cockpit pose sources.
const (
	SourceStatic = "static"
	SourceUDP    = "udp"
)

// AutopilotConfig holds the control loop parameters.
type AutopilotConfig struct {
	UpdateHz         float64 `yaml:"update_hz"`         // ticks per second (default: 6)
	TrimLimit        float64 `yaml:"trim_limit"`        // |trim| bound, at most 44
	VariableTimestep bool    `yaml:"variable_timestep"` // feed the measured tick interval to the PIDs
	StartEnabled     bool    `yaml:"start_enabled"`     // engage at start-up without a "start" command
}

// GainsConfig holds the PID coefficients of one axis.
type GainsConfig struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
}

// PIDConfig holds per-axis gains. Omitted axes get Kp=5, Ki=Kd=0.
type PIDConfig struct {
	Pitch   *GainsConfig `yaml:"pitch,omitempty"`
	Roll    *GainsConfig `yaml:"roll,omitempty"`
	Bearing *GainsConfig `yaml:"bearing,omitempty"`
}

// GroupsConfig names the device group driven by each axis.
type GroupsConfig struct {
	Pitch   string `yaml:"pitch"`   // default: Elevators
	Roll    string `yaml:"roll"`    // default: Ailerons
	Bearing string `yaml:"bearing"` // default: Rudders
}

// SurfaceConfig describes one control surface.
type SurfaceConfig struct {
	Name        string   `yaml:"name"`
	Groups      []string `yaml:"groups"`
	Backend     string   `yaml:"backend"`      // pwm | maestro | mock (default: mock)
	Pin         int      `yaml:"pin"`          // BCM pin for backend pwm
	EnablePin   int      `yaml:"enable_pin"`   // servo power relay (BCM). 0 = not used.
	Channel     int      `yaml:"channel"`      // Maestro channel for backend maestro
	InvertPitch bool     `yaml:"invert_pitch"` // reverse trim on the pitch axis
	InvertRoll  bool     `yaml:"invert_roll"`
	InvertYaw   bool     `yaml:"invert_yaw"`
}

// ServoConfig is the pulse calibration shared by every servo.
type ServoConfig struct {
	FrequencyHz int     `yaml:"frequency_hz"` // default: 50
	CenterUs    float64 `yaml:"center_us"`    // default: 1500
	SpanUs      float64 `yaml:"span_us"`      // default: 500
}

// MaestroConfig locates the serial servo controller.
type MaestroConfig struct {
	Port string `yaml:"port"` // e.g. /dev/ttyACM0
	Baud int    `yaml:"baud"` // default: 9600
}

// CockpitConfig describes one pose source.
type CockpitConfig struct {
	Name    string     `yaml:"name"`
	Main    bool       `yaml:"main"`
	Source  string     `yaml:"source"`   // static | udp (default: static)
	Listen  string     `yaml:"listen"`   // UDP address for source udp
	StaleMs int        `yaml:"stale_ms"` // UDP samples older than this are not under control (default: 1000)
	Forward [3]float64 `yaml:"forward"`  // static pose
	Up      [3]float64 `yaml:"up"`
	Gravity [3]float64 `yaml:"gravity"`
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enable bool `yaml:"enable"`
}

// Config aggregates all application configuration.
type Config struct {
	Autopilot AutopilotConfig `yaml:"autopilot"`
	PID       PIDConfig       `yaml:"pid"`
	Groups    GroupsConfig    `yaml:"groups"`
	Surfaces  []SurfaceConfig `yaml:"surfaces"`
	Servo     ServoConfig     `yaml:"servo"`
	Maestro   MaestroConfig   `yaml:"maestro"`
	Cockpits  []CockpitConfig `yaml:"cockpits"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ValidateConfigPath accepts only .yaml files directly inside a configs/
// directory, without path traversal.
func ValidateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain ..", path)
		}
	}
	if filepath.Ext(path) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config file must be in a configs/ directory, got %q", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", MaxConfigFileBytes)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Autopilot.UpdateHz == 0 {
		c.Autopilot.UpdateHz = 6 // every 10 frames at 60 Hz
	}
	if c.Autopilot.TrimLimit == 0 {
		c.Autopilot.TrimLimit = 44
	}
	for _, g := range []**GainsConfig{&c.PID.Pitch, &c.PID.Roll, &c.PID.Bearing} {
		if *g == nil {
			*g = &GainsConfig{Kp: 5}
		}
	}
	if c.Groups.Pitch == "" {
		c.Groups.Pitch = "Elevators"
	}
	if c.Groups.Roll == "" {
		c.Groups.Roll = "Ailerons"
	}
	if c.Groups.Bearing == "" {
		c.Groups.Bearing = "Rudders"
	}
	for i := range c.Surfaces {
		if c.Surfaces[i].Backend == "" {
			c.Surfaces[i].Backend = BackendMock
		}
	}
	if c.Servo.FrequencyHz == 0 {
		c.Servo.FrequencyHz = 50
	}
	if c.Servo.CenterUs == 0 {
		c.Servo.CenterUs = 1500
	}
	if c.Servo.SpanUs == 0 {
		c.Servo.SpanUs = 500
	}
	if c.Maestro.Baud == 0 {
		c.Maestro.Baud = 9600
	}
	for i := range c.Cockpits {
		if c.Cockpits[i].Source == "" {
			c.Cockpits[i].Source = SourceStatic
		}
		if c.Cockpits[i].StaleMs == 0 {
			c.Cockpits[i].StaleMs = 1000
		}
	}
}

// Validate checks ranges and cross references.
func (c *Config) Validate() error {
	if c.Autopilot.UpdateHz <= 0 || !finite(c.Autopilot.UpdateHz) {
		return fmt.Errorf("autopilot.update_hz must be > 0, got %v", c.Autopilot.UpdateHz)
	}
	if c.Autopilot.TrimLimit <= 0 || c.Autopilot.TrimLimit > 44 {
		return fmt.Errorf("autopilot.trim_limit must be in (0, 44], got %v", c.Autopilot.TrimLimit)
	}
	for name, g := range map[string]*GainsConfig{"pitch": c.PID.Pitch, "roll": c.PID.Roll, "bearing": c.PID.Bearing} {
		if err := ValidateGains(g.Kp, g.Ki, g.Kd); err != nil {
			return fmt.Errorf("pid.%s: %w", name, err)
		}
	}

	if len(c.Surfaces) == 0 {
		return errors.New("at least one surface is required")
	}
	names := make(map[string]bool)
	for i, s := range c.Surfaces {
		if s.Name == "" {
			return fmt.Errorf("surfaces[%d].name is required", i)
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate surface name %q", s.Name)
		}
		names[s.Name] = true
		if len(s.Groups) == 0 {
			return fmt.Errorf("surface %s: at least one group is required", s.Name)
		}
		switch s.Backend {
		case BackendPWM:
			if s.Pin <= 0 {
				return fmt.Errorf("surface %s: pin is required for backend pwm", s.Name)
			}
		case BackendMaestro:
			if s.Channel < 0 || s.Channel > 23 {
				return fmt.Errorf("surface %s: channel must be in [0, 23], got %d", s.Name, s.Channel)
			}
			if c.Maestro.Port == "" {
				return fmt.Errorf("surface %s: maestro.port is required for backend maestro", s.Name)
			}
		case BackendMock:
		default:
			return fmt.Errorf("surface %s: unknown backend %q", s.Name, s.Backend)
		}
	}

	if c.Servo.FrequencyHz <= 0 || c.Servo.FrequencyHz > 400 {
		return fmt.Errorf("servo.frequency_hz must be in (0, 400], got %d", c.Servo.FrequencyHz)
	}
	if c.Servo.SpanUs <= 0 || c.Servo.CenterUs-c.Servo.SpanUs < 0 {
		return fmt.Errorf("servo: invalid pulse range %v±%v µs", c.Servo.CenterUs, c.Servo.SpanUs)
	}

	if len(c.Cockpits) == 0 {
		return errors.New("at least one cockpit is required")
	}
	for i, ck := range c.Cockpits {
		if ck.Name == "" {
			return fmt.Errorf("cockpits[%d].name is required", i)
		}
		switch ck.Source {
		case SourceStatic:
			for _, v := range [][3]float64{ck.Forward, ck.Up, ck.Gravity} {
				for _, x := range v {
					if !finite(x) {
						return fmt.Errorf("cockpit %s: vectors must be finite", ck.Name)
					}
				}
			}
			if ck.Forward == [3]float64{} || ck.Up == [3]float64{} {
				return fmt.Errorf("cockpit %s: forward and up are required for a static source", ck.Name)
			}
		case SourceUDP:
			if ck.Listen == "" {
				return fmt.Errorf("cockpit %s: listen is required for a udp source", ck.Name)
			}
			if ck.StaleMs < 0 {
				return fmt.Errorf("cockpit %s: stale_ms must be >= 0", ck.Name)
			}
		default:
			return fmt.Errorf("cockpit %s: unknown source %q", ck.Name, ck.Source)
		}
	}

	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	return nil
}

// ValidateGains rejects negative or non-finite PID coefficients.
func ValidateGains(kp, ki, kd float64) error {
	for _, g := range []struct {
		name string
		v    float64
	}{{"kp", kp}, {"ki", ki}, {"kd", kd}} {
		if !finite(g.v) || g.v < 0 {
			return fmt.Errorf("%s must be a finite value >= 0, got %v", g.name, g.v)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// TickPeriod returns the control period.
func (c *Config) TickPeriod() time.Duration {
	return time.Duration(float64(time.Second) / c.Autopilot.UpdateHz)
}

// TimeStep returns the control period in seconds, as fed to the PIDs.
func (c *Config) TimeStep() float64 {
	return 1 / c.Autopilot.UpdateHz
}

// StaleAfter returns the freshness window of a cockpit.
func (ck CockpitConfig) StaleAfter() time.Duration {
	return time.Duration(ck.StaleMs) * time.Millisecond
}
