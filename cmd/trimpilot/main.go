package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cjeanneret/TrimPilot/internal/config"
	"github.com/cjeanneret/TrimPilot/internal/debug"
	"github.com/cjeanneret/TrimPilot/internal/hw/gpio"
	"github.com/cjeanneret/TrimPilot/internal/logic/autopilot"
	"github.com/cjeanneret/TrimPilot/internal/metrics"
	"github.com/cjeanneret/TrimPilot/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	console := flag.Bool("console", false, "read commands from stdin")
	kp := flag.Float64("kp", 0, "override proportional gain on every axis")
	ki := flag.Float64("ki", 0, "override integral gain on every axis")
	kd := flag.Float64("kd", 0, "override derivative gain on every axis")
	flag.Parse()

	if flag.NArg() > 0 {
		status, err := manageService(flag.Arg(0), os.Args[1:len(os.Args)-flag.NArg()]...)
		if err != nil {
			log.Fatalf("%s: %v", status, err)
		}
		fmt.Println(status)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Validate CLI overrides (only non-zero values are applied; zero means "use config default")
	if err := validateCLIOverrides(*kp, *ki, *kd); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}
	applyOverrides(cfg, *kp, *ki, *kd)

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	var hub *web.Hub
	if webPort.port() > 0 {
		hub = web.NewHub()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.LogWriter(hub)))
	}

	// Initialize GPIO driver
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	debug.Step(1, "Initializing GPIO driver")
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		log.Fatalf("init GPIO failed: %v", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()

	// Control surfaces
	debug.Step(2, "Initializing control surfaces")
	registry, closers, err := buildSurfaces(cfg, gpioDriver)
	defer closeAll(closers)
	if err != nil {
		log.Fatalf("init surfaces failed: %v", err)
	}
	debug.Value("Groups", registry.Groups())

	// Pose sources
	debug.Step(3, "Initializing cockpits")
	cockpits, err := buildCockpits(ctx, cfg)
	if err != nil {
		log.Fatalf("init cockpits failed: %v", err)
	}

	// Metrics
	var reg *prometheus.Registry
	var m *metrics.Metrics
	if cfg.Metrics.Enable {
		reg = prometheus.NewRegistry()
		m, err = metrics.New(reg)
		if err != nil {
			log.Fatalf("init metrics failed: %v", err)
		}
	}

	debug.Step(4, "Starting autopilot")
	apCfg := autopilotConfig(cfg)
	debug.PrintStruct("Autopilot config", apCfg)
	ap := autopilot.New(apCfg, cockpits, registry, m)
	if hub != nil {
		ap.OnStatus(hub.Status)
	}

	if *console {
		go readConsole(ctx, os.Stdin, ap)
	}

	if port := webPort.port(); port > 0 {
		var gatherer prometheus.Gatherer
		if reg != nil {
			gatherer = reg
		}
		srv := web.NewServer(fmt.Sprintf(":%d", port), hub, ap, cfg, gatherer)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Printf("web server: %v", err)
				cancel()
			}
		}()
	}

	if err := ap.Run(ctx); err != nil && err != context.Canceled {
		log.Printf("autopilot: %v", err)
	}
	// Leave the surfaces neutral on the way out.
	if err := ap.Handle("stop"); err != nil {
		log.Printf("stop: %v", err)
	}
	debug.Section("Shutdown")
}

// autopilotConfig maps the file configuration onto the control loop.
func autopilotConfig(cfg *config.Config) autopilot.Config {
	gains := func(g *config.GainsConfig) autopilot.Gains {
		return autopilot.Gains{Kp: g.Kp, Ki: g.Ki, Kd: g.Kd}
	}
	return autopilot.Config{
		TickPeriod:       cfg.TickPeriod(),
		TimeStep:         cfg.TimeStep(),
		VariableTimestep: cfg.Autopilot.VariableTimestep,
		Gains: [autopilot.NumAxes]autopilot.Gains{
			autopilot.Pitch:   gains(cfg.PID.Pitch),
			autopilot.Roll:    gains(cfg.PID.Roll),
			autopilot.Bearing: gains(cfg.PID.Bearing),
		},
		Groups: [autopilot.NumAxes]string{
			autopilot.Pitch:   cfg.Groups.Pitch,
			autopilot.Roll:    cfg.Groups.Roll,
			autopilot.Bearing: cfg.Groups.Bearing,
		},
		TrimLimit:    cfg.Autopilot.TrimLimit,
		StartEnabled: cfg.Autopilot.StartEnabled,
	}
}

// commandHandler is the part of the autopilot the console drives.
type commandHandler interface {
	Handle(line string) error
}

// readConsole feeds each non-empty stdin line to h until EOF or ctx ends.
func readConsole(ctx context.Context, r io.Reader, h commandHandler) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := sc.Text()
		if line == "" {
			continue
		}
		if err := h.Handle(line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

// validateCLIOverrides checks that non-zero gain overrides are finite and positive.
// Zero values are ignored (they mean "use config default").
func validateCLIOverrides(kp, ki, kd float64) error {
	for _, g := range []struct {
		name string
		v    float64
	}{{"kp", kp}, {"ki", ki}, {"kd", kd}} {
		if g.v == 0 {
			continue
		}
		if math.IsNaN(g.v) || math.IsInf(g.v, 0) || g.v < 0 || g.v > 1000 {
			return fmt.Errorf("%s must be between 0 and 1000, got %g", g.name, g.v)
		}
	}
	return nil
}

// applyOverrides sets every axis gain that has a non-zero override.
func applyOverrides(cfg *config.Config, kp, ki, kd float64) {
	for _, g := range []**config.GainsConfig{&cfg.PID.Pitch, &cfg.PID.Roll, &cfg.PID.Bearing} {
		if *g == nil {
			*g = &config.GainsConfig{Kp: autopilot.DefaultGains.Kp}
		}
		if kp > 0 {
			(*g).Kp = kp
		}
		if ki > 0 {
			(*g).Ki = ki
		}
		if kd > 0 {
			(*g).Kd = kd
		}
	}
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
