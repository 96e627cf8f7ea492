package main

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/golang/geo/r3"

	"github.com/cjeanneret/TrimPilot/internal/config"
	"github.com/cjeanneret/TrimPilot/internal/debug"
	"github.com/cjeanneret/TrimPilot/internal/hw/gpio"
	"github.com/cjeanneret/TrimPilot/internal/hw/maestro"
	"github.com/cjeanneret/TrimPilot/internal/hw/pose"
	"github.com/cjeanneret/TrimPilot/internal/hw/servo"
	"github.com/cjeanneret/TrimPilot/internal/hw/surface"
	"github.com/cjeanneret/TrimPilot/internal/logic/attitude"
)

// openMaestro is replaced in tests.
var openMaestro = maestro.Open

// buildSurfaces creates one device per configured surface and registers it
// under its groups. The returned closers release servo power and serial
// ports; they are returned even on error so that partial setups are undone.
func buildSurfaces(cfg *config.Config, g gpio.Driver) (*surface.Registry, []io.Closer, error) {
	reg := surface.NewRegistry()
	var closers []io.Closer
	cal := servo.Calibration{
		CenterUs:  cfg.Servo.CenterUs,
		SpanUs:    cfg.Servo.SpanUs,
		TrimLimit: surface.TrimLimit,
	}

	var ctrl *maestro.Controller
	for _, sc := range cfg.Surfaces {
		var out surface.Output
		switch sc.Backend {
		case config.BackendPWM:
			s, err := servo.NewServo(g, servo.Config{
				Pin:         sc.Pin,
				EnablePin:   sc.EnablePin,
				FrequencyHz: cfg.Servo.FrequencyHz,
				Calibration: cal,
			})
			if err != nil {
				return reg, closers, fmt.Errorf("surface %s: %w", sc.Name, err)
			}
			closers = append(closers, s)
			out = s
		case config.BackendMaestro:
			if ctrl == nil {
				c, err := openMaestro(cfg.Maestro.Port, cfg.Maestro.Baud)
				if err != nil {
					return reg, closers, fmt.Errorf("surface %s: %w", sc.Name, err)
				}
				closers = append(closers, c)
				ctrl = c
			}
			ch, err := ctrl.Channel(sc.Channel, cal)
			if err != nil {
				return reg, closers, fmt.Errorf("surface %s: %w", sc.Name, err)
			}
			out = ch
		default:
			out = surface.NopOutput{}
		}

		dev := surface.NewDevice(sc.Name, out)
		dev.SetBool(surface.PropInvertPitch, sc.InvertPitch)
		dev.SetBool(surface.PropInvertRoll, sc.InvertRoll)
		dev.SetBool(surface.PropInvertYaw, sc.InvertYaw)
		reg.Add(dev, sc.Groups...)
		debug.Info("Surface %s (%s) in %v", sc.Name, sc.Backend, sc.Groups)
	}
	return reg, closers, nil
}

// buildCockpits creates the pose sources in configuration order and starts
// the UDP listeners. Listeners stop when ctx is cancelled.
func buildCockpits(ctx context.Context, cfg *config.Config) ([]pose.Cockpit, error) {
	vec := func(a [3]float64) r3.Vector { return r3.Vector{X: a[0], Y: a[1], Z: a[2]} }

	cockpits := make([]pose.Cockpit, 0, len(cfg.Cockpits))
	for _, ck := range cfg.Cockpits {
		switch ck.Source {
		case config.SourceUDP:
			src, err := pose.NewUDPSource(pose.UDPConfig{
				Name:       ck.Name,
				Listen:     ck.Listen,
				Main:       ck.Main,
				StaleAfter: ck.StaleAfter(),
			})
			if err != nil {
				return nil, fmt.Errorf("cockpit %s: %w", ck.Name, err)
			}
			if err := src.Start(ctx); err != nil {
				return nil, fmt.Errorf("cockpit %s: %w", ck.Name, err)
			}
			cockpits = append(cockpits, src)
		default:
			cockpits = append(cockpits, pose.NewStatic(ck.Name, ck.Main, pose.Sample{
				Frame:   attitude.Frame{Forward: vec(ck.Forward), Up: vec(ck.Up)},
				Gravity: vec(ck.Gravity),
			}))
		}
		debug.Info("Cockpit %s (%s) main=%v", ck.Name, ck.Source, ck.Main)
	}
	return cockpits, nil
}

func closeAll(closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			log.Printf("close: %v", err)
		}
	}
}
