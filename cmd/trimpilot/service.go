package main

import (
	"github.com/takama/daemon"
)

const (
	serviceName        = "trimpilot"
	serviceDescription = "TrimPilot attitude-hold autopilot"
)

// serviceManager is the subset of daemon.Daemon used by the subcommands.
type serviceManager interface {
	Install(args ...string) (string, error)
	Remove() (string, error)
	Start() (string, error)
	Stop() (string, error)
	Status() (string, error)
}

var newServiceManager = func() (serviceManager, error) {
	return daemon.New(serviceName, serviceDescription, daemon.SystemDaemon)
}

func serviceUsage() string {
	return "Usage: " + serviceName + " [flags] install | remove | start | stop | status"
}

// manageService runs one service subcommand. Flags given alongside
// "install" are passed to the installed unit.
func manageService(cmd string, installArgs ...string) (string, error) {
	if !isServiceCommand(cmd) {
		return serviceUsage(), nil
	}
	srv, err := newServiceManager()
	if err != nil {
		return "service", err
	}
	switch cmd {
	case "install":
		return srv.Install(installArgs...)
	case "remove":
		return srv.Remove()
	case "start":
		return srv.Start()
	case "stop":
		return srv.Stop()
	default:
		return srv.Status()
	}
}

func isServiceCommand(cmd string) bool {
	switch cmd {
	case "install", "remove", "start", "stop", "status":
		return true
	}
	return false
}
