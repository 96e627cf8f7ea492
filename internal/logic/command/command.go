// Package command parses the operator's textual autopilot commands.
package command

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/shlex"
)

// Kind identifies a command.
type Kind int

const (
	Start Kind = iota
	Stop
	Refresh
	Set
	Add
	Sub
	Reset
	Debug
)

var kindNames = [...]string{"start", "stop", "refresh", "set", "add", "sub", "reset", "debug"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// AllAxes is the target of "reset all".
const AllAxes = "all"

// Command is one parsed operator command. Axis is lower-case; Value is
// only meaningful for Set, Add and Sub.
type Command struct {
	Kind  Kind
	Axis  string
	Value float64
}

func (c Command) String() string {
	switch c.Kind {
	case Set, Add, Sub:
		return fmt.Sprintf("%s %s %g", c.Kind, c.Axis, c.Value)
	case Reset:
		return fmt.Sprintf("%s %s", c.Kind, c.Axis)
	}
	return c.Kind.String()
}

// Axes lists the accepted axis names.
var Axes = []string{"pitch", "roll", "bearing"}

func validAxis(s string) bool {
	for _, a := range Axes {
		if a == s {
			return true
		}
	}
	return false
}

// Parse tokenises line and decodes a command. Keywords and axis names are
// case-insensitive.
func Parse(line string) (Command, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return Command{}, fmt.Errorf("tokenise %q: %w", line, err)
	}
	if len(args) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}
	for i := range args {
		args[i] = strings.ToLower(args[i])
	}

	switch args[0] {
	case "start", "on":
		return Command{Kind: Start}, nil
	case "stop", "off":
		return Command{Kind: Stop}, nil
	case "refresh":
		return Command{Kind: Refresh}, nil
	case "debug":
		return Command{Kind: Debug}, nil
	case "reset":
		if len(args) < 2 {
			return Command{}, fmt.Errorf("reset: missing axis")
		}
		if args[1] != AllAxes && !validAxis(args[1]) {
			return Command{}, fmt.Errorf("reset: unknown axis %q", args[1])
		}
		return Command{Kind: Reset, Axis: args[1]}, nil
	case "set", "add", "sub":
		kind := map[string]Kind{"set": Set, "add": Add, "sub": Sub}[args[0]]
		if len(args) < 3 {
			return Command{}, fmt.Errorf("%s: expected <axis> <value>", args[0])
		}
		if !validAxis(args[1]) {
			return Command{}, fmt.Errorf("%s: unknown axis %q", args[0], args[1])
		}
		v, err := strconv.ParseFloat(args[2], 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Command{}, fmt.Errorf("%s %s: invalid value %q", args[0], args[1], args[2])
		}
		return Command{Kind: kind, Axis: args[1], Value: v}, nil
	}
	return Command{}, fmt.Errorf("unknown command %q", args[0])
}
