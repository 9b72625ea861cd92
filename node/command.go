package node

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/go-clearlink/clearlink"
)

// Op is a console operation.
type Op string

const (
	OpDrive   Op = "drive"
	OpStop    Op = "stop"
	OpEnable  Op = "enable"
	OpDisable Op = "disable"
	OpClear   Op = "clear"
	OpHome    Op = "home"
	OpStatus  Op = "status"
	OpDiag    Op = "diag"
)

// ErrEmptyCommand is returned by ParseCommand for a blank line.
var ErrEmptyCommand = errors.New("empty command")

// Command is a parsed console command.
type Command struct {
	Op Op
	// Axes for enable, disable, clear and home.
	Axes []int
	// Velocities for drive, index = axis-1.
	Velocities []int32
	// Velocity for home.
	Velocity int32
	// Accel for drive and home, 0 selects the default.
	Accel uint32
}

// Result is the outcome of an executed command.
type Result struct {
	OK      bool
	Message string
}

// ParseCommand parses one console line:
//
//	drive <v1> [v2 ...] [accel=<n>]   drive the listed axes, disable the others
//	stop
//	enable <axes>
//	disable <axes>
//	clear <axes>
//	home <axes> [velocity] [accel]
//	status
//	diag
//
// Drive velocities may be separated by spaces or commas, as in "drive 100,0,-50".
// <axes> is a comma separated list such as 1,3 or "all". A "all" list is resolved by Execute.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrEmptyCommand
	}

	cmd := Command{Op: Op(strings.ToLower(fields[0]))}
	args := fields[1:]

	switch cmd.Op {
	case OpStop, OpStatus, OpDiag:
		if len(args) != 0 {
			return Command{}, fmt.Errorf("%s takes no arguments", cmd.Op)
		}

	case OpDrive:
		for _, arg := range args {
			if v, ok := strings.CutPrefix(arg, "accel="); ok {
				accel, err := strconv.ParseUint(v, 10, 32)
				if err != nil {
					return Command{}, fmt.Errorf("invalid accel %q", v)
				}
				cmd.Accel = uint32(accel)

				continue
			}

			for _, field := range strings.Split(arg, ",") {
				v, err := strconv.ParseInt(field, 10, 32)
				if err != nil {
					return Command{}, fmt.Errorf("invalid velocity %q", field)
				}
				cmd.Velocities = append(cmd.Velocities, int32(v))
			}
		}
		if len(cmd.Velocities) == 0 {
			return Command{}, errors.New("drive needs at least one velocity")
		}

	case OpEnable, OpDisable, OpClear, OpHome:
		if len(args) == 0 {
			return Command{}, fmt.Errorf("%s needs an axis list", cmd.Op)
		}
		axes, err := parseAxes(args[0])
		if err != nil {
			return Command{}, err
		}
		cmd.Axes = axes

		rest := args[1:]
		if cmd.Op != OpHome && len(rest) > 0 {
			return Command{}, fmt.Errorf("%s takes only an axis list", cmd.Op)
		}
		if len(rest) > 2 {
			return Command{}, errors.New("home takes an axis list, a velocity and an accel")
		}
		if len(rest) > 0 {
			v, err := strconv.ParseInt(rest[0], 10, 32)
			if err != nil {
				return Command{}, fmt.Errorf("invalid velocity %q", rest[0])
			}
			cmd.Velocity = int32(v)
		}
		if len(rest) > 1 {
			a, err := strconv.ParseUint(rest[1], 10, 32)
			if err != nil {
				return Command{}, fmt.Errorf("invalid accel %q", rest[1])
			}
			cmd.Accel = uint32(a)
		}

	default:
		return Command{}, fmt.Errorf("unknown command %q", fields[0])
	}

	return cmd, nil
}

// parseAxes parses "1,2,4". "all" yields a nil slice.
func parseAxes(s string) ([]int, error) {
	if strings.EqualFold(s, "all") {
		return nil, nil
	}

	var axes []int
	for _, part := range strings.Split(s, ",") {
		if part == "" {
			continue
		}
		axis, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid axis %q", part)
		}
		axes = append(axes, axis)
	}
	if len(axes) == 0 {
		return nil, fmt.Errorf("invalid axis list %q", s)
	}

	return axes, nil
}

// Execute runs cmd against the node.
func (n *Node) Execute(cmd Command) Result {
	axes := cmd.Axes
	if axes == nil {
		axes = allAxes(n.ctrl.NumAxes())
	}

	switch cmd.Op {
	case OpDrive:
		mc := MotorCommand{Acceleration: cmd.Accel}
		for _, v := range cmd.Velocities {
			mc.Axes = append(mc.Axes, AxisCommand{Enable: true, Velocity: v})
		}
		ok := n.HandleCommand(mc)

		return Result{OK: ok, Message: resultText(ok, "drive")}

	case OpStop:
		ok := n.ctrl.Stop(n.defaultAccel)
		return Result{OK: ok, Message: resultText(ok, "stop")}

	case OpEnable:
		ok := n.ctrl.EnableMotors(axes)
		return Result{OK: ok, Message: resultText(ok, "enable")}

	case OpDisable:
		ok := n.ctrl.DisableMotors(axes)
		return Result{OK: ok, Message: resultText(ok, "disable")}

	case OpClear:
		ok, msg := n.HandleClearFaults(axes)
		return Result{OK: ok, Message: msg}

	case OpHome:
		accel := cmd.Accel
		if accel == 0 {
			accel = n.defaultAccel
		}
		ok, msg := n.HandleHome(axes, cmd.Velocity, accel)

		return Result{OK: ok, Message: msg}

	case OpStatus:
		st := n.ctrl.ReadStatus()
		return Result{OK: st.Connected, Message: FormatStatus(st)}

	case OpDiag:
		d := n.ctrl.ReadDiagnostics()
		return Result{OK: d.Connected, Message: fmt.Sprintf(
			"connected=%t error=%q faults=%v commands=%d errors=%d",
			d.Connected, d.ConnectionError, d.AxisFaults, d.TotalCommandsSent, d.TotalErrors,
		)}

	default:
		return Result{Message: fmt.Sprintf("unknown command %q", cmd.Op)}
	}
}

// FormatStatus renders a controller status as one line per axis.
func FormatStatus(st clearlink.ControllerStatus) string {
	var sb strings.Builder
	if st.Connected {
		sb.WriteString("connected")
	} else {
		fmt.Fprintf(&sb, "disconnected: %s", st.ConnectionError)
	}

	for i, ax := range st.Axes {
		fmt.Fprintf(&sb, "\naxis %d: enabled=%t fault=%t moving=%t homed=%t pos=%d vel=%d torque=%.1f shutdown=0x%08X",
			i+1, ax.Enabled, ax.Fault, ax.Moving, ax.Homed, ax.Position, ax.Velocity, ax.Torque, ax.Shutdown)
	}

	return sb.String()
}

func resultText(ok bool, op string) string {
	if ok {
		return op + " ok"
	}

	return op + " failed"
}
