package node

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/arloliu/go-clearlink/clearlink"
	"github.com/arloliu/go-clearlink/control"
	"github.com/arloliu/go-clearlink/logger"
)

// ErrControllerNil indicates that a nil controller was provided.
var ErrControllerNil = errors.New("controller is nil")

// NoAxesSpecified is the message of a fault clear or home request without axes.
const NoAxesSpecified = "No axes specified"

// Status is a published status snapshot.
type Status struct {
	Time time.Time
	clearlink.ControllerStatus
}

// Publisher receives status snapshots from the status loop.
type Publisher interface {
	Publish(st Status)
}

// PublisherFunc adapts an ordinary function to the Publisher interface.
type PublisherFunc func(st Status)

// Publish calls f(st).
func (f PublisherFunc) Publish(st Status) { f(st) }

// AxisCommand is the requested state of one axis.
type AxisCommand struct {
	Enable bool
	// Velocity in steps/s, ignored for a disabled axis.
	Velocity int32
}

// MotorCommand is a velocity command for every axis, index = axis-1.
// Axes missing from Axes are disabled.
type MotorCommand struct {
	Axes []AxisCommand
	// Acceleration in steps/s², 0 selects the node default.
	Acceleration uint32
}

// Node runs a controller: status loop, reconnect, auto-enable and command translation.
type Node struct {
	ctrl      *control.Controller
	clock     clock.Clock
	logger    logger.Logger
	publisher Publisher

	loopInterval      time.Duration
	reconnectInterval time.Duration
	deadman           time.Duration
	autoEnable        bool
	defaultAccel      uint32

	reconnectLimit *rate.Limiter
	requests       chan request

	mu             sync.Mutex
	lastCommand    time.Time
	deadmanTripped bool
	firstMoveDone  bool
}

type request struct {
	cmd   Command
	reply chan Result
}

// New creates a node over ctrl.
func New(ctrl *control.Controller, opts ...Option) (*Node, error) {
	if ctrl == nil {
		return nil, ErrControllerNil
	}

	n := &Node{
		ctrl:              ctrl,
		clock:             clock.New(),
		logger:            logger.GetLogger(),
		publisher:         PublisherFunc(func(Status) {}),
		loopInterval:      DefaultLoopInterval,
		reconnectInterval: DefaultReconnectInterval,
		autoEnable:        true,
		defaultAccel:      DefaultAccel,
		requests:          make(chan request),
	}
	for _, opt := range opts {
		opt(n)
	}

	if n.clock == nil {
		return nil, errors.New("clock is nil")
	}
	if n.logger == nil {
		return nil, errors.New("logger is nil")
	}
	if n.publisher == nil {
		return nil, errors.New("publisher is nil")
	}
	if n.loopInterval <= 0 {
		return nil, errors.New("loop interval must be positive")
	}
	if n.reconnectInterval <= 0 {
		return nil, errors.New("reconnect interval must be positive")
	}
	if n.defaultAccel == 0 {
		return nil, errors.New("default acceleration must be positive")
	}

	n.logger = n.logger.With("component", "node")
	n.reconnectLimit = rate.NewLimiter(rate.Every(n.reconnectInterval), 1)
	n.lastCommand = n.clock.Now()

	return n, nil
}

// Start connects the controller and, on success, runs the auto-enable sequence.
// A failed connect is retried by the status loop.
func (n *Node) Start() bool {
	if !n.ctrl.Initialize() {
		n.logger.Error("failed to connect", "error", n.ctrl.ConnectionError())
		return false
	}
	n.logger.Info("connected")
	n.enableAll()

	return true
}

// Close stops every axis and disconnects.
func (n *Node) Close() {
	n.logger.Info("shutting down")
	n.ctrl.Shutdown()
}

// Run runs the status loop and the command loop until ctx is done.
func (n *Node) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := n.clock.Ticker(n.loopInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n.Tick()
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case req := <-n.requests:
				req.reply <- n.Execute(req.cmd)
			}
		}
	})

	return g.Wait()
}

// Submit queues cmd on the command loop of Run and waits for its result.
func (n *Node) Submit(ctx context.Context, cmd Command) (Result, error) {
	req := request{cmd: cmd, reply: make(chan Result, 1)}

	select {
	case n.requests <- req:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Tick runs one iteration of the status loop.
//
// A disconnected controller publishes a disconnected status and attempts a reconnect, at most once
// per reconnect interval. A connected one publishes a fresh status and checks the deadman.
func (n *Node) Tick() {
	now := n.clock.Now()

	if !n.ctrl.Connected() {
		st := clearlink.NewControllerStatus(n.ctrl.NumAxes())
		st.ConnectionError = n.ctrl.ConnectionError()
		if st.ConnectionError == "" {
			st.ConnectionError = "not connected"
		}
		n.publisher.Publish(Status{Time: now, ControllerStatus: st})

		if n.reconnectLimit.AllowN(now, 1) {
			n.logger.Info("attempting to reconnect")
			if n.ctrl.Reconnect() {
				n.logger.Info("reconnected")
				n.enableAll()
			} else {
				n.logger.Debug("reconnect failed", "error", n.ctrl.ConnectionError())
			}
		}

		return
	}

	n.publisher.Publish(Status{Time: now, ControllerStatus: n.ctrl.ReadStatus()})
	n.checkDeadman(now)
}

func (n *Node) checkDeadman(now time.Time) {
	if n.deadman <= 0 {
		return
	}

	n.mu.Lock()
	idle := now.Sub(n.lastCommand)
	trip := idle > n.deadman && !n.deadmanTripped
	if trip {
		n.deadmanTripped = true
	}
	n.mu.Unlock()

	if trip {
		n.logger.Warn("no command received, stopping motors", "idle", idle)
		if !n.ctrl.Stop(n.defaultAccel) {
			n.logger.Error("deadman stop failed")
		}
	}
}

// enableAll clears faults on every axis, then enables every axis.
func (n *Node) enableAll() {
	if !n.autoEnable {
		return
	}
	if !n.ctrl.Connected() {
		n.logger.Warn("cannot auto-enable, not connected")
		return
	}

	axes := allAxes(n.ctrl.NumAxes())
	if ok, msg := n.ctrl.ClearFaults(axes); !ok {
		n.logger.Warn("fault clear warning", "message", msg)
	}

	if n.ctrl.EnableMotors(axes) {
		n.logger.Info("auto-enabled motors", "axes", len(axes))
		return
	}

	if faulted := n.ctrl.ReadStatus().Faulted(); len(faulted) > 0 {
		n.logger.Warn("some axes have faults after enable attempt", "axes", faulted)
	} else {
		n.logger.Error("failed to auto-enable motors")
	}
}

// HandleCommand applies a motor command: enabled axes are enabled, velocities are driven with
// disabled axes at 0, then disabled axes are disabled. Faults on the enabled axes are cleared
// before the first move after start.
func (n *Node) HandleCommand(cmd MotorCommand) bool {
	n.mu.Lock()
	n.lastCommand = n.clock.Now()
	n.deadmanTripped = false
	firstMove := !n.firstMoveDone
	n.firstMoveDone = true
	n.mu.Unlock()

	numAxes := n.ctrl.NumAxes()
	velocities := make([]int32, numAxes)
	var enable, disable []int
	for i := range numAxes {
		if i < len(cmd.Axes) && cmd.Axes[i].Enable {
			enable = append(enable, i+1)
			velocities[i] = cmd.Axes[i].Velocity
		} else {
			disable = append(disable, i+1)
		}
	}

	if len(enable) > 0 {
		n.ctrl.EnableMotors(enable)
	}

	accel := cmd.Acceleration
	if accel == 0 {
		accel = n.defaultAccel
	}

	if firstMove && len(enable) > 0 {
		n.logger.Info("first movement, clearing faults", "axes", enable)
		n.ctrl.ClearFaults(enable)
	}

	ok := n.ctrl.DriveVelocity(velocities, accel)
	n.logger.Debug("drive velocity", "velocities", velocities, "accel", accel, "ok", ok)

	if len(disable) > 0 {
		n.ctrl.DisableMotors(disable)
	}

	return ok
}

// HandleClearFaults clears faults on axes.
func (n *Node) HandleClearFaults(axes []int) (bool, string) {
	if len(axes) == 0 {
		return false, NoAxesSpecified
	}

	return n.ctrl.ClearFaults(axes)
}

// HandleHome forwards a homing request for axes.
func (n *Node) HandleHome(axes []int, velocity int32, accel uint32) (bool, string) {
	if len(axes) == 0 {
		return false, NoAxesSpecified
	}

	return n.ctrl.Home(axes, velocity, accel)
}

func allAxes(n int) []int {
	axes := make([]int, n)
	for i := range axes {
		axes[i] = i + 1
	}

	return axes
}
