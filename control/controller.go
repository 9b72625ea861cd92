package control

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-clearlink/clearlink"
	"github.com/arloliu/go-clearlink/internal/util"
	"github.com/arloliu/go-clearlink/logger"
)

// ErrDriverNil indicates that a nil driver was provided.
var ErrDriverNil = errors.New("driver is nil")

// HomingNotImplemented is the message returned by Home.
const HomingNotImplemented = "homing initiated (not implemented)"

// Metrics contains the lifetime counters of a Controller.
type Metrics struct {
	// CommandsSent counts per-axis operations that succeeded.
	CommandsSent atomic.Uint64
	// Errors counts per-axis operations that failed.
	Errors atomic.Uint64
}

// Diagnostics is a snapshot of controller health.
type Diagnostics struct {
	Connected         bool
	ConnectionError   string
	AxisFaults        []bool
	TotalCommandsSent uint64
	TotalErrors       uint64
}

// Controller is the control layer over a clearlink.Driver.
type Controller struct {
	mu     sync.Mutex
	driver *clearlink.Driver
	logger logger.Logger

	// lastVelocities caches the last velocity accepted per axis, index = axis-1
	lastVelocities []int32
	metrics        Metrics
}

// NewController creates a controller over driver. A nil logger selects logger.GetLogger().
func NewController(driver *clearlink.Driver, l logger.Logger) (*Controller, error) {
	if driver == nil {
		return nil, ErrDriverNil
	}
	if l == nil {
		l = logger.GetLogger()
	}

	return &Controller{
		driver:         driver,
		logger:         l.With("component", "control"),
		lastVelocities: make([]int32, driver.NumAxes()),
	}, nil
}

// NumAxes returns the number of configured axes.
func (c *Controller) NumAxes() int { return c.driver.NumAxes() }

// Metrics returns the controller counters.
func (c *Controller) Metrics() *Metrics { return &c.metrics }

// Connected reports whether the driver has a live session.
func (c *Controller) Connected() bool { return c.driver.Connected() }

// ConnectionError returns the last connection error message.
func (c *Controller) ConnectionError() string { return c.driver.ConnectionError() }

// Initialize connects to the controller.
func (c *Controller) Initialize() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.driver.Connect(); err != nil {
		return false
	}
	c.logger.Info("controller initialized")

	return true
}

// Reconnect drops the current session and connects again.
func (c *Controller) Reconnect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.driver.Reconnect(); err != nil {
		return false
	}
	c.logger.Info("controller reconnected")

	return true
}

// Shutdown stops every axis, then disconnects.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.driver.Connected() {
		if !clearlink.AllOK(c.driver.StopAll()) {
			c.logger.Warn("not every axis stopped before shutdown")
		}
	}
	c.driver.Disconnect()
	c.logger.Info("controller shutdown")
}

// EnableMotors enables axes. It returns true only when every axis was enabled.
func (c *Controller) EnableMotors(axes []int) bool {
	return c.setEnable(axes, true)
}

// DisableMotors disables axes. It returns true only when every axis was disabled.
func (c *Controller) DisableMotors(axes []int) bool {
	return c.setEnable(axes, false)
}

func (c *Controller) setEnable(axes []int, enable bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	success := true
	for _, axis := range axes {
		if out := c.driver.SetMotorEnable(axis, enable); !c.account(out) {
			success = false
		}
	}

	return success
}

// DriveVelocity commands velocities[i] on axis i+1 with accel.
//
// A non-zero velocity equal to the last accepted one is skipped without device traffic. A zero
// velocity always runs the stop handshake, so a failed stop is retried by the next zero command.
// Entries past the configured axis count are ignored. Processing continues after a failing axis.
func (c *Controller) DriveVelocity(velocities []int32, accel uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	success := true
	for i, v := range velocities {
		axis := i + 1
		if axis > len(c.lastVelocities) {
			break
		}

		last := c.lastVelocities[i]
		if v != 0 && v == last {
			c.logger.Debug("velocity unchanged, skipping", "axis", axis, "velocity", v)
			continue
		}
		c.logger.Debug("velocity change", "axis", axis, "from", last, "to", v)

		if v == 0 {
			if !c.account(c.driver.StopMotor(axis)) {
				success = false
				continue
			}
			c.lastVelocities[i] = 0

			continue
		}

		if out := c.driver.SetVelocity(axis, v, accel); !out.OK() {
			c.account(out)
			success = false

			continue
		}
		if !c.account(c.driver.TriggerMove(axis)) {
			success = false
			continue
		}
		c.lastVelocities[i] = v
	}

	return success
}

// Stop stops every axis. decel is accepted for API compatibility, the stop handshake uses the
// deceleration already configured on each axis.
func (c *Controller) Stop(decel uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debug("stop all axes", "decel", decel)
	if !clearlink.AllOK(c.driver.StopAll()) {
		c.metrics.Errors.Add(1)
		c.logger.Error("failed to stop every axis")

		return false
	}

	for i := range c.lastVelocities {
		c.lastVelocities[i] = 0
	}
	c.metrics.CommandsSent.Add(1)

	return true
}

// ClearFaults clears faults on axes. The message lists the cleared axes, or the failed ones.
func (c *Controller) ClearFaults(axes []int) (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var cleared, failed []int
	for _, axis := range axes {
		if c.account(c.driver.ClearFaults(axis)) {
			cleared = append(cleared, axis)
		} else {
			failed = append(failed, axis)
		}
	}

	if len(failed) > 0 {
		return false, "Failed to clear faults on axes: " + joinAxes(failed)
	}

	return true, "Cleared faults on axes: " + joinAxes(cleared)
}

// Home is not implemented. It logs the request and reports success without contacting the device.
func (c *Controller) Home(axes []int, velocity int32, accel uint32) (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info("homing requested", "axes", joinAxes(axes), "velocity", velocity, "accel", accel)

	return true, HomingNotImplemented
}

// ReadStatus returns a fresh controller status.
func (c *Controller) ReadStatus() clearlink.ControllerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.driver.AllStatus()
}

// ReadDiagnostics returns the counters and fault flags from a fresh status read.
func (c *Controller) ReadDiagnostics() Diagnostics {
	st := c.ReadStatus()

	faults := make([]bool, len(st.Axes))
	for i, ax := range st.Axes {
		faults[i] = ax.Fault
	}

	return Diagnostics{
		Connected:         st.Connected,
		ConnectionError:   st.ConnectionError,
		AxisFaults:        faults,
		TotalCommandsSent: c.metrics.CommandsSent.Load(),
		TotalErrors:       c.metrics.Errors.Load(),
	}
}

// LastVelocities returns a copy of the cached velocities.
func (c *Controller) LastVelocities() []int32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return util.Clone(c.lastVelocities)
}

// account updates the counters from out and logs a failure.
func (c *Controller) account(out *clearlink.Outcome) bool {
	if out.OK() {
		c.metrics.CommandsSent.Add(1)
		return true
	}

	c.metrics.Errors.Add(1)
	c.logger.Error("axis operation failed", "op", out.Op, "axis", out.Axis, "error", out.Err, "outcome", out.String())

	return false
}

func joinAxes(axes []int) string {
	s := make([]string, len(axes))
	for i, axis := range axes {
		s[i] = strconv.Itoa(axis)
	}

	return strings.Join(s, ", ")
}
