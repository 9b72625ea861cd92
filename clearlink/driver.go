package clearlink

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/arloliu/go-clearlink/cip"
	"github.com/arloliu/go-clearlink/internal/util"
	"github.com/arloliu/go-clearlink/logger"
)

// Driver is the protocol layer of a ClearLink controller.
//
// Connection state is safe for concurrent use. Axis handshakes share the cached output register
// shadow and must be serialized by the caller, control.Controller does that with a single mutex.
type Driver struct {
	cfg       *Config
	transport cip.Transport
	logger    logger.Logger
	metrics   DriverMetrics

	mu           sync.Mutex
	session      cip.Session
	connErr      string
	readFailures int
	connected    atomic.Bool

	// per-axis cached protocol state, index = axis-1
	outputReg []uint32
	enabled   []bool
}

// NewDriver creates a disconnected driver for the device described by cfg.
func NewDriver(cfg *Config, transport cip.Transport) (*Driver, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if transport == nil {
		return nil, ErrTransportNil
	}

	return &Driver{
		cfg:       cfg,
		transport: transport,
		logger:    cfg.logger.With("component", "clearlink", "address", cfg.address),
		outputReg: make([]uint32, cfg.numAxes),
		enabled:   make([]bool, cfg.numAxes),
	}, nil
}

// NumAxes returns the number of configured axes.
func (d *Driver) NumAxes() int { return d.cfg.numAxes }

// Metrics returns the driver metrics.
func (d *Driver) Metrics() *DriverMetrics { return &d.metrics }

// Connected reports whether the driver has a live session.
func (d *Driver) Connected() bool { return d.connected.Load() }

// ConnectionError returns the message of the last connection failure, empty after a successful connect.
func (d *Driver) ConnectionError() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.connErr
}

// Connect opens a session and writes the motion defaults to every axis.
//
// An open session is closed first. Failures of the default writes are logged and don't fail Connect.
func (d *Driver) Connect() error {
	d.mu.Lock()
	if d.session != nil {
		d.closeSessionLocked()
	}

	sess, err := d.transport.Open(d.cfg.address)
	if err != nil {
		d.connected.Store(false)
		d.connErr = err.Error()
		d.mu.Unlock()

		d.metrics.incConnectErrCount()
		d.logger.Error("failed to connect", "error", err)

		return fmt.Errorf("connect %s: %w", d.cfg.address, err)
	}

	d.session = sess
	d.connErr = ""
	d.readFailures = 0
	d.metrics.ReadFailureGauge.Store(0)
	d.connected.Store(true)
	d.mu.Unlock()

	d.metrics.incConnectCount()
	d.logger.Info("connected", "axes", d.cfg.numAxes, "register_map", d.cfg.regMap.Name())

	d.initAxes()

	return nil
}

// initAxes widens the soft limits so axes never stop on a limit fault, then writes default motion parameters.
func (d *Driver) initAxes() {
	var err error
	for axis := 1; axis <= d.cfg.numAxes; axis++ {
		err = multierr.Combine(err,
			d.writeRegInt32(NegSoftLimit, axis, -SoftLimitRange),
			d.writeRegInt32(PosSoftLimit, axis, SoftLimitRange),
			d.writeRegInt32(VelocityLimit, axis, DefaultVelocityLimit),
			d.writeRegInt32(Acceleration, axis, DefaultAcceleration),
			d.writeRegInt32(Deceleration, axis, DefaultDeceleration),
		)
	}

	if err != nil {
		d.logger.Warn("axis initialization incomplete", "error", err)
		return
	}
	d.logger.Info("initialized axes with wide soft limits")
}

// Disconnect closes the session, marks the driver disconnected and clears the enabled flags.
func (d *Driver) Disconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closeSessionLocked()
}

// Reconnect disconnects any stale session, then connects.
func (d *Driver) Reconnect() error {
	d.metrics.incReconnectCount()
	d.Disconnect()
	return d.Connect()
}

func (d *Driver) closeSessionLocked() {
	if d.session != nil {
		if err := d.session.Close(); err != nil {
			d.logger.Warn("failed to close session", "error", err)
		}
		d.session = nil
	}
	d.connected.Store(false)
	for i := range d.enabled {
		d.enabled[i] = false
	}
}

func (d *Driver) activeSession() (cip.Session, error) {
	if !d.connected.Load() {
		return nil, ErrNotConnected
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil, ErrNotConnected
	}

	return d.session, nil
}

// read sends a Get Attribute Single request and tracks consecutive failures.
// A failed or short response counts toward MaxConsecutiveReadFailures, a good one resets the count.
func (d *Driver) read(path cip.Path) ([]byte, error) {
	sess, err := d.activeSession()
	if err != nil {
		return nil, err
	}

	d.metrics.incReadCount()
	data, err := sess.Request(cip.ServiceGetAttributeSingle, path, nil)
	if err == nil && len(data) < cip.SizeUDINT {
		err = fmt.Errorf("%w: got %d bytes, want %d", cip.ErrShortPayload, len(data), cip.SizeUDINT)
	}
	if err != nil {
		err = cip.NewTransportError(cip.ServiceGetAttributeSingle, path, err)
		d.readFailed(err)

		return nil, err
	}

	d.mu.Lock()
	d.readFailures = 0
	d.mu.Unlock()
	d.metrics.ReadFailureGauge.Store(0)

	return data, nil
}

func (d *Driver) readFailed(err error) {
	d.metrics.incReadErrCount()
	d.logger.Error("read attribute failed", "error", err)

	d.mu.Lock()
	d.readFailures++
	failures := d.readFailures
	lost := failures >= MaxConsecutiveReadFailures && d.connected.Load()
	if lost {
		d.connected.Store(false)
		d.connErr = "read failures: " + err.Error()
	}
	d.mu.Unlock()

	d.metrics.ReadFailureGauge.Store(uint32(failures)) //nolint:gosec
	if lost {
		d.metrics.incLinkLossCount()
		d.logger.Error("too many consecutive read failures, marking disconnected", "failures", failures)
	}
}

func (d *Driver) write(path cip.Path, payload []byte) error {
	sess, err := d.activeSession()
	if err != nil {
		return err
	}

	d.metrics.incWriteCount()
	if _, err := sess.Request(cip.ServiceSetAttributeSingle, path, payload); err != nil {
		d.metrics.incWriteErrCount()
		err = cip.NewTransportError(cip.ServiceSetAttributeSingle, path, err)
		d.logger.Error("write attribute failed", "error", err)

		return err
	}

	return nil
}

// ReadInt32 reads a DINT attribute.
func (d *Driver) ReadInt32(path cip.Path) (int32, error) {
	data, err := d.read(path)
	if err != nil {
		return 0, err
	}

	return cip.DecodeDINT(data)
}

// ReadUint32 reads a UDINT attribute.
func (d *Driver) ReadUint32(path cip.Path) (uint32, error) {
	data, err := d.read(path)
	if err != nil {
		return 0, err
	}

	return cip.DecodeUDINT(data)
}

// ReadFloat32 reads a REAL attribute.
func (d *Driver) ReadFloat32(path cip.Path) (float32, error) {
	data, err := d.read(path)
	if err != nil {
		return 0, err
	}

	return cip.DecodeREAL(data)
}

// WriteInt32 writes a DINT attribute.
func (d *Driver) WriteInt32(path cip.Path, v int32) error {
	return d.write(path, cip.EncodeDINT(v))
}

// WriteUint32 writes a UDINT attribute.
func (d *Driver) WriteUint32(path cip.Path, v uint32) error {
	return d.write(path, cip.EncodeUDINT(v))
}

// Path returns the attribute path of reg for axis.
func (d *Driver) Path(reg Register, axis int) cip.Path {
	return d.cfg.regMap.Path(reg, axis)
}

func (d *Driver) readRegUint32(reg Register, axis int) (uint32, error) {
	return d.ReadUint32(d.Path(reg, axis))
}

func (d *Driver) readRegInt32(reg Register, axis int) (int32, error) {
	return d.ReadInt32(d.Path(reg, axis))
}

func (d *Driver) writeRegInt32(reg Register, axis int, v int32) error {
	return d.WriteInt32(d.Path(reg, axis), v)
}

// writeOutput writes the output command register and updates the shadow on success.
func (d *Driver) writeOutput(axis int, bits uint32) error {
	if err := d.WriteUint32(d.Path(OutputRegister, axis), bits); err != nil {
		return err
	}
	d.outputReg[axis-1] = bits

	return nil
}

func (d *Driver) checkAxis(axis int) error {
	if axis < 1 || axis > d.cfg.numAxes {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidAxis, axis, d.cfg.numAxes)
	}

	return nil
}

// OutputShadow returns the last output register value successfully written to axis.
func (d *Driver) OutputShadow(axis int) (uint32, error) {
	if err := d.checkAxis(axis); err != nil {
		return 0, err
	}

	return d.outputReg[axis-1], nil
}

// OutputShadows returns a copy of the output register shadow of every axis.
func (d *Driver) OutputShadows() []uint32 {
	return util.Clone(d.outputReg)
}

// IsEnabled reports whether axis completed an enable sequence since the last disable or disconnect.
func (d *Driver) IsEnabled(axis int) bool {
	if d.checkAxis(axis) != nil {
		return false
	}

	return d.enabled[axis-1]
}
