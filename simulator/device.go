package simulator

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-clearlink/cip"
	"github.com/arloliu/go-clearlink/clearlink"
	"github.com/arloliu/go-clearlink/internal/util"
)

var (
	// ErrInjectedRead is returned by reads failed with FailReads.
	ErrInjectedRead = errors.New("simulator: injected read failure")
	// ErrInjectedWrite is returned by writes failed with FailWrites.
	ErrInjectedWrite = errors.New("simulator: injected write failure")
	// ErrUnknownAttribute is returned for a path outside the register map.
	ErrUnknownAttribute = errors.New("simulator: unknown attribute")
)

// Request is a recorded request.
type Request struct {
	Service  cip.Service
	Path     cip.Path
	Register clearlink.Register
	Axis     int
	// Value is the written value for set requests, or the returned value for successful get requests.
	Value uint32
	Err   error
}

type regKey struct {
	reg  clearlink.Register
	axis int
}

type axisState struct {
	loadHigh   bool
	ack        bool
	readsSince int
}

// Device is an in-memory ClearLink controller.
type Device struct {
	numAxes       int
	regMap        clearlink.RegisterMap
	ackDelay      int
	ackClearDelay int
	homed         bool

	regs    *xsync.MapOf[cip.Path, uint32]
	lookup  map[cip.Path]regKey
	opens   atomic.Int32
	openErr atomic.Pointer[error]

	mu         sync.Mutex
	axes       []axisState
	residual   []uint32
	stickyLoad []bool
	failReads  int
	failWrites int
	requests   []Request
}

var _ cip.Transport = (*Device)(nil)

// Option configures a Device.
type Option func(*Device)

// WithNumAxes sets the number of axes. Defaults to clearlink.MaxAxes.
func WithNumAxes(n int) Option {
	return func(d *Device) { d.numAxes = n }
}

// WithRegisterMap sets the register map the device answers on. Defaults to clearlink.DefaultRegisterMap().
func WithRegisterMap(m clearlink.RegisterMap) Option {
	return func(d *Device) { d.regMap = m }
}

// WithAckDelay sets on which status read after a rising Load bit the ack bit appears. Defaults to 1.
func WithAckDelay(reads int) Option {
	return func(d *Device) { d.ackDelay = reads }
}

// WithAckClearDelay sets on which status read after a falling Load bit the ack bit clears. Defaults to 1.
func WithAckClearDelay(reads int) Option {
	return func(d *Device) { d.ackClearDelay = reads }
}

// WithHomed makes the device report the ReadyToHome bit cleared.
func WithHomed(homed bool) Option {
	return func(d *Device) { d.homed = homed }
}

// NewDevice creates a simulated device with all registers zero.
func NewDevice(opts ...Option) *Device {
	d := &Device{
		numAxes:       clearlink.MaxAxes,
		regMap:        clearlink.DefaultRegisterMap(),
		ackDelay:      1,
		ackClearDelay: 1,
		regs:          xsync.NewMapOf[cip.Path, uint32](),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.axes = make([]axisState, d.numAxes)
	d.residual = make([]uint32, d.numAxes)
	d.stickyLoad = make([]bool, d.numAxes)
	d.lookup = make(map[cip.Path]regKey, d.numAxes*int(clearlink.ShutdownRegister))
	for axis := 1; axis <= d.numAxes; axis++ {
		for reg := clearlink.NegSoftLimit; reg <= clearlink.ShutdownRegister; reg++ {
			d.lookup[d.regMap.Path(reg, axis)] = regKey{reg: reg, axis: axis}
		}
	}

	return d
}

// Open returns a new session. It fails with the error set by SetOpenError.
func (d *Device) Open(address string) (cip.Session, error) {
	if errp := d.openErr.Load(); errp != nil && *errp != nil {
		return nil, fmt.Errorf("open %s: %w", address, *errp)
	}
	d.opens.Add(1)

	return &session{dev: d}, nil
}

// Opens returns the number of successful Open calls.
func (d *Device) Opens() int { return int(d.opens.Load()) }

// SetOpenError makes Open fail with err, nil restores it.
func (d *Device) SetOpenError(err error) {
	d.openErr.Store(&err)
}

// FailReads makes the next n reads fail.
func (d *Device) FailReads(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failReads = n
}

// FailWrites makes the next n writes fail.
func (d *Device) FailWrites(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failWrites = n
}

// SetStickyLoad makes the output register read-back of axis always report the Load bit.
func (d *Device) SetStickyLoad(axis int, sticky bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stickyLoad[axis-1] = sticky
}

// SetShutdown sets the shutdown register of axis.
func (d *Device) SetShutdown(axis int, bits uint32) {
	d.Set(clearlink.ShutdownRegister, axis, bits)
}

// SetResidualShutdown sets the shutdown bits that survive a fault clear on axis.
func (d *Device) SetResidualShutdown(axis int, bits uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.residual[axis-1] = bits
}

// SetTorque sets the measured torque of axis.
func (d *Device) SetTorque(axis int, torque float32) {
	v, _ := cip.DecodeUDINT(cip.EncodeREAL(torque))
	d.Set(clearlink.MeasuredTorque, axis, v)
}

// SetAck forces the LoadVelocityMoveAck bit of axis.
func (d *Device) SetAck(axis int, ack bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.axes[axis-1].ack = ack
	d.axes[axis-1].readsSince = 0
}

// Set stores the raw value of a register.
func (d *Device) Set(reg clearlink.Register, axis int, v uint32) {
	d.regs.Store(d.regMap.Path(reg, axis), v)
}

// Get returns the raw stored value of a register, without the status modelling of a read request.
func (d *Device) Get(reg clearlink.Register, axis int) uint32 {
	v, _ := d.regs.Load(d.regMap.Path(reg, axis))
	return v
}

// GetInt32 returns the stored value of a DINT register.
func (d *Device) GetInt32(reg clearlink.Register, axis int) int32 {
	return int32(d.Get(reg, axis)) //nolint:gosec
}

// Requests returns a copy of the recorded requests.
func (d *Device) Requests() []Request {
	d.mu.Lock()
	defer d.mu.Unlock()

	return util.Clone(d.requests)
}

// Writes returns the values written to a register in order.
func (d *Device) Writes(reg clearlink.Register, axis int) []uint32 {
	var values []uint32
	for _, req := range d.Requests() {
		if req.Service == cip.ServiceSetAttributeSingle && req.Register == reg && req.Axis == axis && req.Err == nil {
			values = append(values, req.Value)
		}
	}

	return values
}

// CountWrites returns the number of write requests sent to the device, failed ones included.
func (d *Device) CountWrites() int {
	n := 0
	for _, req := range d.Requests() {
		if req.Service == cip.ServiceSetAttributeSingle {
			n++
		}
	}

	return n
}

// ResetRequests drops the recorded requests.
func (d *Device) ResetRequests() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = nil
}

func (d *Device) handle(service cip.Service, path cip.Path, payload []byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key, ok := d.lookup[path]
	req := Request{Service: service, Path: path, Register: key.reg, Axis: key.axis}

	var (
		resp []byte
		err  error
	)
	switch {
	case !ok:
		err = fmt.Errorf("%w: %s", ErrUnknownAttribute, path)
	case service == cip.ServiceGetAttributeSingle:
		req.Value, err = d.readLocked(key, path)
		if err == nil {
			resp = cip.EncodeUDINT(req.Value)
		}
	case service == cip.ServiceSetAttributeSingle:
		req.Value, err = cip.DecodeUDINT(payload)
		if err == nil {
			err = d.writeLocked(key, path, req.Value)
		}
	default:
		err = fmt.Errorf("%w: %s", cip.ErrUnsupportedService, service)
	}

	req.Err = err
	d.requests = append(d.requests, req)

	return resp, err
}

func (d *Device) readLocked(key regKey, path cip.Path) (uint32, error) {
	if d.failReads > 0 {
		d.failReads--
		return 0, ErrInjectedRead
	}

	v, _ := d.regs.Load(path)
	switch key.reg {
	case clearlink.StatusRegister:
		return d.statusLocked(key.axis), nil
	case clearlink.OutputRegister:
		if d.stickyLoad[key.axis-1] {
			v |= clearlink.BitLoadVelocityMove
		}
	case clearlink.CommandedVelocity:
		if d.axes[key.axis-1].loadHigh {
			v, _ = d.regs.Load(d.regMap.Path(clearlink.JogVelocity, key.axis))
		} else {
			v = 0
		}
	}

	return v, nil
}

// statusLocked advances the ack model by one status read and builds the status register.
func (d *Device) statusLocked(axis int) uint32 {
	st := &d.axes[axis-1]
	st.readsSince++
	switch {
	case st.loadHigh && !st.ack && st.readsSince >= d.ackDelay:
		st.ack = true
	case !st.loadHigh && st.ack && st.readsSince >= d.ackClearDelay:
		st.ack = false
	}

	output, _ := d.regs.Load(d.regMap.Path(clearlink.OutputRegister, axis))
	jog, _ := d.regs.Load(d.regMap.Path(clearlink.JogVelocity, axis))
	shutdown, _ := d.regs.Load(d.regMap.Path(clearlink.ShutdownRegister, axis))

	var status uint32
	if output&clearlink.BitEnable != 0 {
		status |= clearlink.StatusEnabled
	}
	if st.loadHigh && jog != 0 {
		status |= clearlink.StatusStepsActive
	}
	if st.ack {
		status |= clearlink.StatusLoadVelocityMoveAck
	}
	if !d.homed {
		status |= clearlink.StatusReadyToHome
	}
	if shutdown != 0 {
		status |= clearlink.StatusShutdownsPresent
	}
	if clearlink.IsBlockingFault(shutdown) {
		status |= clearlink.StatusMotorFault
	}

	return status
}

func (d *Device) writeLocked(key regKey, path cip.Path, v uint32) error {
	if d.failWrites > 0 {
		d.failWrites--
		return ErrInjectedWrite
	}

	if key.reg.Object() == clearlink.InputObject {
		return fmt.Errorf("%w: %s is read-only", ErrUnknownAttribute, key.reg)
	}

	if key.reg == clearlink.OutputRegister {
		st := &d.axes[key.axis-1]
		load := v&clearlink.BitLoadVelocityMove != 0
		if load != st.loadHigh {
			st.loadHigh = load
			st.readsSince = 0
		}
		if v&(clearlink.BitClearAlerts|clearlink.BitClearMotorFault) != 0 {
			d.regs.Store(d.regMap.Path(clearlink.ShutdownRegister, key.axis), d.residual[key.axis-1])
		}
	}
	d.regs.Store(path, v)

	return nil
}

type session struct {
	dev    *Device
	closed atomic.Bool
}

func (s *session) Request(service cip.Service, path cip.Path, payload []byte) ([]byte, error) {
	if s.closed.Load() {
		return nil, cip.ErrSessionClosed
	}

	return s.dev.handle(service, path, payload)
}

func (s *session) Close() error {
	s.closed.Store(true)
	return nil
}
