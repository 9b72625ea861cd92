package clearlink

import "errors"

var (
	// ErrConfigNil indicates that a nil Config was provided.
	ErrConfigNil = errors.New("config is nil")

	// ErrTransportNil indicates that a nil cip.Transport was provided.
	ErrTransportNil = errors.New("transport is nil")
)

var (
	// ErrInvalidAxis indicates an axis index outside [1, NumAxes]. The device is not contacted.
	ErrInvalidAxis = errors.New("invalid axis")

	// ErrNotConnected indicates that the driver has no open session.
	ErrNotConnected = errors.New("not connected")
)

var (
	// ErrHandshakeTimeout indicates that a bounded poll ran out without observing the expected bit.
	// It is recorded on the step and logged as a warning, it is never fatal on its own.
	ErrHandshakeTimeout = errors.New("handshake timeout")

	// ErrBlockingFault indicates a shutdown register bit outside NonBlockingShutdownMask.
	ErrBlockingFault = errors.New("blocking fault present")

	// ErrResidualShutdown indicates shutdown bits that remained set after a fault clear.
	ErrResidualShutdown = errors.New("shutdown register not cleared")

	// ErrLoadBitStuck indicates that the Load Velocity Move bit could not be verified cleared after a stop.
	ErrLoadBitStuck = errors.New("load velocity move bit not cleared")
)
