// Package simulator provides an in-memory ClearLink device that implements cip.Transport.
//
// The device answers Get/Set Attribute Single requests against a register store and models the
// parts of the firmware the protocol handshakes depend on:
//
//   - the Enable output bit is echoed into the Enabled status bit
//   - the LoadVelocityMoveAck status bit sets a configurable number of status reads after a rising
//     Load bit and clears a configurable number of status reads after a falling one
//   - the fault clear command resets the shutdown register to a configurable residual value
//   - the axis reports moving while Load is held with a non-zero jog velocity
//
// Faults can be injected: failing Open, failing the next N reads or writes, and an output register
// whose read-back never drops the Load bit. Every request is recorded for assertions.
package simulator
