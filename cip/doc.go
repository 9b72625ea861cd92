// Package cip defines the explicit messaging boundary used to talk to a CIP device over EtherNet/IP.
//
// The package does not implement the encapsulation protocol itself. It describes the capability the
// motor driver consumes:
//
//   - Transport opens a Session to a device address.
//   - Session issues Get/Set Attribute Single requests addressed by class, instance and attribute,
//     exchanging raw little-endian payloads.
//
// Payload helpers encode and decode the three elementary types used by the ClearLink register map:
// DINT (signed 32-bit), UDINT (unsigned 32-bit) and REAL (IEEE-754 32-bit float), all little-endian.
//
// GologixTransport implements Transport on top of github.com/danomagnum/gologix. Tests and the
// simulate mode of the daemon use the in-memory device from the simulator package instead.
package cip
