// Package clearlink implements the protocol layer for a ClearLink style multi-axis step & direction
// motor controller reached through CIP explicit messaging.
//
// The Driver translates motor intents into register reads and writes against the device:
//
//   - Connect/Disconnect/Reconnect manage the cip.Session and initialize soft limits and default
//     motion parameters of every axis on connect.
//   - SetMotorEnable, ClearFaults, SetVelocity, TriggerMove and StopMotor run the vendor handshakes
//     built from the output command register, the status register acknowledgment bits and the
//     shutdown register.
//   - AxisStatus and AllStatus read status best-effort; a failed attribute read leaves its field at
//     the default value.
//
// Register Map:
// Registers are addressed through a RegisterMap. SharedClassMap (the default) uses one class per
// object type (config 0x64, input 0x65, output 0x66) with instance = axis. PerAxisClassMap models the
// alternate layout with one class per axis. Neither layout is confirmed by vendor documentation,
// validate against hardware before relying on bit semantics.
//
// Shadow State:
// The driver keeps a shadow of the last output register value it wrote successfully and a per-axis
// "enabled at least once" flag. The shadow is not read back from the device except where a
// handshake explicitly verifies it.
//
// Connection Loss:
// There is no heartbeat. Three consecutive transport failures on reads mark the driver disconnected
// and record the triggering error; a successful read resets the counter.
//
// Concurrency:
// Driver is not safe for concurrent use. The control package serializes every call behind a single
// mutex. Connected and ConnectionError may be called from any goroutine.
//
// Results:
// Multi-step operations return an *Outcome listing the steps that ran, how many attempts each
// needed and which failed or timed out. Writes already applied are never rolled back.
package clearlink
