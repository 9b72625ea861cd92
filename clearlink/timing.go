package clearlink

import "time"

// Handshake timing. The values encode device timing observed on hardware; the device has no push
// acknowledgment so every wait is a fixed delay or a bounded poll.
const (
	// PollInterval is the delay between two reads of a bounded poll.
	PollInterval = 10 * time.Millisecond

	// FaultClearSettle is held after writing the fault clear command.
	FaultClearSettle = 300 * time.Millisecond
	// CommandResetSettle is held after writing 0 to the output register.
	CommandResetSettle = 100 * time.Millisecond
	// EnableSettle is held after writing Enable before the shutdown register is checked.
	EnableSettle = 200 * time.Millisecond

	// PreflightClearSettle, PreflightResetSettle and PreflightEnableSettle are the shorter delays of
	// the fault clear run before a move trigger.
	PreflightClearSettle  = 100 * time.Millisecond
	PreflightResetSettle  = 50 * time.Millisecond
	PreflightEnableSettle = 50 * time.Millisecond

	// LoadClearSettle is held between clearing the Load bit and reading the output register back.
	LoadClearSettle = 20 * time.Millisecond
)

// Attempt bounds.
const (
	// TriggerAckClearAttempts bounds the wait for a stale ack to clear before a trigger (100ms).
	TriggerAckClearAttempts = 10
	// StopAckAttempts bounds each ack wait of the stop handshake (500ms).
	StopAckAttempts = 50
	// LoadClearAttempts bounds the verify-then-retry loop clearing the Load bit.
	LoadClearAttempts = 3
	// MaxConsecutiveReadFailures marks the driver disconnected.
	MaxConsecutiveReadFailures = 3
)

// Motion defaults written on connect and by SetVelocity.
const (
	SoftLimitRange        int32 = 2_000_000_000
	DefaultVelocityLimit  int32 = 1_000_000
	DefaultAcceleration   int32 = 500_000
	DefaultDeceleration   int32 = 500_000
	VelocityLimitHeadroom int64 = 100_000
)

// poll evaluates cond up to attempts times, sleeping interval after every miss.
// It returns the number of evaluations and whether cond was observed.
func poll(s Sleeper, interval time.Duration, attempts int, cond func() bool) (int, bool) {
	for i := 1; i <= attempts; i++ {
		if cond() {
			return i, true
		}
		s.Sleep(interval)
	}

	return attempts, false
}
