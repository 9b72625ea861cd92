package clearlink

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/multierr"

	"github.com/arloliu/go-clearlink/logger"
)

// SetMotorEnable enables or disables axis.
//
// Enabling is idempotent. An axis that already completed an enable sequence is left untouched when
// the output shadow carries the Enable bit, otherwise only Enable is re-asserted. Running the fault
// clear sequence on an energized axis would de-energize it, so that sequence only runs the first time:
// ClearAlerts|ClearMotorFault, FaultClearSettle, 0, CommandResetSettle, Enable, EnableSettle, then the
// shutdown register is checked for blocking faults.
//
// Disabling writes 0 to the output register and clears the enabled flag.
func (d *Driver) SetMotorEnable(axis int, enable bool) *Outcome {
	if !enable {
		return d.disable(axis)
	}

	out := newOutcome(OpEnable, axis)
	if err := d.checkAxis(axis); err != nil {
		return out.fail(err)
	}
	log := d.logger.With("op", OpEnable, "axis", axis)

	if d.enabled[axis-1] {
		if d.outputReg[axis-1]&BitEnable != 0 {
			out.record(StepCheckEnabled, 0, nil)
			return out
		}

		err := d.writeOutput(axis, BitEnable)
		out.record(StepReassertEnable, 1, err)
		if err != nil {
			return out.fail(err)
		}
		log.Info("re-asserted enable bit")

		return out
	}

	d.clearSequence(out, FaultClearSettle, CommandResetSettle)

	err := d.writeOutput(axis, BitEnable)
	out.record(StepEnable, 1, err)
	if err != nil {
		return out.fail(err)
	}
	d.cfg.sleeper.Sleep(EnableSettle)

	shutdown, err := d.readRegUint32(ShutdownRegister, axis)
	out.record(StepCheckShutdown, 1, err)
	switch {
	case err != nil:
		log.Warn("shutdown register unreadable after enable", "error", err)
	case IsBlockingFault(shutdown):
		log.Warn("axis has blocking faults", "shutdown", hex32(shutdown))
		return out.fail(fmt.Errorf("%w: shutdown=%s", ErrBlockingFault, hex32(shutdown)))
	}

	d.enabled[axis-1] = true
	log.Info("axis enabled", "shutdown", hex32(shutdown))

	return out
}

func (d *Driver) disable(axis int) *Outcome {
	out := newOutcome(OpDisable, axis)
	if err := d.checkAxis(axis); err != nil {
		return out.fail(err)
	}

	err := d.writeOutput(axis, 0)
	out.record(StepDisable, 1, err)
	d.enabled[axis-1] = false
	if err != nil {
		return out.fail(err)
	}

	return out
}

// clearSequence writes the fault clear command, holds it, then resets the command register.
// Write failures are recorded on out and don't stop the sequence.
func (d *Driver) clearSequence(out *Outcome, clearSettle, resetSettle time.Duration) {
	axis := out.Axis

	out.record(StepClearCommand, 1, d.writeOutput(axis, clearFaultCommand))
	d.cfg.sleeper.Sleep(clearSettle)

	out.record(StepResetCommand, 1, d.writeOutput(axis, 0))
	d.cfg.sleeper.Sleep(resetSettle)
}

// ClearFaults pulses ClearAlerts|ClearMotorFault on axis and verifies the shutdown register reads exactly 0.
//
// The clear command stays applied when residual shutdown bits make the call fail.
func (d *Driver) ClearFaults(axis int) *Outcome {
	out := newOutcome(OpClearFaults, axis)
	if err := d.checkAxis(axis); err != nil {
		return out.fail(err)
	}

	d.clearSequence(out, FaultClearSettle, CommandResetSettle)

	shutdown, err := d.readRegUint32(ShutdownRegister, axis)
	out.record(StepCheckShutdown, 1, err)
	if err != nil {
		return out.fail(err)
	}
	if shutdown != 0 {
		d.logger.Warn("shutdown not fully cleared", "axis", axis, "shutdown", hex32(shutdown))
		return out.fail(fmt.Errorf("%w: shutdown=%s", ErrResidualShutdown, hex32(shutdown)))
	}

	return out
}

// SetVelocity writes the move parameters of axis: velocity limit |velocity|+VelocityLimitHeadroom,
// acceleration, deceleration (= accel) and the signed jog velocity.
//
// Individual write failures are recorded on the outcome and logged but don't fail the call, TriggerMove
// and status reads detect a device that didn't take the parameters. The call fails when the axis is
// invalid or the driver is disconnected.
func (d *Driver) SetVelocity(axis int, velocity int32, accel uint32) *Outcome {
	out := newOutcome(OpSetVelocity, axis)
	if err := d.checkAxis(axis); err != nil {
		return out.fail(err)
	}
	if !d.Connected() {
		return out.fail(ErrNotConnected)
	}
	log := d.logger.With("op", OpSetVelocity, "axis", axis)
	log.Debug("set velocity", "velocity", velocity, "accel", accel)

	limit := clampInt32(absInt64(int64(velocity)) + VelocityLimitHeadroom)
	acc := clampInt32(int64(accel))

	out.record(StepVelocityLimit, 1, d.writeRegInt32(VelocityLimit, axis, limit))
	out.record(StepAcceleration, 1, d.writeRegInt32(Acceleration, axis, acc))
	out.record(StepDeceleration, 1, d.writeRegInt32(Deceleration, axis, acc))
	out.record(StepJogVelocity, 1, d.writeRegInt32(JogVelocity, axis, velocity))

	if failed := out.Failed(); len(failed) > 0 {
		log.Warn("velocity parameters partially written", "failed_steps", len(failed))
	}

	if log.Level() == logger.DebugLevel {
		jog, err := d.readRegInt32(JogVelocity, axis)
		out.record(StepReadBack, 1, err)
		log.Debug("jog velocity read back", "jog_velocity", jog, "error", err)
	}

	return out
}

// TriggerMove starts or continues a velocity move on axis with the parameters written by SetVelocity.
//
// A latched shutdown makes the device ignore move commands, so a non-zero shutdown register first runs
// a short clear and re-enable sequence. A pending LoadVelocityMoveAck from the previous move is cleared
// by dropping the Load bit and polling up to TriggerAckClearAttempts times. Finally Enable|Load is
// written. The Load bit stays set afterwards, the move lasts as long as it is held.
func (d *Driver) TriggerMove(axis int) *Outcome {
	out := newOutcome(OpTriggerMove, axis)
	if err := d.checkAxis(axis); err != nil {
		return out.fail(err)
	}
	log := d.logger.With("op", OpTriggerMove, "axis", axis)

	shutdown, err := d.readRegUint32(ShutdownRegister, axis)
	out.record(StepCheckShutdown, 1, err)
	if err == nil && shutdown != 0 {
		log.Info("clearing faults before move", "shutdown", hex32(shutdown))

		var err error
		for _, cmd := range []struct {
			bits   uint32
			settle time.Duration
		}{
			{clearFaultCommand, PreflightClearSettle},
			{0, PreflightResetSettle},
			{BitEnable, PreflightEnableSettle},
		} {
			err = multierr.Append(err, d.writeOutput(axis, cmd.bits))
			d.cfg.sleeper.Sleep(cmd.settle)
		}
		out.record(StepPreflight, 3, err)
	}

	status, err := d.readRegUint32(StatusRegister, axis)
	switch {
	case err != nil:
		log.Debug("status register unreadable before trigger", "error", err)
	case status&StatusLoadVelocityMoveAck != 0:
		log.Debug("clearing pending ack before new move", "status", hex32(status))
		d.clearPendingAck(out, log, TriggerAckClearAttempts)
	}

	err = d.writeOutput(axis, moveCommand)
	out.record(StepTrigger, 1, err)
	if err != nil {
		return out.fail(err)
	}

	return out
}

// clearPendingAck drops the Load bit, keeping Enable, and waits for the device to clear its ack.
func (d *Driver) clearPendingAck(out *Outcome, log logger.Logger, attempts int) {
	if err := d.writeOutput(out.Axis, BitEnable); err != nil {
		out.record(StepClearAck, 0, err)
		return
	}

	n, ok := d.pollStatus(out.Axis, attempts, false)
	if !ok {
		out.timeout(StepClearAck, n)
		d.metrics.incHandshakeTimeoutCount()
		log.Warn("pending ack not cleared", "attempts", n)

		return
	}
	out.record(StepClearAck, n, nil)
}

// StopMotor brings axis to zero velocity and leaves it enabled.
//
// The handshake runs six best-effort steps, a timeout in one of them is logged and the next step
// still runs:
//  1. clear a pending ack from the previous move
//  2. write jog velocity 0
//  3. trigger the zero velocity move with Enable|Load
//  4. wait for the ack bit to set
//  5. clear the Load bit, keeping Enable, and verify it on the output register, up to LoadClearAttempts times
//  6. wait for the ack bit to clear
//
// A Load bit left set makes the device ignore the next jog, so the result is step 5 alone.
func (d *Driver) StopMotor(axis int) *Outcome {
	out := newOutcome(OpStop, axis)
	if err := d.checkAxis(axis); err != nil {
		return out.fail(err)
	}
	log := d.logger.With("op", OpStop, "axis", axis)

	// step 1
	if status, err := d.readRegUint32(StatusRegister, axis); err == nil && status&StatusLoadVelocityMoveAck != 0 {
		log.Info("clearing pending ack first")
		d.clearPendingAck(out, log, StopAckAttempts)
	}

	// step 2, 3
	out.record(StepZeroVelocity, 1, d.writeRegInt32(JogVelocity, axis, 0))
	out.record(StepTrigger, 1, d.writeOutput(axis, moveCommand))

	// step 4
	if n, ok := d.pollStatus(axis, StopAckAttempts, true); ok {
		out.record(StepWaitAck, n, nil)
	} else {
		out.timeout(StepWaitAck, n)
		d.metrics.incHandshakeTimeoutCount()
		log.Warn("ack not found", "attempts", n)
	}

	// step 5
	attempts, cleared := d.clearLoadBit(axis, log)
	var clearErr error
	if !cleared {
		clearErr = ErrLoadBitStuck
		log.Error("failed to clear load bit", "attempts", attempts)
	}
	out.record(StepClearLoad, attempts, clearErr)

	// step 6
	if n, ok := d.pollStatus(axis, StopAckAttempts, false); ok {
		out.record(StepWaitAckClear, n, nil)
	} else {
		out.timeout(StepWaitAckClear, n)
		d.metrics.incHandshakeTimeoutCount()
		log.Warn("status ack bit did not clear", "attempts", n)
	}

	if clearErr != nil {
		return out.fail(clearErr)
	}

	return out
}

func (d *Driver) clearLoadBit(axis int, log logger.Logger) (int, bool) {
	for attempt := 1; attempt <= LoadClearAttempts; attempt++ {
		if err := d.writeOutput(axis, BitEnable); err != nil {
			log.Warn("failed to write enable", "attempt", attempt, "error", err)
		}
		d.cfg.sleeper.Sleep(LoadClearSettle)

		reg, err := d.readRegUint32(OutputRegister, axis)
		switch {
		case err != nil:
			log.Warn("failed to read output register for verification", "attempt", attempt, "error", err)
		case reg&BitLoadVelocityMove != 0:
			log.Warn("output register still has load bit, retrying", "attempt", attempt, "output", hex32(reg))
		default:
			log.Debug("output register verified", "attempt", attempt, "output", hex32(reg))
			return attempt, true
		}
	}

	return LoadClearAttempts, false
}

// pollStatus polls the status register until the ack bit equals set.
func (d *Driver) pollStatus(axis int, attempts int, set bool) (int, bool) {
	return poll(d.cfg.sleeper, PollInterval, attempts, func() bool {
		status, err := d.readRegUint32(StatusRegister, axis)
		if err != nil {
			return false
		}

		return (status&StatusLoadVelocityMoveAck != 0) == set
	})
}

// StopAll stops every axis in order. A failing axis doesn't stop the remaining ones.
func (d *Driver) StopAll() []*Outcome {
	outcomes := make([]*Outcome, 0, d.cfg.numAxes)
	for axis := 1; axis <= d.cfg.numAxes; axis++ {
		outcomes = append(outcomes, d.StopMotor(axis))
	}

	return outcomes
}

func hex32(v uint32) string {
	return fmt.Sprintf("0x%08X", v)
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}

	return v
}

func clampInt32(v int64) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}

	return int32(v)
}
