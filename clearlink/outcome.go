package clearlink

import (
	"fmt"
	"strings"
)

// Operation names recorded on an Outcome.
const (
	OpEnable      = "enable"
	OpDisable     = "disable"
	OpClearFaults = "clear-faults"
	OpSetVelocity = "set-velocity"
	OpTriggerMove = "trigger-move"
	OpStop        = "stop"
)

// Step names recorded on an Outcome.
const (
	StepCheckEnabled   = "check-enabled"
	StepReassertEnable = "reassert-enable"
	StepClearCommand   = "clear-command"
	StepResetCommand   = "reset-command"
	StepEnable         = "enable"
	StepCheckShutdown  = "check-shutdown"
	StepDisable        = "disable"

	StepVelocityLimit = "velocity-limit"
	StepAcceleration  = "acceleration"
	StepDeceleration  = "deceleration"
	StepJogVelocity   = "jog-velocity"
	StepReadBack      = "read-back"

	StepPreflight    = "preflight"
	StepClearAck     = "clear-ack"
	StepTrigger      = "trigger"
	StepZeroVelocity = "zero-velocity"
	StepWaitAck      = "wait-ack"
	StepClearLoad    = "clear-load"
	StepWaitAckClear = "wait-ack-clear"
)

// Step is one completed step of a multi-step operation.
type Step struct {
	Name string
	// Attempts is the number of device reads or write attempts the step performed.
	Attempts int
	// TimedOut is set when a bounded poll ran out without observing the expected bit.
	TimedOut bool
	// Err holds the error of the step. A timed out step carries ErrHandshakeTimeout.
	Err error
}

// Outcome is the structured result of a multi-step axis operation.
//
// Steps are recorded in execution order. Writes applied by completed steps are never rolled back,
// so a failed Outcome describes how far the device state was changed.
type Outcome struct {
	Op    string
	Axis  int
	Steps []Step
	// Err is the overall error, nil when the operation succeeded.
	Err error
}

func newOutcome(op string, axis int) *Outcome {
	return &Outcome{Op: op, Axis: axis}
}

// OK reports whether the operation succeeded.
func (o *Outcome) OK() bool {
	return o != nil && o.Err == nil
}

// Step returns the last recorded step with the given name.
func (o *Outcome) Step(name string) (Step, bool) {
	for i := len(o.Steps) - 1; i >= 0; i-- {
		if o.Steps[i].Name == name {
			return o.Steps[i], true
		}
	}

	return Step{}, false
}

// Failed returns the steps that carry an error.
func (o *Outcome) Failed() []Step {
	var steps []Step
	for _, s := range o.Steps {
		if s.Err != nil {
			steps = append(steps, s)
		}
	}

	return steps
}

// String returns a one line summary of the outcome.
func (o *Outcome) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s axis=%d", o.Op, o.Axis)
	if o.Err != nil {
		fmt.Fprintf(&sb, " error=%q", o.Err.Error())
	} else {
		sb.WriteString(" ok")
	}

	names := make([]string, 0, len(o.Steps))
	for _, s := range o.Steps {
		switch {
		case s.TimedOut:
			names = append(names, s.Name+"(timeout)")
		case s.Err != nil:
			names = append(names, s.Name+"(error)")
		default:
			names = append(names, s.Name)
		}
	}
	fmt.Fprintf(&sb, " steps=[%s]", strings.Join(names, " "))

	return sb.String()
}

func (o *Outcome) record(name string, attempts int, err error) {
	o.Steps = append(o.Steps, Step{Name: name, Attempts: attempts, Err: err})
}

func (o *Outcome) timeout(name string, attempts int) {
	o.Steps = append(o.Steps, Step{Name: name, Attempts: attempts, TimedOut: true, Err: ErrHandshakeTimeout})
}

func (o *Outcome) fail(err error) *Outcome {
	o.Err = err
	return o
}

// AllOK reports whether every outcome succeeded.
func AllOK(outcomes []*Outcome) bool {
	for _, o := range outcomes {
		if !o.OK() {
			return false
		}
	}

	return true
}
