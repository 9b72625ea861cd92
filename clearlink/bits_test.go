package clearlink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-clearlink/cip"
)

func TestShutdownClassification(t *testing.T) {
	require := require.New(t)

	require.Equal(uint32(0x421), NonBlockingShutdownMask)

	tests := []struct {
		shutdown uint32
		blocking bool
	}{
		{0, false},
		{ShutdownTrackingError, false},
		{ShutdownMotorDisabled, false},
		{ShutdownInformational, false},
		{NonBlockingShutdownMask, false},
		{0x002, true},
		{NonBlockingShutdownMask | 0x002, true},
		{0x800, true},
		{1 << 31, true},
	}
	for _, tt := range tests {
		require.Equal(tt.blocking, IsBlockingFault(tt.shutdown), "shutdown=0x%X", tt.shutdown)
	}

	require.Equal(uint32(0x802), BlockingFaults(0xC23))
}

func TestCommandBits(t *testing.T) {
	require := require.New(t)

	require.Equal(uint32(0xC0), clearFaultCommand)
	require.Equal(uint32(0x11), moveCommand)
	require.Equal(uint32(0x100000), StatusLoadVelocityMoveAck)
	require.Equal(uint32(0x400), StatusEnabled)
}

func TestRegisterMap(t *testing.T) {
	require := require.New(t)

	t.Run("Shared", func(t *testing.T) {
		m := DefaultRegisterMap()
		tests := []struct {
			reg  Register
			want cip.Path
		}{
			{NegSoftLimit, cip.Path{Class: 0x64, Instance: 3, Attribute: 1}},
			{PosSoftLimit, cip.Path{Class: 0x64, Instance: 3, Attribute: 2}},
			{JogVelocity, cip.Path{Class: 0x66, Instance: 3, Attribute: 2}},
			{VelocityLimit, cip.Path{Class: 0x66, Instance: 3, Attribute: 3}},
			{Acceleration, cip.Path{Class: 0x66, Instance: 3, Attribute: 4}},
			{Deceleration, cip.Path{Class: 0x66, Instance: 3, Attribute: 5}},
			{OutputRegister, cip.Path{Class: 0x66, Instance: 3, Attribute: 6}},
			{CommandedPosition, cip.Path{Class: 0x65, Instance: 3, Attribute: 1}},
			{CommandedVelocity, cip.Path{Class: 0x65, Instance: 3, Attribute: 2}},
			{MeasuredTorque, cip.Path{Class: 0x65, Instance: 3, Attribute: 6}},
			{StatusRegister, cip.Path{Class: 0x65, Instance: 3, Attribute: 7}},
			{ShutdownRegister, cip.Path{Class: 0x65, Instance: 3, Attribute: 8}},
		}
		for _, tt := range tests {
			require.Equal(tt.want, m.Path(tt.reg, 3), tt.reg.String())
		}
	})

	t.Run("Per Axis", func(t *testing.T) {
		m := DefaultPerAxisMap()
		require.Equal(cip.Path{Class: 0x66, Instance: 1, Attribute: 6}, m.Path(OutputRegister, 1))
		require.Equal(cip.Path{Class: 0x69, Instance: 1, Attribute: 6}, m.Path(OutputRegister, 4))
		require.Equal(cip.Path{Class: 0x6A, Instance: 1, Attribute: 7}, m.Path(StatusRegister, 1))
		require.Equal(cip.Path{Class: 0x6D, Instance: 1, Attribute: 8}, m.Path(ShutdownRegister, 4))
		require.Equal(cip.Path{Class: 0x64, Instance: 2, Attribute: 1}, m.Path(NegSoftLimit, 2))
	})

	t.Run("Attribute Override", func(t *testing.T) {
		m := DefaultRegisterMap()
		m.Attributes = map[Register]uint8{StatusRegister: 9}
		require.Equal(uint8(9), m.Path(StatusRegister, 1).Attribute)
		require.Equal(uint8(8), m.Path(ShutdownRegister, 1).Attribute)
	})

	t.Run("By Name", func(t *testing.T) {
		m, err := RegisterMapByName("")
		require.NoError(err)
		require.Equal(SharedClassMapName, m.Name())

		m, err = RegisterMapByName("per_axis")
		require.NoError(err)
		require.Equal(PerAxisClassMapName, m.Name())

		_, err = RegisterMapByName("per-class")
		require.EqualError(err, `unknown register map "per-class"`)
	})

	t.Run("Objects", func(t *testing.T) {
		require.Equal(ConfigObject, PosSoftLimit.Object())
		require.Equal(OutputObject, JogVelocity.Object())
		require.Equal(InputObject, MeasuredTorque.Object())
		require.Equal("register(99)", Register(99).String())
	})
}

func TestPoll(t *testing.T) {
	require := require.New(t)

	var slept []time.Duration
	s := SleeperFunc(func(d time.Duration) { slept = append(slept, d) })

	t.Run("Observed On Third Read", func(t *testing.T) {
		slept = nil
		calls := 0
		n, ok := poll(s, PollInterval, StopAckAttempts, func() bool {
			calls++
			return calls == 3
		})
		require.True(ok)
		require.Equal(3, n)
		require.Equal([]time.Duration{PollInterval, PollInterval}, slept)
	})

	t.Run("Timeout", func(t *testing.T) {
		slept = nil
		n, ok := poll(s, PollInterval, TriggerAckClearAttempts, func() bool { return false })
		require.False(ok)
		require.Equal(TriggerAckClearAttempts, n)
		require.Len(slept, TriggerAckClearAttempts)
	})
}

func TestOutcome(t *testing.T) {
	require := require.New(t)

	out := newOutcome(OpStop, 2)
	out.record(StepZeroVelocity, 1, nil)
	out.timeout(StepWaitAck, StopAckAttempts)
	out.record(StepClearLoad, 1, nil)
	require.True(out.OK())
	require.Len(out.Failed(), 1)

	step, ok := out.Step(StepWaitAck)
	require.True(ok)
	require.True(step.TimedOut)
	require.ErrorIs(step.Err, ErrHandshakeTimeout)
	require.Equal(StopAckAttempts, step.Attempts)

	_, ok = out.Step(StepPreflight)
	require.False(ok)

	require.Equal("stop axis=2 ok steps=[zero-velocity wait-ack(timeout) clear-load]", out.String())

	out.fail(ErrLoadBitStuck)
	require.False(out.OK())
	require.False(AllOK([]*Outcome{newOutcome(OpStop, 1), out}))
	require.True(AllOK([]*Outcome{newOutcome(OpStop, 1)}))

	var nilOutcome *Outcome
	require.False(nilOutcome.OK())
}
