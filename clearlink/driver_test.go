package clearlink_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-clearlink/cip"
	"github.com/arloliu/go-clearlink/clearlink"
	"github.com/arloliu/go-clearlink/logger"
	"github.com/arloliu/go-clearlink/simulator"
)

const testAddress = "192.168.20.240"

type sleepRecorder struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (r *sleepRecorder) Sleep(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slept = append(r.slept, d)
}

func (r *sleepRecorder) take() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	slept := r.slept
	r.slept = nil

	return slept
}

func newTestDriver(t *testing.T, dev *simulator.Device, opts ...clearlink.Option) *clearlink.Driver {
	t.Helper()

	base := []clearlink.Option{
		clearlink.WithSleeper(clearlink.NoSleep),
		clearlink.WithLogger(logger.NewMockLogger().AllowAll()),
	}
	cfg, err := clearlink.NewConfig(testAddress, append(base, opts...)...)
	require.NoError(t, err)

	d, err := clearlink.NewDriver(cfg, dev)
	require.NoError(t, err)

	return d
}

func newConnectedDriver(t *testing.T, dev *simulator.Device, opts ...clearlink.Option) *clearlink.Driver {
	t.Helper()

	d := newTestDriver(t, dev, opts...)
	require.NoError(t, d.Connect())
	dev.ResetRequests()

	return d
}

func TestNewDriver(t *testing.T) {
	require := require.New(t)

	_, err := clearlink.NewDriver(nil, simulator.NewDevice())
	require.ErrorIs(err, clearlink.ErrConfigNil)

	cfg, err := clearlink.NewConfig(testAddress)
	require.NoError(err)
	_, err = clearlink.NewDriver(cfg, nil)
	require.ErrorIs(err, clearlink.ErrTransportNil)
}

func TestDriver_Connect(t *testing.T) {
	require := require.New(t)

	t.Run("Initializes Every Axis", func(t *testing.T) {
		dev := simulator.NewDevice()
		d := newTestDriver(t, dev)
		require.False(d.Connected())

		require.NoError(d.Connect())
		require.True(d.Connected())
		require.Empty(d.ConnectionError())
		require.Equal(1, dev.Opens())
		require.Equal(5*clearlink.MaxAxes, dev.CountWrites())

		for axis := 1; axis <= clearlink.MaxAxes; axis++ {
			require.Equal(-clearlink.SoftLimitRange, dev.GetInt32(clearlink.NegSoftLimit, axis))
			require.Equal(clearlink.SoftLimitRange, dev.GetInt32(clearlink.PosSoftLimit, axis))
			require.Equal(clearlink.DefaultVelocityLimit, dev.GetInt32(clearlink.VelocityLimit, axis))
			require.Equal(clearlink.DefaultAcceleration, dev.GetInt32(clearlink.Acceleration, axis))
			require.Equal(clearlink.DefaultDeceleration, dev.GetInt32(clearlink.Deceleration, axis))
		}
		require.Equal(uint64(1), d.Metrics().ConnectCount.Load())
	})

	t.Run("Open Failure", func(t *testing.T) {
		dev := simulator.NewDevice()
		dev.SetOpenError(errors.New("connection refused"))
		d := newTestDriver(t, dev)

		err := d.Connect()
		require.Error(err)
		require.False(d.Connected())
		require.Contains(d.ConnectionError(), "connection refused")
		require.Equal(0, dev.CountWrites())
		require.Equal(uint64(1), d.Metrics().ConnectErrCount.Load())

		dev.SetOpenError(nil)
		require.NoError(d.Reconnect())
		require.True(d.Connected())
		require.Empty(d.ConnectionError())
	})

	t.Run("Disconnect Clears Enabled Flags", func(t *testing.T) {
		dev := simulator.NewDevice()
		d := newConnectedDriver(t, dev)
		require.True(d.SetMotorEnable(1, true).OK())
		require.True(d.IsEnabled(1))

		d.Disconnect()
		require.False(d.Connected())
		require.False(d.IsEnabled(1))

		require.NoError(d.Reconnect())
		require.Equal(2, dev.Opens())
		require.Equal(uint64(1), d.Metrics().ReconnectCount.Load())
		require.Equal(uint64(2), d.Metrics().ConnectCount.Load())
	})
}

func TestDriver_RoundTrip(t *testing.T) {
	require := require.New(t)

	dev := simulator.NewDevice()
	d := newConnectedDriver(t, dev)

	regs := []clearlink.Register{
		clearlink.NegSoftLimit, clearlink.PosSoftLimit, clearlink.JogVelocity,
		clearlink.VelocityLimit, clearlink.Acceleration, clearlink.Deceleration,
	}
	for axis := 1; axis <= d.NumAxes(); axis++ {
		for i, reg := range regs {
			want := int32(-1000*axis - i)
			path := d.Path(reg, axis)
			require.NoError(d.WriteInt32(path, want))

			got, err := d.ReadInt32(path)
			require.NoError(err)
			require.Equal(want, got, "%s axis %d", reg, axis)
		}

		path := d.Path(clearlink.OutputRegister, axis)
		require.NoError(d.WriteUint32(path, 0xC1))
		got, err := d.ReadUint32(path)
		require.NoError(err)
		require.Equal(uint32(0xC1), got)
	}
}

func TestDriver_ReadFailures(t *testing.T) {
	require := require.New(t)

	t.Run("Three Consecutive Failures Disconnect", func(t *testing.T) {
		dev := simulator.NewDevice()
		d := newConnectedDriver(t, dev)
		path := d.Path(clearlink.StatusRegister, 1)

		dev.FailReads(3)
		for i := 0; i < 2; i++ {
			_, err := d.ReadUint32(path)
			require.ErrorIs(err, simulator.ErrInjectedRead)

			var terr *cip.TransportError
			require.ErrorAs(err, &terr)
			require.Equal(cip.ServiceGetAttributeSingle, terr.Service)
			require.True(d.Connected())
		}

		_, err := d.ReadUint32(path)
		require.Error(err)
		require.False(d.Connected())
		require.Contains(d.ConnectionError(), "read failures: ")
		require.Contains(d.ConnectionError(), simulator.ErrInjectedRead.Error())
		require.Equal(uint64(1), d.Metrics().LinkLossCount.Load())

		requests := len(dev.Requests())
		_, err = d.ReadUint32(path)
		require.ErrorIs(err, clearlink.ErrNotConnected)
		require.ErrorIs(d.WriteUint32(path, 1), clearlink.ErrNotConnected)
		require.Len(dev.Requests(), requests)

		require.NoError(d.Reconnect())
		require.True(d.Connected())
	})

	t.Run("Successful Read Resets Counter", func(t *testing.T) {
		dev := simulator.NewDevice()
		d := newConnectedDriver(t, dev)
		path := d.Path(clearlink.ShutdownRegister, 2)

		dev.FailReads(2)
		for i := 0; i < 2; i++ {
			_, err := d.ReadUint32(path)
			require.Error(err)
		}
		require.Equal(uint32(2), d.Metrics().ReadFailureGauge.Load())

		_, err := d.ReadUint32(path)
		require.NoError(err)
		require.Equal(uint32(0), d.Metrics().ReadFailureGauge.Load())

		dev.FailReads(2)
		for i := 0; i < 2; i++ {
			_, err := d.ReadUint32(path)
			require.Error(err)
		}
		require.True(d.Connected())
		require.Empty(d.ConnectionError())
	})

	t.Run("Write Failures Do Not Disconnect", func(t *testing.T) {
		dev := simulator.NewDevice()
		d := newConnectedDriver(t, dev)

		dev.FailWrites(5)
		for i := 0; i < 5; i++ {
			require.ErrorIs(d.WriteInt32(d.Path(clearlink.JogVelocity, 1), 10), simulator.ErrInjectedWrite)
		}
		require.True(d.Connected())
		require.Equal(uint64(5), d.Metrics().WriteErrCount.Load())
	})
}

func TestDriver_InvalidAxis(t *testing.T) {
	require := require.New(t)

	dev := simulator.NewDevice()
	d := newConnectedDriver(t, dev, clearlink.WithNumAxes(2))

	for _, axis := range []int{0, 3, -1} {
		require.ErrorIs(d.SetMotorEnable(axis, true).Err, clearlink.ErrInvalidAxis)
		require.ErrorIs(d.SetMotorEnable(axis, false).Err, clearlink.ErrInvalidAxis)
		require.ErrorIs(d.ClearFaults(axis).Err, clearlink.ErrInvalidAxis)
		require.ErrorIs(d.SetVelocity(axis, 100, 100).Err, clearlink.ErrInvalidAxis)
		require.ErrorIs(d.TriggerMove(axis).Err, clearlink.ErrInvalidAxis)
		require.ErrorIs(d.StopMotor(axis).Err, clearlink.ErrInvalidAxis)
		require.False(d.IsEnabled(axis))

		_, err := d.OutputShadow(axis)
		require.ErrorIs(err, clearlink.ErrInvalidAxis)

		st := d.AxisStatus(axis)
		require.Equal(clearlink.NewAxisStatus(), st)
	}
	require.Empty(dev.Requests())
}

func TestDriver_PerAxisRegisterMap(t *testing.T) {
	require := require.New(t)

	m := clearlink.DefaultPerAxisMap()
	dev := simulator.NewDevice(simulator.WithRegisterMap(m))
	d := newConnectedDriver(t, dev, clearlink.WithRegisterMap(m))

	require.True(d.TriggerMove(3).OK())

	reqs := dev.Requests()
	last := reqs[len(reqs)-1]
	require.Equal(cip.Path{Class: 0x68, Instance: 1, Attribute: 6}, last.Path)
	require.Equal(uint32(0x11), last.Value)
}
