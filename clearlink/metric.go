package clearlink

import "sync/atomic"

// DriverMetrics contains atomic metrics for a driver.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type DriverMetrics struct {
	// ReadCount indicates the number of attribute reads sent.
	ReadCount atomic.Uint64
	// ReadErrCount indicates the number of attribute reads that failed.
	ReadErrCount atomic.Uint64
	// WriteCount indicates the number of attribute writes sent.
	WriteCount atomic.Uint64
	// WriteErrCount indicates the number of attribute writes that failed.
	WriteErrCount atomic.Uint64

	// HandshakeTimeoutCount indicates the number of bounded polls that ran out.
	HandshakeTimeoutCount atomic.Uint64

	// ConnectCount indicates the number of successful connects.
	ConnectCount atomic.Uint64
	// ConnectErrCount indicates the number of failed connects.
	ConnectErrCount atomic.Uint64
	// ReconnectCount indicates the number of reconnect attempts, successful or not.
	ReconnectCount atomic.Uint64
	// LinkLossCount indicates how many times consecutive read failures marked the driver disconnected.
	LinkLossCount atomic.Uint64

	// ReadFailureGauge is the current number of consecutive read failures.
	ReadFailureGauge atomic.Uint32
}

func (m *DriverMetrics) incReadCount() {
	m.ReadCount.Add(1)
}

func (m *DriverMetrics) incReadErrCount() {
	m.ReadErrCount.Add(1)
}

func (m *DriverMetrics) incWriteCount() {
	m.WriteCount.Add(1)
}

func (m *DriverMetrics) incWriteErrCount() {
	m.WriteErrCount.Add(1)
}

func (m *DriverMetrics) incHandshakeTimeoutCount() {
	m.HandshakeTimeoutCount.Add(1)
}

func (m *DriverMetrics) incConnectCount() {
	m.ConnectCount.Add(1)
}

func (m *DriverMetrics) incConnectErrCount() {
	m.ConnectErrCount.Add(1)
}

func (m *DriverMetrics) incReconnectCount() {
	m.ReconnectCount.Add(1)
}

func (m *DriverMetrics) incLinkLossCount() {
	m.LinkLossCount.Add(1)
}
