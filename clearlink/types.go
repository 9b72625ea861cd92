package clearlink

// TorqueUnavailable is reported by the device, and kept as default, when torque can't be measured.
const TorqueUnavailable float32 = -9999

// Digital I/O points reported in ControllerStatus.
const NumDigitalIO = 13

// AxisStatus is a fresh snapshot of one axis.
type AxisStatus struct {
	Enabled bool
	Fault   bool
	Moving  bool
	Homed   bool
	// Position is the commanded position in steps.
	Position int32
	// Velocity is the commanded velocity in steps/s.
	Velocity int32
	// Torque is the measured torque in percent, TorqueUnavailable when not available.
	Torque float32
	// Shutdown is the raw shutdown register.
	Shutdown uint32
}

// NewAxisStatus returns the default status used when a read fails.
func NewAxisStatus() AxisStatus {
	return AxisStatus{Torque: TorqueUnavailable}
}

// ControllerStatus is a snapshot of the whole controller.
type ControllerStatus struct {
	Connected       bool
	ConnectionError string
	Axes            []AxisStatus
	DigitalInputs   []bool
	DigitalOutputs  []bool
	FirmwareVersion string
	SupplyVoltage   float32
}

// NewControllerStatus returns a disconnected status with numAxes default axes.
func NewControllerStatus(numAxes int) ControllerStatus {
	st := ControllerStatus{
		Axes:           make([]AxisStatus, numAxes),
		DigitalInputs:  make([]bool, NumDigitalIO),
		DigitalOutputs: make([]bool, NumDigitalIO),
	}
	for i := range st.Axes {
		st.Axes[i] = NewAxisStatus()
	}

	return st
}

// Faulted returns the 1-based indices of axes reporting a blocking fault.
func (st ControllerStatus) Faulted() []int {
	var axes []int
	for i, ax := range st.Axes {
		if ax.Fault {
			axes = append(axes, i+1)
		}
	}

	return axes
}
