package clearlink

// AxisStatus reads a fresh status snapshot of axis.
//
// Reads are best effort. A failed read leaves its fields at the defaults of NewAxisStatus and the
// remaining registers are still read. A disconnected driver or an invalid axis returns the defaults.
func (d *Driver) AxisStatus(axis int) AxisStatus {
	st := NewAxisStatus()
	if d.checkAxis(axis) != nil || !d.Connected() {
		return st
	}

	if status, err := d.readRegUint32(StatusRegister, axis); err == nil {
		st.Enabled = status&StatusEnabled != 0
		st.Moving = status&StatusStepsActive != 0
		st.Homed = status&StatusReadyToHome == 0
	}

	if shutdown, err := d.readRegUint32(ShutdownRegister, axis); err == nil {
		st.Shutdown = shutdown
		st.Fault = IsBlockingFault(shutdown)
	}

	if pos, err := d.readRegInt32(CommandedPosition, axis); err == nil {
		st.Position = pos
	}

	if vel, err := d.readRegInt32(CommandedVelocity, axis); err == nil {
		st.Velocity = vel
	}

	if torque, err := d.ReadFloat32(d.Path(MeasuredTorque, axis)); err == nil {
		st.Torque = torque
	}

	return st
}

// AllStatus reads the controller status with a snapshot of every axis.
func (d *Driver) AllStatus() ControllerStatus {
	st := NewControllerStatus(d.cfg.numAxes)
	st.Connected = d.Connected()
	st.ConnectionError = d.ConnectionError()

	if !st.Connected {
		return st
	}

	for axis := 1; axis <= d.cfg.numAxes; axis++ {
		st.Axes[axis-1] = d.AxisStatus(axis)
	}
	// a read failing during the sweep may have marked the link lost
	st.Connected = d.Connected()
	st.ConnectionError = d.ConnectionError()

	return st
}
