package clearlink

// Output command register bits.
const (
	BitEnable           uint32 = 0x01
	BitLoadVelocityMove uint32 = 0x10
	BitClearAlerts      uint32 = 0x40
	BitClearMotorFault  uint32 = 0x80

	// clearFaultCommand requests both alert and motor fault clear.
	clearFaultCommand = BitClearAlerts | BitClearMotorFault
	// moveCommand must be held high for a velocity move to stay active.
	moveCommand = BitEnable | BitLoadVelocityMove
)

// Status register bits.
const (
	StatusStepsActive         uint32 = 1 << 1
	StatusMotorFault          uint32 = 1 << 9
	StatusEnabled             uint32 = 1 << 10
	StatusReadyToHome         uint32 = 1 << 12
	StatusShutdownsPresent    uint32 = 1 << 17
	StatusLoadVelocityMoveAck uint32 = 1 << 20
)

// Shutdown register bits that do not block motion.
const (
	ShutdownTrackingError  uint32 = 0x001
	ShutdownMotorDisabled  uint32 = 0x020
	ShutdownInformational  uint32 = 0x400
	NonBlockingShutdownMask       = ShutdownTrackingError | ShutdownMotorDisabled | ShutdownInformational
)

// BlockingFaults returns the shutdown bits that remain after removing NonBlockingShutdownMask.
func BlockingFaults(shutdown uint32) uint32 {
	return shutdown &^ NonBlockingShutdownMask
}

// IsBlockingFault reports whether any shutdown bit outside NonBlockingShutdownMask is set.
func IsBlockingFault(shutdown uint32) bool {
	return BlockingFaults(shutdown) != 0
}
