package clearlink

import (
	"fmt"

	"github.com/arloliu/go-clearlink/cip"
)

// Object identifies the CIP object type a register belongs to.
type Object uint8

const (
	ConfigObject Object = iota
	InputObject
	OutputObject
)

// Register identifies a logical per-axis device register.
type Register uint8

const (
	NegSoftLimit Register = iota + 1
	PosSoftLimit
	JogVelocity
	VelocityLimit
	Acceleration
	Deceleration
	OutputRegister
	CommandedPosition
	CommandedVelocity
	MeasuredTorque
	StatusRegister
	ShutdownRegister
)

// Object returns the object type holding the register.
func (r Register) Object() Object {
	switch r {
	case NegSoftLimit, PosSoftLimit:
		return ConfigObject
	case CommandedPosition, CommandedVelocity, MeasuredTorque, StatusRegister, ShutdownRegister:
		return InputObject
	default:
		return OutputObject
	}
}

// String returns string representation of the register.
func (r Register) String() string {
	switch r {
	case NegSoftLimit:
		return "neg-soft-limit"
	case PosSoftLimit:
		return "pos-soft-limit"
	case JogVelocity:
		return "jog-velocity"
	case VelocityLimit:
		return "velocity-limit"
	case Acceleration:
		return "acceleration"
	case Deceleration:
		return "deceleration"
	case OutputRegister:
		return "output-register"
	case CommandedPosition:
		return "commanded-position"
	case CommandedVelocity:
		return "commanded-velocity"
	case MeasuredTorque:
		return "measured-torque"
	case StatusRegister:
		return "status-register"
	case ShutdownRegister:
		return "shutdown-register"
	default:
		return fmt.Sprintf("register(%d)", uint8(r))
	}
}

// DefaultAttributes is the attribute number of each register within its object.
var DefaultAttributes = map[Register]uint8{
	NegSoftLimit:      1,
	PosSoftLimit:      2,
	JogVelocity:       2,
	VelocityLimit:     3,
	Acceleration:      4,
	Deceleration:      5,
	OutputRegister:    6,
	CommandedPosition: 1,
	CommandedVelocity: 2,
	MeasuredTorque:    6,
	StatusRegister:    7,
	ShutdownRegister:  8,
}

// RegisterMap resolves a register of an axis to a CIP attribute path.
type RegisterMap interface {
	// Path returns the attribute path of reg for the 1-based axis.
	Path(reg Register, axis int) cip.Path
	// Name returns the configuration name of the map.
	Name() string
}

// Register map names accepted by RegisterMapByName.
const (
	SharedClassMapName   = "shared"
	PerAxisClassMapName  = "per_axis"
	defaultConfigClass   = 0x64
	defaultInputClass    = 0x65
	defaultOutputClass   = 0x66
	defaultPerAxisInput  = 0x6A
	defaultPerAxisOutput = 0x66
)

// SharedClassMap uses one class per object type and the axis number as instance.
type SharedClassMap struct {
	ConfigClass uint16
	InputClass  uint16
	OutputClass uint16
	// Attributes overrides DefaultAttributes when non-nil.
	Attributes map[Register]uint8
}

var _ RegisterMap = SharedClassMap{}

// DefaultRegisterMap returns the shared class layout: config 0x64, input 0x65, output 0x66.
func DefaultRegisterMap() SharedClassMap {
	return SharedClassMap{
		ConfigClass: defaultConfigClass,
		InputClass:  defaultInputClass,
		OutputClass: defaultOutputClass,
	}
}

func (m SharedClassMap) Path(reg Register, axis int) cip.Path {
	class := m.OutputClass
	switch reg.Object() {
	case ConfigObject:
		class = m.ConfigClass
	case InputObject:
		class = m.InputClass
	}

	return cip.Path{Class: class, Instance: uint16(axis), Attribute: attribute(m.Attributes, reg)}
}

func (m SharedClassMap) Name() string { return SharedClassMapName }

// PerAxisClassMap uses a distinct input and output class per axis, instance 1.
//
// Axis n uses class InputBase+n-1 and OutputBase+n-1. The config object keeps the shared class
// with instance = axis.
type PerAxisClassMap struct {
	ConfigClass uint16
	InputBase   uint16
	OutputBase  uint16
	Attributes  map[Register]uint8
}

var _ RegisterMap = PerAxisClassMap{}

// DefaultPerAxisMap returns the per-axis layout: outputs 0x66..0x69, inputs 0x6A..0x6D.
func DefaultPerAxisMap() PerAxisClassMap {
	return PerAxisClassMap{
		ConfigClass: defaultConfigClass,
		InputBase:   defaultPerAxisInput,
		OutputBase:  defaultPerAxisOutput,
	}
}

func (m PerAxisClassMap) Path(reg Register, axis int) cip.Path {
	attr := attribute(m.Attributes, reg)
	offset := uint16(axis - 1)

	switch reg.Object() {
	case ConfigObject:
		return cip.Path{Class: m.ConfigClass, Instance: uint16(axis), Attribute: attr}
	case InputObject:
		return cip.Path{Class: m.InputBase + offset, Instance: 1, Attribute: attr}
	default:
		return cip.Path{Class: m.OutputBase + offset, Instance: 1, Attribute: attr}
	}
}

func (m PerAxisClassMap) Name() string { return PerAxisClassMapName }

// RegisterMapByName returns the default map registered under name. An empty name selects the shared map.
func RegisterMapByName(name string) (RegisterMap, error) {
	switch name {
	case "", SharedClassMapName:
		return DefaultRegisterMap(), nil
	case PerAxisClassMapName:
		return DefaultPerAxisMap(), nil
	default:
		return nil, fmt.Errorf("unknown register map %q", name)
	}
}

func attribute(table map[Register]uint8, reg Register) uint8 {
	if table != nil {
		if attr, ok := table[reg]; ok {
			return attr
		}
	}

	return DefaultAttributes[reg]
}
