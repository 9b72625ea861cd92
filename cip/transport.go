package cip

import "fmt"

// Service is a CIP service code.
type Service uint8

const (
	// ServiceGetAttributeSingle reads one attribute of an object instance.
	ServiceGetAttributeSingle Service = 0x0E
	// ServiceSetAttributeSingle writes one attribute of an object instance.
	ServiceSetAttributeSingle Service = 0x10
)

// String returns string representation of the service.
func (s Service) String() string {
	switch s {
	case ServiceGetAttributeSingle:
		return "get-attribute-single"
	case ServiceSetAttributeSingle:
		return "set-attribute-single"
	default:
		return fmt.Sprintf("service(0x%02X)", uint8(s))
	}
}

// Path addresses a single attribute of an object instance.
type Path struct {
	Class     uint16
	Instance  uint16
	Attribute uint8
}

// String returns string representation of the path.
func (p Path) String() string {
	return fmt.Sprintf("class=0x%02X instance=%d attribute=%d", p.Class, p.Instance, p.Attribute)
}

// Session is an open explicit messaging session to one device.
//
// Implementations are not required to be safe for concurrent use; callers serialize requests.
type Session interface {
	// Request issues service against path. payload is nil for get requests.
	// It returns the raw response payload.
	Request(service Service, path Path, payload []byte) ([]byte, error)
	// Close closes the session. Requests on a closed session return ErrSessionClosed.
	Close() error
}

// Transport opens sessions to devices.
type Transport interface {
	// Open opens a session to the device at address.
	Open(address string) (Session, error)
}

// TransportFunc adapts an ordinary function to the Transport interface.
type TransportFunc func(address string) (Session, error)

// Open calls f(address).
func (f TransportFunc) Open(address string) (Session, error) { return f(address) }
