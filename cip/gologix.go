package cip

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/danomagnum/gologix"
)

// GologixTransport implements Transport with the gologix EtherNet/IP client.
//
// Every session owns one gologix client; requests are sent as unconnected explicit messages.
type GologixTransport struct{}

var _ Transport = GologixTransport{}

// Open connects a gologix client to address.
func (GologixTransport) Open(address string) (Session, error) {
	if address == "" {
		return nil, errors.New("cip: empty device address")
	}

	client := gologix.NewClient(address)
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("cip: connect %s: %w", address, err)
	}

	return &gologixSession{client: client}, nil
}

type gologixSession struct {
	client *gologix.Client
	closed atomic.Bool
}

func (s *gologixSession) Request(service Service, path Path, payload []byte) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}

	class := gologix.CIPClass(path.Class)
	instance := gologix.CIPInstance(path.Instance)
	attr := gologix.CIPAttribute(path.Attribute)

	switch service {
	case ServiceGetAttributeSingle:
		item, err := s.client.GetAttrSingle(class, instance, attr)
		if err != nil {
			return nil, err
		}
		// every ClearLink register is 4 bytes wide
		raw, err := item.Uint32()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrShortPayload, err)
		}

		return EncodeUDINT(raw), nil

	case ServiceSetAttributeSingle:
		cipPath, err := gologix.Serialize(class, instance, attr)
		if err != nil {
			return nil, err
		}
		if _, err := s.client.GenericCIPMessage(gologix.CIPService_SetAttributeSingle, cipPath.Bytes(), payload); err != nil {
			return nil, err
		}

		return nil, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedService, service)
	}
}

func (s *gologixSession) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	return s.client.Disconnect()
}
