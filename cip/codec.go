package cip

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Sizes in bytes of the elementary data types.
const (
	SizeDINT  = 4
	SizeUDINT = 4
	SizeREAL  = 4
)

// EncodeDINT encodes a signed 32-bit integer little-endian.
func EncodeDINT(v int32) []byte {
	return EncodeUDINT(uint32(v))
}

// EncodeUDINT encodes an unsigned 32-bit integer little-endian.
func EncodeUDINT(v uint32) []byte {
	buf := make([]byte, SizeUDINT)
	binary.LittleEndian.PutUint32(buf, v)

	return buf
}

// EncodeREAL encodes an IEEE-754 float little-endian.
func EncodeREAL(v float32) []byte {
	return EncodeUDINT(math.Float32bits(v))
}

// DecodeDINT decodes the first 4 bytes of data as a signed 32-bit integer.
func DecodeDINT(data []byte) (int32, error) {
	v, err := DecodeUDINT(data)
	return int32(v), err
}

// DecodeUDINT decodes the first 4 bytes of data as an unsigned 32-bit integer.
// Trailing bytes are ignored.
func DecodeUDINT(data []byte) (uint32, error) {
	if len(data) < SizeUDINT {
		return 0, fmt.Errorf("%w: got %d bytes, want %d", ErrShortPayload, len(data), SizeUDINT)
	}

	return binary.LittleEndian.Uint32(data[:SizeUDINT]), nil
}

// DecodeREAL decodes the first 4 bytes of data as an IEEE-754 float.
func DecodeREAL(data []byte) (float32, error) {
	v, err := DecodeUDINT(data)
	return math.Float32frombits(v), err
}
