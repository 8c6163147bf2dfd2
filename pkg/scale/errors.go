package scale

import (
	"errors"
	"fmt"
)

// ErrInvalidUTF8 is returned when a decoded string is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("scale: invalid utf-8 string")

// UnsupportedTypeError means the registry has no converter for a descriptor.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("scale: no converter for type %s", e.Type)
}

// EndOfStreamError means decoding needed more bytes than were left.
type EndOfStreamError struct {
	Need      uint64
	Remaining int
}

func (e *EndOfStreamError) Error() string {
	return fmt.Sprintf("scale: unexpected end of stream: need %d bytes, %d remaining", e.Need, e.Remaining)
}

// UnknownVariantTagError means a union discriminant has no matching variant.
type UnknownVariantTagError struct {
	Union    string
	Tag      int
	Variants int
}

func (e *UnknownVariantTagError) Error() string {
	return fmt.Sprintf("scale: unknown variant %d for %s with %d variants", e.Tag, e.Union, e.Variants)
}

// InvalidBoolEncodingError means a boolean byte was neither 0 nor 1.
type InvalidBoolEncodingError struct {
	Byte byte
}

func (e *InvalidBoolEncodingError) Error() string {
	return fmt.Sprintf("scale: invalid bool encoding 0x%02x", e.Byte)
}

// ValueOutOfRangeError means a value does not fit its declared width.
type ValueOutOfRangeError struct {
	Type  string
	Value any
}

func (e *ValueOutOfRangeError) Error() string {
	return fmt.Sprintf("scale: value %v out of range for %s", e.Value, e.Type)
}

// ValueTypeError means a Go value cannot be written as the requested type.
type ValueTypeError struct {
	Type  string
	Value any
}

func (e *ValueTypeError) Error() string {
	return fmt.Sprintf("scale: cannot encode %T as %s", e.Value, e.Type)
}

// MissingFieldError means a Record lacks a member of its Composite.
type MissingFieldError struct {
	Type  string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("scale: %s is missing field %q", e.Type, e.Field)
}

// LengthMismatchError means a fixed size value had the wrong length.
type LengthMismatchError struct {
	Type string
	Want int
	Got  int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("scale: %s needs %d elements, got %d", e.Type, e.Want, e.Got)
}

// TrailingBytesError means a top level decode left input unconsumed.
type TrailingBytesError struct {
	Remaining int
}

func (e *TrailingBytesError) Error() string {
	return fmt.Sprintf("scale: %d trailing bytes after value", e.Remaining)
}
