package scale

import (
	"encoding/binary"
	"math/big"
	"unicode/utf8"
)

type uintConverter struct{ bits int }

func (u uintConverter) Encode(_ *Codec, w *Writer, v any, d Descriptor) error {
	x, ok := toBigInt(v)
	if !ok {
		return &ValueTypeError{Type: d.String(), Value: v}
	}
	if x.Sign() < 0 || x.BitLen() > u.bits {
		return &ValueOutOfRangeError{Type: d.String(), Value: v}
	}
	w.Put(binary.LittleEndian.AppendUint64(nil, x.Uint64())[:u.bits/8])
	return nil
}

func (u uintConverter) Decode(_ *Codec, r *Reader, _ Descriptor) (any, error) {
	p, err := r.Next(u.bits / 8)
	if err != nil {
		return nil, err
	}
	switch u.bits {
	case 8:
		return p[0], nil
	case 16:
		return binary.LittleEndian.Uint16(p), nil
	case 32:
		return binary.LittleEndian.Uint32(p), nil
	default:
		return binary.LittleEndian.Uint64(p), nil
	}
}

type intConverter struct{ bits int }

func (s intConverter) Encode(_ *Codec, w *Writer, v any, d Descriptor) error {
	x, ok := toBigInt(v)
	if !ok {
		return &ValueTypeError{Type: d.String(), Value: v}
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(s.bits-1))
	if x.Cmp(limit) >= 0 || x.Cmp(new(big.Int).Neg(limit)) < 0 {
		return &ValueOutOfRangeError{Type: d.String(), Value: v}
	}
	w.Put(binary.LittleEndian.AppendUint64(nil, uint64(x.Int64()))[:s.bits/8])
	return nil
}

func (s intConverter) Decode(_ *Codec, r *Reader, _ Descriptor) (any, error) {
	p, err := r.Next(s.bits / 8)
	if err != nil {
		return nil, err
	}
	switch s.bits {
	case 8:
		return int8(p[0]), nil
	case 16:
		return int16(binary.LittleEndian.Uint16(p)), nil
	case 32:
		return int32(binary.LittleEndian.Uint32(p)), nil
	default:
		return int64(binary.LittleEndian.Uint64(p)), nil
	}
}

type boolConverter struct{}

func (boolConverter) Encode(_ *Codec, w *Writer, v any, d Descriptor) error {
	b, ok := v.(bool)
	if !ok {
		return &ValueTypeError{Type: d.String(), Value: v}
	}
	if b {
		w.PutByte(1)
	} else {
		w.PutByte(0)
	}
	return nil
}

func (boolConverter) Decode(_ *Codec, r *Reader, _ Descriptor) (any, error) {
	b, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return nil, &InvalidBoolEncodingError{Byte: b}
}

type stringConverter struct{}

func (stringConverter) Encode(_ *Codec, w *Writer, v any, d Descriptor) error {
	s, ok := v.(string)
	if !ok {
		return &ValueTypeError{Type: d.String(), Value: v}
	}
	PutCompactUint(w, uint64(len(s)))
	w.Put([]byte(s))
	return nil
}

func (stringConverter) Decode(_ *Codec, r *Reader, _ Descriptor) (any, error) {
	n, err := ReadCompactLen(r)
	if err != nil {
		return nil, err
	}
	p, err := r.Next(n)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(p) {
		return nil, ErrInvalidUTF8
	}
	return string(p), nil
}

type bytesConverter struct{}

func (bytesConverter) Encode(_ *Codec, w *Writer, v any, d Descriptor) error {
	p, ok := v.([]byte)
	if !ok {
		return &ValueTypeError{Type: d.String(), Value: v}
	}
	PutCompactUint(w, uint64(len(p)))
	w.Put(p)
	return nil
}

func (bytesConverter) Decode(_ *Codec, r *Reader, _ Descriptor) (any, error) {
	n, err := ReadCompactLen(r)
	if err != nil {
		return nil, err
	}
	p, err := r.Next(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), p...), nil
}

type compactConverter struct{}

func (compactConverter) Encode(_ *Codec, w *Writer, v any, d Descriptor) error {
	x, ok := toBigInt(v)
	if !ok {
		return &ValueTypeError{Type: d.String(), Value: v}
	}
	return PutCompact(w, x)
}

func (compactConverter) Decode(_ *Codec, r *Reader, _ Descriptor) (any, error) {
	return ReadCompact(r)
}

type bigUintConverter struct{}

func (bigUintConverter) Encode(_ *Codec, w *Writer, v any, d Descriptor) error {
	width := d.(*BigUint).Width
	x, ok := toBigInt(v)
	if !ok {
		return &ValueTypeError{Type: d.String(), Value: v}
	}
	if x.Sign() < 0 || x.BitLen() > width*8 {
		return &ValueOutOfRangeError{Type: d.String(), Value: v}
	}
	putLE(w, x, width)
	return nil
}

func (bigUintConverter) Decode(_ *Codec, r *Reader, d Descriptor) (any, error) {
	return readLE(r, d.(*BigUint).Width)
}

type fixedBytesConverter struct{}

func (fixedBytesConverter) Encode(_ *Codec, w *Writer, v any, d Descriptor) error {
	n := d.(*FixedBytes).Len
	p, ok := v.([]byte)
	if !ok {
		return &ValueTypeError{Type: d.String(), Value: v}
	}
	if len(p) != n {
		return &LengthMismatchError{Type: d.String(), Want: n, Got: len(p)}
	}
	w.Put(p)
	return nil
}

func (fixedBytesConverter) Decode(_ *Codec, r *Reader, d Descriptor) (any, error) {
	p, err := r.Next(d.(*FixedBytes).Len)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), p...), nil
}
