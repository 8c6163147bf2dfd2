package scale

import (
	"encoding/binary"
	"math"
	"math/big"
)

const (
	compactSingleMax = 1<<6 - 1
	compactTwoMax    = 1<<14 - 1
	compactFourMax   = 1<<30 - 1
	// big integer mode stores at most 67 bytes: (63 << 2) | 3 in the prefix
	compactBigMaxBytes = 4 + 63
)

// PutCompact writes x in the SCALE compact encoding:
//
//	0 ..= 2^6-1    one byte   x<<2
//	   ..= 2^14-1  two bytes  x<<2 | 0b01
//	   ..= 2^30-1  four bytes x<<2 | 0b10
//	otherwise      prefix ((n-4)<<2 | 0b11) then n little endian bytes
func PutCompact(w *Writer, x *big.Int) error {
	if x.Sign() < 0 {
		return &ValueOutOfRangeError{Type: "compact", Value: x}
	}
	if x.IsUint64() && x.Uint64() <= compactFourMax {
		PutCompactUint(w, x.Uint64())
		return nil
	}

	n := (x.BitLen() + 7) / 8
	if n > compactBigMaxBytes {
		return &ValueOutOfRangeError{Type: "compact", Value: x}
	}
	w.PutByte(byte((n-4)<<2) | 0b11)
	putLE(w, x, n)
	return nil
}

// PutCompactUint is PutCompact for values that fit a uint64.
func PutCompactUint(w *Writer, v uint64) {
	switch {
	case v <= compactSingleMax:
		w.PutByte(byte(v << 2))
	case v <= compactTwoMax:
		w.Put(binary.LittleEndian.AppendUint16(nil, uint16(v<<2)|0b01))
	case v <= compactFourMax:
		w.Put(binary.LittleEndian.AppendUint32(nil, uint32(v<<2)|0b10))
	default:
		n := 8
		for n > 4 && byte(v>>(8*(n-1))) == 0 {
			n--
		}
		w.PutByte(byte((n-4)<<2) | 0b11)
		for i := 0; i < n; i++ {
			w.PutByte(byte(v >> (8 * i)))
		}
	}
}

// ReadCompact reads a compact encoded integer.
func ReadCompact(r *Reader) (*big.Int, error) {
	first, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	switch first & 0b11 {
	case 0b00:
		return big.NewInt(int64(first >> 2)), nil
	case 0b01:
		next, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		v := binary.LittleEndian.Uint16([]byte{first, next}) >> 2
		return big.NewInt(int64(v)), nil
	case 0b10:
		rest, err := r.Next(3)
		if err != nil {
			return nil, err
		}
		v := binary.LittleEndian.Uint32([]byte{first, rest[0], rest[1], rest[2]}) >> 2
		return big.NewInt(int64(v)), nil
	default:
		return readLE(r, int(first>>2)+4)
	}
}

// ReadCompactCount reads a compact element count that must fit in an int.
func ReadCompactCount(r *Reader) (int, error) {
	n, err := ReadCompact(r)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() || n.Uint64() > math.MaxInt {
		return 0, &ValueOutOfRangeError{Type: "compact length", Value: n}
	}
	return int(n.Uint64()), nil
}

// ReadCompactLen reads the length prefix of a byte string and checks it
// against the remaining input, since every element is one byte.
func ReadCompactLen(r *Reader) (int, error) {
	n, err := ReadCompact(r)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() || n.Uint64() > uint64(r.Remaining()) {
		need := ^uint64(0)
		if n.IsUint64() {
			need = n.Uint64()
		}
		return 0, &EndOfStreamError{Need: need, Remaining: r.Remaining()}
	}
	return int(n.Uint64()), nil
}
