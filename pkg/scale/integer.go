package scale

import "math/big"

// toBigInt normalizes any Go integer, *big.Int or big.Int.
func toBigInt(v any) (*big.Int, bool) {
	switch x := v.(type) {
	case int:
		return big.NewInt(int64(x)), true
	case int8:
		return big.NewInt(int64(x)), true
	case int16:
		return big.NewInt(int64(x)), true
	case int32:
		return big.NewInt(int64(x)), true
	case int64:
		return big.NewInt(x), true
	case uint:
		return new(big.Int).SetUint64(uint64(x)), true
	case uint8:
		return new(big.Int).SetUint64(uint64(x)), true
	case uint16:
		return new(big.Int).SetUint64(uint64(x)), true
	case uint32:
		return new(big.Int).SetUint64(uint64(x)), true
	case uint64:
		return new(big.Int).SetUint64(x), true
	case *big.Int:
		if x == nil {
			return nil, false
		}
		return x, true
	case big.Int:
		return &x, true
	}
	return nil, false
}

// putLE writes the low width bytes of a non negative x, little endian.
func putLE(w *Writer, x *big.Int, width int) {
	be := x.FillBytes(make([]byte, width))
	for i := width - 1; i >= 0; i-- {
		w.PutByte(be[i])
	}
}

// readLE reads width little endian bytes as an unsigned integer.
func readLE(r *Reader, width int) (*big.Int, error) {
	p, err := r.Next(width)
	if err != nil {
		return nil, err
	}
	be := make([]byte, width)
	for i, b := range p {
		be[width-1-i] = b
	}
	return new(big.Int).SetBytes(be), nil
}
