package scale

import (
	"github.com/pkg/errors"
)

type sequenceConverter struct{}

func (sequenceConverter) Encode(c *Codec, w *Writer, v any, d Descriptor) error {
	seq := d.(*Sequence)

	var items []any
	switch x := v.(type) {
	case []any:
		items = x
	case []byte:
		items = make([]any, len(x))
		for i, b := range x {
			items[i] = b
		}
	default:
		return &ValueTypeError{Type: seq.String(), Value: v}
	}

	if seq.Len > 0 {
		if len(items) != seq.Len {
			return &LengthMismatchError{Type: seq.String(), Want: seq.Len, Got: len(items)}
		}
	} else {
		PutCompactUint(w, uint64(len(items)))
	}

	for i, item := range items {
		if err := c.EncodeTo(w, item, seq.Elem); err != nil {
			return errors.Wrapf(err, "%s[%d]", seq, i)
		}
	}
	return nil
}

// maxZeroSizedLen bounds sequences of elements that occupy no bytes, whose
// length cannot be checked against the remaining input.
const maxZeroSizedLen = 1 << 16

func (sequenceConverter) Decode(c *Codec, r *Reader, d Descriptor) (any, error) {
	seq := d.(*Sequence)

	n := seq.Len
	if n == 0 {
		var err error
		if n, err = ReadCompactCount(r); err != nil {
			return nil, err
		}
		switch {
		case zeroSized(seq.Elem):
			if n > maxZeroSizedLen {
				return nil, &ValueOutOfRangeError{Type: seq.String(), Value: n}
			}
		case n > r.Remaining():
			return nil, &EndOfStreamError{Need: uint64(n), Remaining: r.Remaining()}
		}
	}

	items := make([]any, 0, min(n, max(r.Remaining(), 1)))
	for i := 0; i < n; i++ {
		item, err := c.DecodeFrom(r, seq.Elem)
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", seq, i)
		}
		items = append(items, item)
	}
	return items, nil
}

// zeroSized reports whether every value of d encodes to no bytes at all.
// Other descriptors take at least one byte per value.
func zeroSized(d Descriptor) bool {
	switch t := d.(type) {
	case *FixedBytes:
		return t.Len == 0
	case *Composite:
		for _, f := range t.Fields {
			if !zeroSized(f.Type) {
				return false
			}
		}
		return true
	case *Sequence:
		return t.Len > 0 && zeroSized(t.Elem)
	}
	return false
}
