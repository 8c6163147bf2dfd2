package scale

import "github.com/ethereum/go-ethereum/common/hexutil"

// Codec encodes and decodes values through a Registry. It is safe for
// concurrent use.
type Codec struct {
	reg *Registry
}

// NewCodec returns a codec over reg, or over a fresh default registry when
// reg is nil.
func NewCodec(reg *Registry) *Codec {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Codec{reg: reg}
}

func (c *Codec) Registry() *Registry { return c.reg }

// Encode returns the encoding of v as d.
func (c *Codec) Encode(v any, d Descriptor) ([]byte, error) {
	w := NewWriter(32)
	if err := c.EncodeTo(w, v, d); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// EncodeTo appends the encoding of v as d to w.
func (c *Codec) EncodeTo(w *Writer, v any, d Descriptor) error {
	conv, err := c.reg.Resolve(d)
	if err != nil {
		return err
	}
	return conv.Encode(c, w, v, d)
}

// Decode reads one value of type d that must span all of data.
func (c *Codec) Decode(data []byte, d Descriptor) (any, error) {
	r := NewReader(data)
	v, err := c.DecodeFrom(r, d)
	if err != nil {
		return nil, err
	}
	if r.Remaining() > 0 {
		return nil, &TrailingBytesError{Remaining: r.Remaining()}
	}
	return v, nil
}

// DecodeFrom reads one value of type d from r and leaves the rest unread.
func (c *Codec) DecodeFrom(r *Reader, d Descriptor) (any, error) {
	conv, err := c.reg.Resolve(d)
	if err != nil {
		return nil, err
	}
	return conv.Decode(c, r, d)
}

// EncodeHex is Encode with a 0x prefixed hex result.
func (c *Codec) EncodeHex(v any, d Descriptor) (string, error) {
	raw, err := c.Encode(v, d)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(raw), nil
}

// DecodeHex decodes a 0x prefixed hex string as d.
func (c *Codec) DecodeHex(s string, d Descriptor) (any, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return nil, err
	}
	return c.Decode(raw, d)
}
