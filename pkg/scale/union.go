package scale

import "github.com/pkg/errors"

type unionConverter struct{}

func (unionConverter) Encode(c *Codec, w *Writer, v any, d Descriptor) error {
	u := d.(*Union)
	if len(u.Variants) > 256 {
		return &UnsupportedTypeError{Type: u.String()}
	}

	uv, ok := v.(UnionValue)
	if !ok {
		return &ValueTypeError{Type: u.String(), Value: v}
	}
	idx := uv.VariantIndex()
	if idx < 0 || idx >= len(u.Variants) {
		return &ValueOutOfRangeError{Type: u.String(), Value: idx}
	}

	variant := u.Variants[idx]
	if variant.Type == nil {
		if uv.VariantValue() != nil {
			return &ValueTypeError{Type: u.String() + "::" + variant.Name, Value: uv.VariantValue()}
		}
		w.PutByte(byte(idx))
		return nil
	}
	w.PutByte(byte(idx))
	if err := c.EncodeTo(w, uv.VariantValue(), variant.Type); err != nil {
		return errors.Wrapf(err, "%s::%s", u, variant.Name)
	}
	return nil
}

func (unionConverter) Decode(c *Codec, r *Reader, d Descriptor) (any, error) {
	u := d.(*Union)

	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if int(tag) >= len(u.Variants) {
		return nil, &UnknownVariantTagError{Union: u.String(), Tag: int(tag), Variants: len(u.Variants)}
	}

	variant := u.Variants[tag]
	var payload any
	if variant.Type != nil {
		payload, err = c.DecodeFrom(r, variant.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "%s::%s", u, variant.Name)
		}
	}
	if variant.Construct != nil {
		return variant.Construct(payload)
	}
	return Enum{Index: int(tag), Value: payload}, nil
}
