package scale

import "github.com/pkg/errors"

type compositeConverter struct{}

func (compositeConverter) Encode(c *Codec, w *Writer, v any, d Descriptor) error {
	comp := d.(*Composite)

	rec, err := toRecord(comp, v)
	if err != nil {
		return err
	}
	for _, f := range comp.Fields {
		fv, ok := rec[f.Name]
		if !ok {
			return &MissingFieldError{Type: comp.String(), Field: f.Name}
		}
		if err := c.EncodeTo(w, fv, f.Type); err != nil {
			return errors.Wrapf(err, "%s.%s", comp, f.Name)
		}
	}
	return nil
}

func toRecord(comp *Composite, v any) (Record, error) {
	switch rec := v.(type) {
	case Record:
		return rec, nil
	case map[string]any:
		return rec, nil
	}
	if comp.Deconstruct == nil {
		return nil, &ValueTypeError{Type: comp.String(), Value: v}
	}
	return comp.Deconstruct(v)
}

// Decode reads every member before building the value, so a failure never
// yields a partially filled result.
func (compositeConverter) Decode(c *Codec, r *Reader, d Descriptor) (any, error) {
	comp := d.(*Composite)

	rec := make(Record, len(comp.Fields))
	for _, f := range comp.Fields {
		fv, err := c.DecodeFrom(r, f.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s", comp, f.Name)
		}
		rec[f.Name] = fv
	}
	if comp.Construct == nil {
		return rec, nil
	}
	return comp.Construct(rec)
}
