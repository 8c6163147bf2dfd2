package scale

// Converter reads and writes one family of descriptors. Converters for
// nested shapes call back into the Codec for their members.
type Converter interface {
	Encode(c *Codec, w *Writer, v any, d Descriptor) error
	Decode(c *Codec, r *Reader, d Descriptor) (any, error)
}

// ConverterFuncs adapts a pair of functions to a Converter.
type ConverterFuncs struct {
	EncodeFunc func(c *Codec, w *Writer, v any, d Descriptor) error
	DecodeFunc func(c *Codec, r *Reader, d Descriptor) (any, error)
}

func (f ConverterFuncs) Encode(c *Codec, w *Writer, v any, d Descriptor) error {
	return f.EncodeFunc(c, w, v, d)
}

func (f ConverterFuncs) Decode(c *Codec, r *Reader, d Descriptor) (any, error) {
	return f.DecodeFunc(c, r, d)
}
