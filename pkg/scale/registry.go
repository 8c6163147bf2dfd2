package scale

import "sync"

// Registry maps descriptors to converters. Resolution tries, in order, the
// primitive converters by Kind, then the union, composite and sequence
// converters. Each Registry is independent; there is no global instance.
type Registry struct {
	mu         sync.RWMutex
	primitives map[Kind]Converter
	union      Converter
	composite  Converter
	sequence   Converter
}

// NewRegistry returns a registry loaded with the default converters.
func NewRegistry() *Registry {
	return &Registry{
		primitives: map[Kind]Converter{
			KindU8:         uintConverter{bits: 8},
			KindU16:        uintConverter{bits: 16},
			KindU32:        uintConverter{bits: 32},
			KindU64:        uintConverter{bits: 64},
			KindI8:         intConverter{bits: 8},
			KindI16:        intConverter{bits: 16},
			KindI32:        intConverter{bits: 32},
			KindI64:        intConverter{bits: 64},
			KindBool:       boolConverter{},
			KindString:     stringConverter{},
			KindBytes:      bytesConverter{},
			KindCompact:    compactConverter{},
			KindBigUint:    bigUintConverter{},
			KindFixedBytes: fixedBytesConverter{},
		},
		union:     unionConverter{},
		composite: compositeConverter{},
		sequence:  sequenceConverter{},
	}
}

// Register installs conv for kind, replacing any previous converter.
func (r *Registry) Register(kind Kind, conv Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.primitives[kind] = conv
}

// Resolve returns the converter for d or an *UnsupportedTypeError.
func (r *Registry) Resolve(d Descriptor) (Converter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var kind Kind
	switch t := d.(type) {
	case *Primitive:
		kind = t.Kind
	case *BigUint:
		if t.Width <= 0 {
			return nil, &UnsupportedTypeError{Type: t.String()}
		}
		kind = KindBigUint
	case *FixedBytes:
		kind = KindFixedBytes
	case *Union:
		return r.union, nil
	case *Composite:
		return r.composite, nil
	case *Sequence:
		if t.Elem == nil || t.Len < 0 {
			return nil, &UnsupportedTypeError{Type: t.String()}
		}
		return r.sequence, nil
	default:
		return nil, &UnsupportedTypeError{Type: describe(d)}
	}

	if conv, ok := r.primitives[kind]; ok {
		return conv, nil
	}
	return nil, &UnsupportedTypeError{Type: d.String()}
}
