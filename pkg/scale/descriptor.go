package scale

import (
	"fmt"
	"strings"
)

// Descriptor describes the wire shape of a value. The set of descriptors is
// closed: *Primitive, *BigUint, *FixedBytes, *Composite, *Union and
// *Sequence.
type Descriptor interface {
	fmt.Stringer
	descriptor()
}

// Kind identifies a primitive converter in a Registry.
type Kind uint8

const (
	KindU8 Kind = iota + 1
	KindU16
	KindU32
	KindU64
	KindI8
	KindI16
	KindI32
	KindI64
	KindBool
	KindString
	KindBytes
	KindCompact
	KindBigUint
	KindFixedBytes
)

var kindNames = map[Kind]string{
	KindU8:         "u8",
	KindU16:        "u16",
	KindU32:        "u32",
	KindU64:        "u64",
	KindI8:         "i8",
	KindI16:        "i16",
	KindI32:        "i32",
	KindI64:        "i64",
	KindBool:       "bool",
	KindString:     "str",
	KindBytes:      "bytes",
	KindCompact:    "compact",
	KindBigUint:    "biguint",
	KindFixedBytes: "fixedbytes",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Primitive is a scalar with a fixed converter. String and Bytes carry a
// compact length prefix.
type Primitive struct {
	Kind Kind
}

// BigUint is an unsigned integer stored in exactly Width little endian bytes.
type BigUint struct {
	Width int
}

// FixedBytes is a byte array whose length is implied by the type.
type FixedBytes struct {
	Len int
}

// Field is one member of a Composite.
type Field struct {
	Name string
	Type Descriptor
}

// Composite is a struct: members encoded back to back in declaration order.
//
// Construct, when set, turns the decoded Record into a caller type.
// Deconstruct does the reverse for values that are not a Record.
type Composite struct {
	Name        string
	Fields      []Field
	Construct   func(Record) (any, error)
	Deconstruct func(any) (Record, error)
}

// Variant is one alternative of a Union. A nil Type is a unit variant with
// no payload. Construct, when set, builds the decoded value from the
// payload; otherwise the decoded value is an Enum.
type Variant struct {
	Name      string
	Type      Descriptor
	Construct func(payload any) (any, error)
}

// Union is a tagged union. The variant index is its position in Variants,
// written as a single byte, so a union holds at most 256 variants.
type Union struct {
	Name     string
	Variants []Variant
}

// Sequence is a homogeneous list. Len == 0 means the length travels as a
// compact prefix; Len > 0 is a fixed size array with no prefix.
type Sequence struct {
	Elem Descriptor
	Len  int
}

func (*Primitive) descriptor()  {}
func (*BigUint) descriptor()    {}
func (*FixedBytes) descriptor() {}
func (*Composite) descriptor()  {}
func (*Union) descriptor()      {}
func (*Sequence) descriptor()   {}

func (p *Primitive) String() string { return p.Kind.String() }

func (b *BigUint) String() string { return fmt.Sprintf("u%d", b.Width*8) }

func (f *FixedBytes) String() string { return fmt.Sprintf("[u8; %d]", f.Len) }

func (c *Composite) String() string {
	if c.Name != "" {
		return c.Name
	}
	names := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		names[i] = f.Name + ": " + describe(f.Type)
	}
	return "{" + strings.Join(names, ", ") + "}"
}

func (u *Union) String() string {
	if u.Name != "" {
		return u.Name
	}
	names := make([]string, len(u.Variants))
	for i, v := range u.Variants {
		names[i] = v.Name
	}
	return "enum{" + strings.Join(names, " | ") + "}"
}

func (s *Sequence) String() string {
	if s.Len > 0 {
		return fmt.Sprintf("[%s; %d]", describe(s.Elem), s.Len)
	}
	return "vec<" + describe(s.Elem) + ">"
}

func describe(d Descriptor) string {
	if d == nil {
		return "()"
	}
	return d.String()
}

// Variant returns the index of the variant called name, or -1.
func (u *Union) Variant(name string) int {
	for i, v := range u.Variants {
		if v.Name == name {
			return i
		}
	}
	return -1
}

// New builds the value of variant index. It panics when index does not
// name a variant of u.
func (u *Union) New(index int, payload any) Enum {
	if index < 0 || index >= len(u.Variants) {
		panic(fmt.Sprintf("scale: %s has no variant %d", u, index))
	}
	return Enum{Index: index, Value: payload}
}

// NewNamed builds the value of the variant called name. It panics when u has
// no such variant.
func (u *Union) NewNamed(name string, payload any) Enum {
	i := u.Variant(name)
	if i < 0 {
		panic(fmt.Sprintf("scale: %s has no variant %q", u, name))
	}
	return Enum{Index: i, Value: payload}
}

var (
	U8      = &Primitive{Kind: KindU8}
	U16     = &Primitive{Kind: KindU16}
	U32     = &Primitive{Kind: KindU32}
	U64     = &Primitive{Kind: KindU64}
	I8      = &Primitive{Kind: KindI8}
	I16     = &Primitive{Kind: KindI16}
	I32     = &Primitive{Kind: KindI32}
	I64     = &Primitive{Kind: KindI64}
	Bool    = &Primitive{Kind: KindBool}
	Str     = &Primitive{Kind: KindString}
	Bytes   = &Primitive{Kind: KindBytes}
	Compact = &Primitive{Kind: KindCompact}
	U128    = &BigUint{Width: 16}
	U256    = &BigUint{Width: 32}
	Hash    = &FixedBytes{Len: 32}
)

// Option is the union {None, Some(d)}.
func Option(d Descriptor) *Union {
	return &Union{
		Name: "option<" + describe(d) + ">",
		Variants: []Variant{
			{Name: "None"},
			{Name: "Some", Type: d},
		},
	}
}

// Vec is a compact length prefixed sequence of elem.
func Vec(elem Descriptor) *Sequence { return &Sequence{Elem: elem} }

// Array is a fixed length sequence of elem.
func Array(elem Descriptor, n int) *Sequence { return &Sequence{Elem: elem, Len: n} }

// Struct builds a Composite without constructors.
func Struct(name string, fields ...Field) *Composite {
	return &Composite{Name: name, Fields: fields}
}
