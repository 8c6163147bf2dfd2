package scale

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// TypeDefs is a set of named descriptors loaded from YAML.
//
// The document is a mapping from type name to definition. A definition is
// either a type expression or a mapping with a single struct or enum key:
//
//	AccountData:
//	  struct:
//	    - free: u128
//	    - reserved: u128
//	Status:
//	  enum:
//	    - Idle
//	    - Active: u32
//	Hashes: vec<[u8; 32]>
//
// Type expressions are the primitive names (u8 to u64, u128, u256, i8 to
// i64, bool, str, bytes, compact), [T; N], vec<T>, option<T>, compact<T>,
// tuples (A, B) and names defined in the same document. Definitions may not
// refer to themselves, directly or indirectly.
type TypeDefs struct {
	names []string
	raw   map[string]*yaml.Node
	types map[string]Descriptor
}

var builtinTypes = map[string]Descriptor{
	"u8":      U8,
	"u16":     U16,
	"u32":     U32,
	"u64":     U64,
	"u128":    U128,
	"u256":    U256,
	"i8":      I8,
	"i16":     I16,
	"i32":     I32,
	"i64":     I64,
	"bool":    Bool,
	"str":     Str,
	"string":  Str,
	"bytes":   Bytes,
	"compact": Compact,
	"hash":    Hash,
}

// LoadTypeDefs parses a YAML document of type definitions.
func LoadTypeDefs(data []byte) (*TypeDefs, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parse type definitions")
	}

	defs := &TypeDefs{
		raw:   map[string]*yaml.Node{},
		types: map[string]Descriptor{},
	}
	if len(doc.Content) == 0 {
		return defs, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.Errorf("type definitions: line %d: expected a mapping", root.Line)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		if _, dup := defs.raw[name]; dup {
			return nil, errors.Errorf("type definitions: line %d: duplicate type %q", root.Content[i].Line, name)
		}
		if _, builtin := builtinTypes[name]; builtin {
			return nil, errors.Errorf("type definitions: line %d: %q shadows a builtin type", root.Content[i].Line, name)
		}
		defs.names = append(defs.names, name)
		defs.raw[name] = root.Content[i+1]
	}

	for _, name := range defs.names {
		if _, err := defs.resolve(name, map[string]bool{}); err != nil {
			return nil, err
		}
	}
	return defs, nil
}

// Lookup returns the descriptor called name.
func (t *TypeDefs) Lookup(name string) (Descriptor, bool) {
	if d, ok := builtinTypes[name]; ok {
		return d, true
	}
	d, ok := t.types[name]
	return d, ok
}

// MustLookup is Lookup that panics on unknown names.
func (t *TypeDefs) MustLookup(name string) Descriptor {
	d, ok := t.Lookup(name)
	if !ok {
		panic("scale: unknown type " + name)
	}
	return d
}

// Names lists the defined types in document order.
func (t *TypeDefs) Names() []string {
	return append([]string(nil), t.names...)
}

// Parse resolves a type expression against the definitions.
func (t *TypeDefs) Parse(expr string) (Descriptor, error) {
	return t.expr(expr, map[string]bool{})
}

func (t *TypeDefs) resolve(name string, visiting map[string]bool) (Descriptor, error) {
	if d, ok := t.types[name]; ok {
		return d, nil
	}
	node, ok := t.raw[name]
	if !ok {
		return nil, errors.Errorf("unknown type %q", name)
	}
	if visiting[name] {
		return nil, errors.Errorf("type %q is cyclic", name)
	}
	visiting[name] = true
	defer delete(visiting, name)

	d, err := t.definition(name, node, visiting)
	if err != nil {
		return nil, errors.Wrapf(err, "type %s (line %d)", name, node.Line)
	}
	t.types[name] = d
	return d, nil
}

func (t *TypeDefs) definition(name string, node *yaml.Node, visiting map[string]bool) (Descriptor, error) {
	if node.Kind == yaml.ScalarNode {
		return t.expr(node.Value, visiting)
	}
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return nil, errors.New("expected a type expression or a single struct/enum key")
	}

	body := node.Content[1]
	if body.Kind != yaml.SequenceNode {
		return nil, errors.Errorf("%s body must be a list", node.Content[0].Value)
	}

	switch node.Content[0].Value {
	case "struct":
		comp := &Composite{Name: name}
		for _, item := range body.Content {
			fieldName, fieldType, err := t.member(item, visiting)
			if err != nil {
				return nil, err
			}
			if fieldType == nil {
				return nil, errors.Errorf("struct field %q has no type", fieldName)
			}
			comp.Fields = append(comp.Fields, Field{Name: fieldName, Type: fieldType})
		}
		return comp, nil
	case "enum":
		if len(body.Content) > 256 {
			return nil, errors.Errorf("enum has %d variants, at most 256 allowed", len(body.Content))
		}
		u := &Union{Name: name}
		for _, item := range body.Content {
			variantName, payload, err := t.member(item, visiting)
			if err != nil {
				return nil, err
			}
			u.Variants = append(u.Variants, Variant{Name: variantName, Type: payload})
		}
		return u, nil
	}
	return nil, errors.Errorf("unknown definition kind %q", node.Content[0].Value)
}

// member reads a list item that is either a bare name or a single
// name: type pair.
func (t *TypeDefs) member(item *yaml.Node, visiting map[string]bool) (string, Descriptor, error) {
	switch {
	case item.Kind == yaml.ScalarNode:
		return item.Value, nil, nil
	case item.Kind == yaml.MappingNode && len(item.Content) == 2:
		name := item.Content[0].Value
		d, err := t.expr(item.Content[1].Value, visiting)
		if err != nil {
			return "", nil, errors.Wrapf(err, "member %s", name)
		}
		return name, d, nil
	}
	return "", nil, errors.Errorf("line %d: expected name or name: type", item.Line)
}

func (t *TypeDefs) expr(s string, visiting map[string]bool) (Descriptor, error) {
	s = strings.TrimSpace(s)
	if d, ok := builtinTypes[s]; ok {
		return d, nil
	}

	if inner, ok := generic(s, "vec"); ok {
		if inner == "u8" {
			return Bytes, nil
		}
		elem, err := t.expr(inner, visiting)
		if err != nil {
			return nil, err
		}
		return Vec(elem), nil
	}
	if inner, ok := generic(s, "option"); ok {
		elem, err := t.expr(inner, visiting)
		if err != nil {
			return nil, err
		}
		return Option(elem), nil
	}
	if inner, ok := generic(s, "compact"); ok {
		switch inner {
		case "u8", "u16", "u32", "u64", "u128", "u256":
			return Compact, nil
		}
		return nil, errors.Errorf("compact<%s>: compact needs an unsigned integer", inner)
	}

	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		return t.array(s[1:len(s)-1], visiting)
	}
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		return t.tuple(s[1:len(s)-1], visiting)
	}

	if s == "" {
		return nil, errors.New("empty type expression")
	}
	return t.resolve(s, visiting)
}

func (t *TypeDefs) array(body string, visiting map[string]bool) (Descriptor, error) {
	semi := strings.LastIndex(body, ";")
	if semi < 0 {
		return nil, errors.Errorf("[%s]: expected [T; N]", body)
	}
	n, err := strconv.Atoi(strings.TrimSpace(body[semi+1:]))
	if err != nil || n <= 0 {
		return nil, errors.Errorf("[%s]: invalid length", body)
	}

	elemExpr := strings.TrimSpace(body[:semi])
	if elemExpr == "u8" {
		return &FixedBytes{Len: n}, nil
	}
	elem, err := t.expr(elemExpr, visiting)
	if err != nil {
		return nil, err
	}
	return Array(elem, n), nil
}

// tuple builds a Composite whose fields are named "0", "1", ...
func (t *TypeDefs) tuple(body string, visiting map[string]bool) (Descriptor, error) {
	parts := splitTopLevel(body)
	comp := &Composite{Name: "(" + body + ")"}
	for i, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		d, err := t.expr(part, visiting)
		if err != nil {
			return nil, err
		}
		comp.Fields = append(comp.Fields, Field{Name: strconv.Itoa(i), Type: d})
	}
	return comp, nil
}

func generic(s, name string) (string, bool) {
	if !strings.HasPrefix(s, name+"<") || !strings.HasSuffix(s, ">") {
		return "", false
	}
	return strings.TrimSpace(s[len(name)+1 : len(s)-1]), true
}

// splitTopLevel splits on commas that are not nested inside <>, [] or ().
func splitTopLevel(s string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '<', '[', '(':
			depth++
		case '>', ']', ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
