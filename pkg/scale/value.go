package scale

import "fmt"

// Record is the generic value of a Composite, keyed by field name.
type Record map[string]any

// UnionValue is implemented by values that can be written as a Union. Enum
// implements it; caller types returned by variant constructors can too.
type UnionValue interface {
	VariantIndex() int
	VariantValue() any
}

// Enum is the generic value of a Union. Value is nil for unit variants.
type Enum struct {
	Index int
	Value any
}

var _ UnionValue = Enum{}

func (e Enum) VariantIndex() int { return e.Index }
func (e Enum) VariantValue() any { return e.Value }

func (e Enum) String() string {
	if e.Value == nil {
		return fmt.Sprintf("#%d", e.Index)
	}
	return fmt.Sprintf("#%d(%v)", e.Index, e.Value)
}

// None and Some build values of an Option union.
var None = Enum{Index: 0}

func Some(v any) Enum { return Enum{Index: 1, Value: v} }
