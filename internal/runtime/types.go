// Package runtime defines the value model (TypePrimitive, Item, Value),
// the variable store, the Context bundle, the Op lazy-iterator contract and
// the collaborator interfaces every operator node is built against. It sits
// below internal/lang: the parser/vocabulary layer constructs runtime.Op
// trees, but runtime itself never imports the parser.
package runtime

import (
	"fmt"
	"math/big"
	"strconv"
)

// Kind enumerates the primitive value kinds a TypePrimitive can hold.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindUInt
	KindFloat
	KindBool
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindInt:
		return "Int"
	case KindUInt:
		return "UInt"
	case KindFloat:
		return "Float"
	case KindBool:
		return "Bool"
	case KindEmpty:
		return "Empty"
	default:
		return "?"
	}
}

// TypePrimitive is the scalar value type flowing through item fields and
// item-op expressions. It is a small, fully comparable struct, so Equal is
// a plain == comparison; `unique` and `unique .field` dedupe on the string
// keys built by Item.Key and Item.FieldKey instead.
type TypePrimitive struct {
	Kind Kind
	str  string
	i    int64
	u    uint64
	f    float64
	b    bool
}

// StringVal constructs a String primitive.
func StringVal(s string) TypePrimitive { return TypePrimitive{Kind: KindString, str: s} }

// IntVal constructs an Int primitive.
func IntVal(i int64) TypePrimitive { return TypePrimitive{Kind: KindInt, i: i} }

// UIntVal constructs a UInt primitive.
func UIntVal(u uint64) TypePrimitive { return TypePrimitive{Kind: KindUInt, u: u} }

// FloatVal constructs a Float primitive.
func FloatVal(f float64) TypePrimitive { return TypePrimitive{Kind: KindFloat, f: f} }

// BoolVal constructs a Bool primitive.
func BoolVal(b bool) TypePrimitive { return TypePrimitive{Kind: KindBool, b: b} }

// Empty is the singular Empty primitive value.
var Empty = TypePrimitive{Kind: KindEmpty}

// Str returns the wrapped string, if this is a String primitive.
func (t TypePrimitive) Str() (string, bool) {
	if t.Kind != KindString {
		return "", false
	}
	return t.str, true
}

// Int returns the wrapped int64, if this is an Int primitive.
func (t TypePrimitive) Int() (int64, bool) {
	if t.Kind != KindInt {
		return 0, false
	}
	return t.i, true
}

// UInt returns the wrapped uint64, if this is a UInt primitive.
func (t TypePrimitive) UInt() (uint64, bool) {
	if t.Kind != KindUInt {
		return 0, false
	}
	return t.u, true
}

// Float returns the wrapped float64, if this is a Float primitive.
func (t TypePrimitive) Float() (float64, bool) {
	if t.Kind != KindFloat {
		return 0, false
	}
	return t.f, true
}

// Bool returns the wrapped bool, if this is a Bool primitive.
func (t TypePrimitive) Bool() (bool, bool) {
	if t.Kind != KindBool {
		return false, false
	}
	return t.b, true
}

func (t TypePrimitive) isNumeric() bool {
	return t.Kind == KindInt || t.Kind == KindUInt || t.Kind == KindFloat
}

func (t TypePrimitive) asFloat() float64 {
	switch t.Kind {
	case KindInt:
		return float64(t.i)
	case KindUInt:
		return float64(t.u)
	case KindFloat:
		return t.f
	default:
		return 0
	}
}

func (t TypePrimitive) asBig() *big.Int {
	switch t.Kind {
	case KindInt:
		return big.NewInt(t.i)
	case KindUInt:
		return new(big.Int).SetUint64(t.u)
	default:
		return big.NewInt(0)
	}
}

// AsStr renders the primitive's textual form, used by string interpolation
// and error messages — never quoted, just the bare value.
func (t TypePrimitive) AsStr() string {
	switch t.Kind {
	case KindString:
		return t.str
	case KindInt:
		return strconv.FormatInt(t.i, 10)
	case KindUInt:
		return strconv.FormatUint(t.u, 10)
	case KindFloat:
		return strconv.FormatFloat(t.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(t.b)
	case KindEmpty:
		return ""
	default:
		return ""
	}
}

// String implements fmt.Stringer for use in error messages and Display.
func (t TypePrimitive) String() string {
	switch t.Kind {
	case KindString:
		return fmt.Sprintf("%q", t.str)
	case KindEmpty:
		return "<empty>"
	default:
		return t.AsStr()
	}
}

// Compare performs a three-valued comparison, coercing numerics to a common
// domain: Int/UInt pairs widen through an arbitrary-precision integer for
// exact cross-sign comparison, and any pairing involving a Float compares as
// float64. Returns -1, 0 or 1. Strings compare lexically; Bools compare
// false < true.
func (t TypePrimitive) Compare(o TypePrimitive) (int8, error) {
	switch {
	case t.Kind == KindString && o.Kind == KindString:
		switch {
		case t.str < o.str:
			return -1, nil
		case t.str > o.str:
			return 1, nil
		default:
			return 0, nil
		}
	case t.Kind == KindBool && o.Kind == KindBool:
		switch {
		case t.b == o.b:
			return 0, nil
		case !t.b && o.b:
			return -1, nil
		default:
			return 1, nil
		}
	case t.isNumeric() && o.isNumeric():
		if t.Kind == KindFloat || o.Kind == KindFloat {
			a, b := t.asFloat(), o.asFloat()
			switch {
			case a < b:
				return -1, nil
			case a > b:
				return 1, nil
			default:
				return 0, nil
			}
		}
		return int8(t.asBig().Cmp(o.asBig())), nil
	default:
		return 0, fmt.Errorf("cannot compare %s (%s) with %s (%s)", t, t.Kind, o, o.Kind)
	}
}

// Equal reports field-wise, kind-aware equality.
func (t TypePrimitive) Equal(o TypePrimitive) bool {
	return t == o
}

// TryAdd implements `+`: numeric addition (sign-aware, widening through an
// arbitrary-precision integer when both sides are integral) or string
// concatenation. Any other combination is a runtime failure.
func (t TypePrimitive) TryAdd(o TypePrimitive) (TypePrimitive, error) {
	if t.Kind == KindString && o.Kind == KindString {
		return StringVal(t.str + o.str), nil
	}
	if !t.isNumeric() || !o.isNumeric() {
		return TypePrimitive{}, fmt.Errorf("cannot add %s and %s: not compatible primitive types", t.Kind, o.Kind)
	}
	if t.Kind == KindFloat || o.Kind == KindFloat {
		return FloatVal(t.asFloat() + o.asFloat()), nil
	}
	if t.Kind == KindUInt && o.Kind == KindUInt {
		return UIntVal(t.u + o.u), nil
	}
	sum := new(big.Int).Add(t.asBig(), o.asBig())
	return IntVal(sum.Int64()), nil
}

// TrySub implements `-` on numerics only.
func (t TypePrimitive) TrySub(o TypePrimitive) (TypePrimitive, error) {
	if !t.isNumeric() || !o.isNumeric() {
		return TypePrimitive{}, fmt.Errorf("cannot subtract %s and %s: not compatible primitive types", t.Kind, o.Kind)
	}
	if t.Kind == KindFloat || o.Kind == KindFloat {
		return FloatVal(t.asFloat() - o.asFloat()), nil
	}
	if t.Kind == KindUInt && o.Kind == KindUInt {
		if t.u >= o.u {
			return UIntVal(t.u - o.u), nil
		}
		diff := new(big.Int).Sub(t.asBig(), o.asBig())
		return IntVal(diff.Int64()), nil
	}
	diff := new(big.Int).Sub(t.asBig(), o.asBig())
	return IntVal(diff.Int64()), nil
}

// Negate implements unary `-`. UInt negates into a (likely negative) Int.
func (t TypePrimitive) Negate() (TypePrimitive, error) {
	switch t.Kind {
	case KindInt:
		return IntVal(-t.i), nil
	case KindUInt:
		return IntVal(-int64(t.u)), nil
	case KindFloat:
		return FloatVal(-t.f), nil
	default:
		return TypePrimitive{}, fmt.Errorf("cannot negate %s: not a numeric type", t.Kind)
	}
}

// Not implements logical `!` on Bool only.
func (t TypePrimitive) Not() (TypePrimitive, error) {
	if t.Kind != KindBool {
		return TypePrimitive{}, fmt.Errorf("cannot negate %s: not a Bool", t.Kind)
	}
	return BoolVal(!t.b), nil
}
