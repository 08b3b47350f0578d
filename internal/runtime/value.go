package runtime

import "fmt"

// ValueKind enumerates what a Value in the variable store currently holds.
type ValueKind uint8

const (
	ValueKindOp ValueKind = iota
	ValueKindPrimitive
	ValueKindItem
)

// Value is the tagged union stored by a VariableStore: a live operator
// subtree, a scalar primitive, or a standalone item. Exactly one of Op /
// Primitive / Item is meaningful, selected by Kind.
type Value struct {
	Kind      ValueKind
	Op        Op
	Primitive TypePrimitive
	Item      Item
}

// OpValue wraps a live operator node.
func OpValue(op Op) Value { return Value{Kind: ValueKindOp, Op: op} }

// PrimitiveValue wraps a scalar.
func PrimitiveValue(p TypePrimitive) Value { return Value{Kind: ValueKindPrimitive, Primitive: p} }

// ItemValue wraps a standalone item.
func ItemValue(it Item) Value { return Value{Kind: ValueKindItem, Item: it} }

// IsOp, IsPrimitive and IsItem report the Value's current kind.
func (v Value) IsOp() bool        { return v.Kind == ValueKindOp }
func (v Value) IsPrimitive() bool { return v.Kind == ValueKindPrimitive }
func (v Value) IsItem() bool      { return v.Kind == ValueKindItem }

func (v Value) String() string {
	switch v.Kind {
	case ValueKindOp:
		if v.Op != nil {
			return v.Op.String()
		}
		return "<nil Op>"
	case ValueKindPrimitive:
		return v.Primitive.String()
	case ValueKindItem:
		return v.Item.String()
	default:
		return fmt.Sprintf("<unknown value kind %d>", v.Kind)
	}
}
