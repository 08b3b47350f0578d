package runtime

import (
	"fmt"
	"sort"
	"strings"
)

// Item is an order-independent bag of named TypePrimitive fields — a song,
// a directory entry, a database row. Equality and hashing are field-set
// based, never insertion-order based.
type Item struct {
	fields map[string]TypePrimitive
}

// NewItem returns an empty Item.
func NewItem() Item {
	return Item{fields: make(map[string]TypePrimitive)}
}

// ItemFrom builds an Item from a field map, copying it.
func ItemFrom(fields map[string]TypePrimitive) Item {
	it := NewItem()
	for k, v := range fields {
		it.fields[k] = v
	}
	return it
}

// Field looks up a field by name.
func (it Item) Field(name string) (TypePrimitive, bool) {
	v, ok := it.fields[name]
	return v, ok
}

// SetField sets (or overwrites) a field, returning the prior value if any.
func (it Item) SetField(name string, v TypePrimitive) (TypePrimitive, bool) {
	old, had := it.fields[name]
	it.fields[name] = v
	return old, had
}

// RemoveField deletes a field, returning its value if present.
func (it Item) RemoveField(name string) (TypePrimitive, bool) {
	old, had := it.fields[name]
	if had {
		delete(it.fields, name)
	}
	return old, had
}

// Keys returns field names in sorted order (for stable iteration/printing).
func (it Item) Keys() []string {
	keys := make([]string, 0, len(it.fields))
	for k := range it.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len reports the number of fields.
func (it Item) Len() int { return len(it.fields) }

// IsEmpty reports whether the item has no fields.
func (it Item) IsEmpty() bool { return len(it.fields) == 0 }

// Clone returns a deep copy so mutating the copy never affects the original.
func (it Item) Clone() Item {
	cp := NewItem()
	for k, v := range it.fields {
		cp.fields[k] = v
	}
	return cp
}

// Equal reports whether two items have exactly the same fields and values,
// irrespective of insertion order.
func (it Item) Equal(o Item) bool {
	if len(it.fields) != len(o.fields) {
		return false
	}
	for k, v := range it.fields {
		ov, ok := o.fields[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Key renders a canonical, order-independent string identity suitable for
// use as a set-membership key (backs the `unique` predicate's HashSet
// semantics without requiring Item itself to be a comparable Go type).
func (it Item) Key() string {
	keys := it.Keys()
	var sb strings.Builder
	for _, k := range keys {
		v := it.fields[k]
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(v.Kind.String())
		sb.WriteByte(':')
		sb.WriteString(v.AsStr())
		sb.WriteByte(';')
	}
	return sb.String()
}

// FieldKey renders the canonical identity of a single field, used by
// `unique .field` to dedupe on one column instead of the whole item.
func (it Item) FieldKey(name string) (string, bool) {
	v, ok := it.fields[name]
	if !ok {
		return "", false
	}
	return v.Kind.String() + ":" + v.AsStr(), true
}

func (it Item) String() string {
	return fmt.Sprintf("Item(%d fields)", len(it.fields))
}
