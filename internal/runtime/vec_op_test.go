package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemsOf(titles ...string) []Item {
	items := make([]Item, len(titles))
	for i, title := range titles {
		items[i] = ItemFrom(map[string]TypePrimitive{"title": StringVal(title)})
	}
	return items
}

func TestItemSliceOpDrainsInOrder(t *testing.T) {
	op := NewItemSliceOp(itemsOf("a", "b", "c"))
	op.Enter(&Context{})

	var got []string
	for {
		res, ok := op.Next()
		if !ok {
			break
		}
		require.False(t, res.IsErr())
		title, _ := res.Item.Field("title")
		s, _ := title.Str()
		got = append(got, s)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)

	_, ok := op.Next()
	assert.False(t, ok)
}

func TestItemSliceOpReset(t *testing.T) {
	op := NewItemSliceOp(itemsOf("a", "b"))
	op.Enter(&Context{})
	op.Next()
	op.Next()
	_, ok := op.Next()
	assert.False(t, ok)

	assert.True(t, op.IsResettable())
	require.NoError(t, op.Reset())

	res, ok := op.Next()
	assert.True(t, ok)
	title, _ := res.Item.Field("title")
	s, _ := title.Str()
	assert.Equal(t, "a", s)
}

func TestItemSliceOpDupIsIndependent(t *testing.T) {
	op := NewItemSliceOp(itemsOf("a", "b"))
	op.Enter(&Context{})
	op.Next()

	dup := op.Dup()
	dupSlice, ok := dup.(*ItemSliceOp)
	require.True(t, ok)
	assert.Equal(t, 0, dupSlice.index)
	assert.Equal(t, 1, op.index)
}

func TestItemSliceOpString(t *testing.T) {
	op := NewItemSliceOp(itemsOf("a", "b"))
	assert.Equal(t, "*vec*[0..2]", op.String())
}
