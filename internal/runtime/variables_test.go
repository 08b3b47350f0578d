package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapVariableStoreDeclareGetAssign(t *testing.T) {
	s := NewMapVariableStore()

	assert.False(t, s.Exists("a"))
	require.NoError(t, s.Declare("a", PrimitiveValue(IntVal(1))))
	assert.True(t, s.Exists("a"))

	err := s.Declare("a", PrimitiveValue(IntVal(2)))
	assert.Error(t, err)

	v, err := s.Get("a")
	require.NoError(t, err)
	i, _ := v.Primitive.Int()
	assert.Equal(t, int64(1), i)

	require.NoError(t, s.Assign("a", PrimitiveValue(IntVal(9))))
	v, _ = s.Get("a")
	i, _ = v.Primitive.Int()
	assert.Equal(t, int64(9), i)

	err = s.Assign("missing", PrimitiveValue(IntVal(1)))
	assert.Error(t, err)

	_, err = s.Get("missing")
	assert.Error(t, err)
}

func TestMapVariableStoreRemoveAndSwap(t *testing.T) {
	s := NewMapVariableStore()
	require.NoError(t, s.Declare("a", PrimitiveValue(IntVal(1))))

	v, ok := s.Remove("a")
	assert.True(t, ok)
	i, _ := v.Primitive.Int()
	assert.Equal(t, int64(1), i)
	assert.False(t, s.Exists("a"))

	_, ok = s.Remove("a")
	assert.False(t, ok)

	old, had := s.Swap("b", PrimitiveValue(IntVal(5)))
	assert.False(t, had)
	assert.True(t, s.Exists("b"))

	old, had = s.Swap("b", PrimitiveValue(IntVal(6)))
	assert.True(t, had)
	i, _ = old.Primitive.Int()
	assert.Equal(t, int64(5), i)

	v, _ = s.Get("b")
	i, _ = v.Primitive.Int()
	assert.Equal(t, int64(6), i)
}
