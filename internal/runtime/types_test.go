package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypePrimitiveCompare(t *testing.T) {
	c, err := IntVal(3).Compare(IntVal(5))
	assert.NoError(t, err)
	assert.Equal(t, int8(-1), c)

	c, err = UIntVal(5).Compare(IntVal(3))
	assert.NoError(t, err)
	assert.Equal(t, int8(1), c)

	c, err = FloatVal(1.5).Compare(IntVal(1))
	assert.NoError(t, err)
	assert.Equal(t, int8(1), c)

	c, err = StringVal("a").Compare(StringVal("b"))
	assert.NoError(t, err)
	assert.Equal(t, int8(-1), c)

	c, err = BoolVal(false).Compare(BoolVal(true))
	assert.NoError(t, err)
	assert.Equal(t, int8(-1), c)

	_, err = StringVal("a").Compare(IntVal(1))
	assert.Error(t, err)
}

func TestTypePrimitiveTryAdd(t *testing.T) {
	sum, err := IntVal(2).TryAdd(IntVal(3))
	assert.NoError(t, err)
	i, ok := sum.Int()
	assert.True(t, ok)
	assert.Equal(t, int64(5), i)

	sum, err = StringVal("foo").TryAdd(StringVal("bar"))
	assert.NoError(t, err)
	s, ok := sum.Str()
	assert.True(t, ok)
	assert.Equal(t, "foobar", s)

	_, err = StringVal("foo").TryAdd(IntVal(2))
	assert.Error(t, err)
}

func TestTypePrimitiveTrySub(t *testing.T) {
	diff, err := UIntVal(3).TrySub(UIntVal(5))
	assert.NoError(t, err)
	i, ok := diff.Int()
	assert.True(t, ok)
	assert.Equal(t, int64(-2), i)
}

func TestTypePrimitiveNegateAndNot(t *testing.T) {
	neg, err := IntVal(4).Negate()
	assert.NoError(t, err)
	i, _ := neg.Int()
	assert.Equal(t, int64(-4), i)

	_, err = StringVal("x").Negate()
	assert.Error(t, err)

	b, err := BoolVal(true).Not()
	assert.NoError(t, err)
	v, _ := b.Bool()
	assert.False(t, v)
}

func TestTypePrimitiveAsStr(t *testing.T) {
	assert.Equal(t, "5", IntVal(5).AsStr())
	assert.Equal(t, "true", BoolVal(true).AsStr())
	assert.Equal(t, "", Empty.AsStr())
}
