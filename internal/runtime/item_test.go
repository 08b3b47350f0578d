package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemFieldRoundTrip(t *testing.T) {
	it := NewItem()
	it.SetField("title", StringVal("Song"))
	it.SetField("year", IntVal(2001))

	v, ok := it.Field("title")
	assert.True(t, ok)
	s, _ := v.Str()
	assert.Equal(t, "Song", s)

	assert.Equal(t, 2, it.Len())
	assert.False(t, it.IsEmpty())

	old, had := it.RemoveField("year")
	assert.True(t, had)
	y, _ := old.Int()
	assert.Equal(t, int64(2001), y)
	assert.Equal(t, 1, it.Len())
}

func TestItemEqualIsOrderIndependent(t *testing.T) {
	a := ItemFrom(map[string]TypePrimitive{"a": IntVal(1), "b": StringVal("x")})
	b := ItemFrom(map[string]TypePrimitive{"b": StringVal("x"), "a": IntVal(1)})
	assert.True(t, a.Equal(b))

	c := ItemFrom(map[string]TypePrimitive{"a": IntVal(2), "b": StringVal("x")})
	assert.False(t, a.Equal(c))
}

func TestItemKeyIsStableAndOrderIndependent(t *testing.T) {
	a := ItemFrom(map[string]TypePrimitive{"a": IntVal(1), "b": StringVal("x")})
	b := ItemFrom(map[string]TypePrimitive{"b": StringVal("x"), "a": IntVal(1)})
	assert.Equal(t, a.Key(), b.Key())

	c := ItemFrom(map[string]TypePrimitive{"a": IntVal(1), "b": StringVal("y")})
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestItemFieldKey(t *testing.T) {
	a := ItemFrom(map[string]TypePrimitive{"artist": StringVal("Four Tet")})
	key, ok := a.FieldKey("artist")
	assert.True(t, ok)
	assert.Contains(t, key, "Four Tet")

	_, ok = a.FieldKey("missing")
	assert.False(t, ok)
}

func TestItemCloneIsIndependent(t *testing.T) {
	a := NewItem()
	a.SetField("x", IntVal(1))
	b := a.Clone()
	b.SetField("x", IntVal(2))

	v, _ := a.Field("x")
	i, _ := v.Int()
	assert.Equal(t, int64(1), i)
}
