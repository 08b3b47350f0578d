package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muss-lang/muss/internal/runtime"
)

func song(title string) runtime.Item {
	return runtime.ItemFrom(map[string]runtime.TypePrimitive{"title": runtime.StringVal(title)})
}

func TestAnalyzerGetDistanceIsDeterministic(t *testing.T) {
	a := New()
	x, y := song("Windowlicker"), song("Xtal")

	require.NoError(t, a.PrepareDistance(x, y))
	d1, err := a.GetDistance(x, y)
	require.NoError(t, err)
	d2, err := a.GetDistance(x, y)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestAnalyzerGetDistanceIsSymmetric(t *testing.T) {
	a := New()
	x, y := song("Windowlicker"), song("Xtal")

	d1, err := a.GetDistance(x, y)
	require.NoError(t, err)
	d2, err := a.GetDistance(y, x)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestAnalyzerGetDistanceZeroForEqualItems(t *testing.T) {
	a := New()
	x := song("Same")
	d, err := a.GetDistance(x, x)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d)
}

func TestAnalyzerGetDistanceDiffersForDifferentItems(t *testing.T) {
	a := New()
	x, y := song("Aphex Twin"), song("Boards of Canada")
	d, err := a.GetDistance(x, y)
	require.NoError(t, err)
	assert.NotEqual(t, 0.0, d)
}
