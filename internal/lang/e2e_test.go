package lang_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muss-lang/muss/internal/interp"
	"github.com/muss-lang/muss/internal/runtime"
)

// fakeDB is a minimal runtime.DatabaseQuerier used by scripts that never
// actually touch sql()/simple_sql()/sql_init() in these end-to-end tests.
type fakeDB struct{}

func (fakeDB) Raw(string) (runtime.Op, error)                  { return runtime.NewItemSliceOp(nil), nil }
func (fakeDB) InitWithParams(map[string]runtime.Value) error   { return nil }

type fakeFS struct{}

func (fakeFS) Raw(string, int, string, bool) (runtime.Op, error) {
	return runtime.NewItemSliceOp(nil), nil
}
func (fakeFS) Single(string, string) (runtime.Item, error) { return runtime.NewItem(), nil }
func (fakeFS) ReadPlaylist(string) (runtime.Op, error)     { return runtime.NewItemSliceOp(nil), nil }

type fakeAnalysis struct{}

func (fakeAnalysis) PrepareDistance(a, b runtime.Item) error        { return nil }
func (fakeAnalysis) GetDistance(a, b runtime.Item) (float64, error) { return 0, nil }

type fakeMpd struct{}

func (fakeMpd) Connect(string) error                                { return nil }
func (fakeMpd) Search(map[string]string) ([]runtime.Item, error) { return nil, nil }

func freshContext() *runtime.Context {
	return runtime.NewContext(fakeDB{}, fakeFS{}, fakeAnalysis{}, fakeMpd{})
}

func runScript(t *testing.T, source string) *interp.Result {
	t.Helper()
	runner := interp.NewRunner(nil)
	result, err := runner.Run(source, freshContext())
	require.NoError(t, err)
	return result
}

func TestScenarioEmptiesYieldsEmptyItems(t *testing.T) {
	result := runScript(t, "empties(3);")
	require.Len(t, result.Items, 3)
	for _, item := range result.Items {
		assert.True(t, item.IsEmpty())
	}
	assert.Empty(t, result.Warnings)
}

func TestScenarioEmptiesRangeFilter(t *testing.T) {
	result := runScript(t, "empties(5).(1..3);")
	assert.Len(t, result.Items, 2)
	assert.Empty(t, result.Warnings)
}

func TestScenarioEmptiesItemBlockSetsField(t *testing.T) {
	result := runScript(t, "empties(4){ .index = 7 };")
	require.Len(t, result.Items, 4)
	for _, item := range result.Items {
		v, ok := item.Field("index")
		require.True(t, ok)
		i, _ := v.Int()
		assert.Equal(t, int64(7), i)
	}
}

func TestScenarioLetRetrieveWithoutResetExhausts(t *testing.T) {
	result := runScript(t, "let a = iter empties(2); a; a")
	assert.Len(t, result.Items, 2)
}

func TestScenarioLetRetrieveWithReset(t *testing.T) {
	result := runScript(t, "let a = iter empties(2); a; reset(a); a")
	assert.Len(t, result.Items, 4)
}

func TestScenarioEmptiesNegativeCountIsRuntimeError(t *testing.T) {
	result := runScript(t, "empties(-1);")
	assert.Empty(t, result.Items)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Error(), "UInt")
}

func TestScenarioAddingItemToIntIsRuntimeError(t *testing.T) {
	result := runScript(t, "empties(1){ Item(x = 1) + 2 };")
	assert.Empty(t, result.Items)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Error(), "Cannot add left-hand side")
	assert.Contains(t, result.Warnings[0].Error(), "not primitive type")
}

func TestFilterCompositionIsConjunctive(t *testing.T) {
	result := runScript(t, `
		let a = iter empties(2){ .n = 1 };
		let b = iter empties(3){ .n = 2 };
		let c = iter empties(2){ .n = 3 };
		union(a, b, c).(.n >= 2).(.n <= 2);
	`)
	require.Len(t, result.Items, 3)
	for _, item := range result.Items {
		v, ok := item.Field("n")
		require.True(t, ok)
		n, _ := v.Int()
		assert.Equal(t, int64(2), n)
	}
}

func TestUniqueDedupes(t *testing.T) {
	result := runScript(t, `
		let a = iter empties(2);
		let b = iter empties(2);
		union(a, b).(unique);
	`)
	require.Len(t, result.Items, 1)
}
