package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muss-lang/muss/internal/runtime"
)

func TestFieldSorterIsStableAmongEqualKeys(t *testing.T) {
	ctx := runtime.NewContext(nil, nil, nil, nil)
	result := drainScript(t, `
		let a = iter empties(1){ .group = 1; .seq = 1 };
		let b = iter empties(1){ .group = 2; .seq = 1 };
		let c = iter empties(1){ .group = 1; .seq = 2 };
		let d = iter empties(1){ .group = 2; .seq = 2 };
		union(a, b, c, d)~(.group);
	`, ctx)
	require.Len(t, result, 4)

	var seqs []int64
	for _, item := range result {
		v, ok := item.Field("seq")
		require.True(t, ok)
		n, _ := v.Int()
		seqs = append(seqs, n)
	}
	// Both groups keep their original relative order (seq 1 before seq 2)
	// even after the stable sort reorders by group.
	assert.Equal(t, []int64{1, 2, 1, 2}, seqs)
}

func TestRepeatCyclesInnerUpToCount(t *testing.T) {
	op := buildStatement(t, "repeat(empties(2), 3);")
	ctx := runtime.NewContext(nil, nil, nil, nil)
	result := drain(op, ctx)
	assert.Len(t, result, 6)
}

func TestIntersectionKeepsFirstChildOrderForSharedKeys(t *testing.T) {
	op := buildStatement(t, "intersection(empties(2), empties(3));")
	ctx := runtime.NewContext(nil, nil, nil, nil)
	result := drain(op, ctx)
	// Every empties() item shares the same (empty) key, so all of the
	// first child's items are "in" the second child's membership set.
	assert.Len(t, result, 2)
}

func TestFieldCompareFilterPredicate(t *testing.T) {
	ctx := runtime.NewContext(nil, nil, nil, nil)
	result := drainScript(t, `
		let a = iter empties(1){ .year = 1999 };
		let b = iter empties(1){ .year = 2005 };
		union(a, b).(.year >= 2000);
	`, ctx)
	require.Len(t, result, 1)
	v, ok := result[0].Field("year")
	require.True(t, ok)
	n, _ := v.Int()
	assert.Equal(t, int64(2005), n)
}

func TestFieldMatchesFilterPredicate(t *testing.T) {
	ctx := runtime.NewContext(nil, nil, nil, nil)
	result := drainScript(t, `
		let a = iter empties(1){ .title = `+"`windowlicker`"+` };
		let b = iter empties(1){ .title = `+"`xtal`"+` };
		union(a, b).(.title matches `+"`^win`"+`);
	`, ctx)
	require.Len(t, result, 1)
	v, ok := result[0].Field("title")
	require.True(t, ok)
	s, _ := v.Str()
	assert.Equal(t, "windowlicker", s)
}

func TestSqlInitRequiresDatabaseCollaborator(t *testing.T) {
	op := buildStatement(t, "sql_init(dsn=`./test.db`);")
	ctx := runtime.NewContext(nil, nil, nil, nil)
	result := drain(op, ctx)
	assert.Empty(t, result)
}
