package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muss-lang/muss/internal/compiler/errors"
	"github.com/muss-lang/muss/internal/compiler/lexer"
	"github.com/muss-lang/muss/internal/runtime"
)

// buildStatement tokenizes one statement's worth of source and asks the
// standard dictionary to build its Op, the same two steps interp.Runner
// performs per statement.
func buildStatement(t *testing.T, source string) runtime.Op {
	t.Helper()
	lx := lexer.New(source)
	toks, err := lx.ReadStatement(nil)
	require.NoError(t, err)
	require.NotEmpty(t, toks)
	op, err := Standard().TryBuildStatement(NewTokenQueue(toks))
	require.NoError(t, err)
	return op
}

// drainScript builds and drains every statement of source in order against
// one shared Context, returning the items all of them yielded, so scripts
// that bind variables with `let` before using them run as a whole.
func drainScript(t *testing.T, source string, ctx *runtime.Context) []runtime.Item {
	t.Helper()
	lx := lexer.New(source)
	var items []runtime.Item
	for !lx.AtEnd() {
		toks, err := lx.ReadStatement(nil)
		require.NoError(t, err)
		if len(toks) == 0 {
			continue
		}
		op, err := Standard().TryBuildStatement(NewTokenQueue(toks))
		require.NoError(t, err)
		items = append(items, drain(op, ctx)...)
	}
	return items
}

func drain(op runtime.Op, ctx *runtime.Context) []runtime.Item {
	op.Enter(ctx)
	var items []runtime.Item
	for {
		res, ok := op.Next()
		if !ok {
			break
		}
		if res.IsErr() {
			continue
		}
		items = append(items, res.Item)
	}
	op.Escape()
	return items
}

var wellFormedScripts = []string{
	"empties(3);",
	"empties(5).(1..3);",
	"empties(4){ .index = 7 };",
	"files(folder=`.`, recursive=true);",
	"empties(5).(unique);",
	"empties(5)~(.index);",
	"union(empties(2), empties(3));",
	"intersection(empties(2), empties(2));",
}

func TestWellFormedScriptsParseAndDisplayNonEmpty(t *testing.T) {
	for _, src := range wellFormedScripts {
		src := src
		t.Run(src, func(t *testing.T) {
			op := buildStatement(t, src)
			assert.NotEmpty(t, op.String())
		})
	}
}

func TestMalformedBracketsSurfaceParseErrorWithFiniteColumn(t *testing.T) {
	lx := lexer.New("empties(3")
	_, err := lx.ReadStatement(nil)
	require.Error(t, err)

	var parseErr *lexer.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Greater(t, parseErr.Column, 0)
	assert.Greater(t, parseErr.Line, 0)
}

func TestUnrecognizedStatementIsSyntaxError(t *testing.T) {
	lx := lexer.New(")(nonsense")
	toks, err := lx.ReadStatement(nil)
	require.NoError(t, err)

	_, err = Standard().TryBuildStatement(NewTokenQueue(toks))
	require.Error(t, err)
	var synErr *errors.SyntaxError
	require.ErrorAs(t, err, &synErr)
}

func TestResetThenIterateMatchesFreshIterate(t *testing.T) {
	op := buildStatement(t, "empties(4).(1..3);")
	ctx := runtime.NewContext(nil, nil, nil, nil)

	first := drain(op, ctx)
	require.True(t, op.IsResettable())
	require.NoError(t, op.Reset())
	second := drain(op, ctx)

	require.Len(t, first, len(second))
	for i := range first {
		assert.True(t, first[i].Equal(second[i]))
	}
}

func TestDupIterationMatchesOriginal(t *testing.T) {
	op := buildStatement(t, "empties(5).(1..3);")
	dup := op.Dup()
	ctx := runtime.NewContext(nil, nil, nil, nil)

	original := drain(op, ctx)
	copied := drain(dup, runtime.NewContext(nil, nil, nil, nil))

	require.Len(t, original, len(copied))
	for i := range original {
		assert.True(t, original[i].Equal(copied[i]))
	}
}

// TestDupFilterPredicateHasIndependentCursor guards against a filterOp.Dup
// that shares its predicate's mutable cursor (e.g. rangePredicate.index)
// with the original: advancing the dup first must not desynchronize the
// original's own index-based window.
func TestDupFilterPredicateHasIndependentCursor(t *testing.T) {
	op := buildStatement(t, "empties(6).(1..4);")
	dup := op.Dup()

	// Fully drain the dup first; if it shared the original's predicate
	// state, the original would start already past its own window.
	dupResult := drain(dup, runtime.NewContext(nil, nil, nil, nil))
	require.Len(t, dupResult, 3)

	originalResult := drain(op, runtime.NewContext(nil, nil, nil, nil))
	assert.Len(t, originalResult, 3)
}

// TestDupSorterHasIndependentBuffer guards against a sortOp.Dup that shares
// its sorter's buffered item set with the original: draining the dup must
// not empty out the original's own buffer.
func TestDupSorterHasIndependentBuffer(t *testing.T) {
	op := buildStatement(t, "union(empties(1){ .n = 3 }, empties(1){ .n = 1 }, empties(1){ .n = 2 })~(.n);")
	dup := op.Dup()

	dupResult := drain(dup, runtime.NewContext(nil, nil, nil, nil))
	require.Len(t, dupResult, 3)

	originalResult := drain(op, runtime.NewContext(nil, nil, nil, nil))
	require.Len(t, originalResult, 3)

	for _, items := range [][]runtime.Item{dupResult, originalResult} {
		var ns []int64
		for _, item := range items {
			v, ok := item.Field("n")
			require.True(t, ok)
			n, _ := v.Int()
			ns = append(ns, n)
		}
		assert.Equal(t, []int64{1, 2, 3}, ns)
	}
}

func TestFilterCompositionIsIntersection(t *testing.T) {
	all := buildStatement(t, "empties(6);")
	ctx := runtime.NewContext(nil, nil, nil, nil)
	baseline := drain(all, ctx)
	require.Len(t, baseline, 6)

	composed := buildStatement(t, "empties(6).(1..5).(0..3);")
	result := drain(composed, runtime.NewContext(nil, nil, nil, nil))

	// (1..5) keeps indices [1,5), (0..3) re-indexes the survivors and
	// keeps [0,3) of THOSE: positions 1,2,3 of the original six.
	assert.Len(t, result, 3)
}

func TestUniquePrefixDedupLengthNeverExceedsSource(t *testing.T) {
	op := buildStatement(t, "empties(5).(unique);")
	ctx := runtime.NewContext(nil, nil, nil, nil)
	result := drain(op, ctx)
	assert.LessOrEqual(t, len(result), 5)
	// Every empties() item is field-for-field identical, so unique
	// collapses the whole run to its first element.
	assert.Len(t, result, 1)
}

func TestRangeExclusiveVsInclusiveEnd(t *testing.T) {
	exclusive := drain(buildStatement(t, "empties(5).(1..3);"), runtime.NewContext(nil, nil, nil, nil))
	inclusive := drain(buildStatement(t, "empties(5).(1..=3);"), runtime.NewContext(nil, nil, nil, nil))
	assert.Len(t, exclusive, 2)
	assert.Len(t, inclusive, 3)
}
