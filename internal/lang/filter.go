package lang

import (
	"github.com/muss-lang/muss/internal/compiler/errors"
	"github.com/muss-lang/muss/internal/compiler/lexer"
	"github.com/muss-lang/muss/internal/runtime"
)

// opErr attaches op's diagnostic identity to a plain error, producing a
// RuntimeError ready to yield from Next().
func opErr(op runtime.Op, err error) *errors.RuntimeError {
	if re, ok := err.(*errors.RuntimeError); ok {
		return re
	}
	return runtime.RealOp(op).AsRuntimeMsg(errors.NewRuntimeMsg("%s", err.Error()))
}

// FilterPredicate is one member of the `.( )` sub-vocabulary: given an item
// and the live Context, it decides whether the item passes.
type FilterPredicate interface {
	Matches(item runtime.Item, ctx *runtime.Context) (bool, error)
	// IsComplete reports whether this predicate will never again return
	// true, letting the filter block stop pulling from upstream early
	// (used by the range predicate once its window has closed).
	IsComplete() bool
	Reset()
	String() string
	// Clone returns an independent copy so a filterOp's Dup doesn't share
	// mutable iteration state (index counters, seen-sets) with the
	// original.
	Clone() FilterPredicate
}

// FilterFactory claims and builds a FilterPredicate from the tokens inside
// a `.( ... )` block.
type FilterFactory interface {
	IsFilter(tokens *TokenQueue) bool
	BuildFilter(tokens *TokenQueue) (FilterPredicate, error)
}

// filterOp wraps an upstream Op plus a FilterPredicate into the Op the
// filter block statement actually builds.
type filterOp struct {
	upstream  runtime.Op
	predicate FilterPredicate
	ctx       *runtime.Context
	index     int
	done      bool
}

func newFilterOp(upstream runtime.Op, predicate FilterPredicate) *filterOp {
	return &filterOp{upstream: upstream, predicate: predicate}
}

func (f *filterOp) String() string {
	return f.upstream.String() + ".(" + f.predicate.String() + ")"
}

func (f *filterOp) Next() (runtime.IterResult, bool) {
	if f.done || f.predicate.IsComplete() {
		f.done = true
		return runtime.IterResult{}, false
	}
	for {
		res, ok := f.upstream.Next()
		if !ok {
			f.done = true
			return runtime.IterResult{}, false
		}
		if res.IsErr() {
			f.index++
			return res, true
		}
		matched, err := f.predicate.Matches(res.Item, f.ctx)
		f.index++
		if err != nil {
			return runtime.ErrResult(opErr(f, err)), true
		}
		if matched {
			if f.predicate.IsComplete() {
				// This is the last matching item; don't pull upstream again.
			}
			return runtime.ItemResult(res.Item), true
		}
		if f.predicate.IsComplete() {
			f.done = true
			return runtime.IterResult{}, false
		}
	}
}

func (f *filterOp) Enter(ctx *runtime.Context) {
	f.ctx = ctx
	f.upstream.Enter(ctx)
}

func (f *filterOp) Escape() *runtime.Context {
	ctx := f.upstream.Escape()
	f.ctx = nil
	return ctx
}

func (f *filterOp) IsResettable() bool { return f.upstream.IsResettable() }

func (f *filterOp) Reset() error {
	if err := f.upstream.Reset(); err != nil {
		return err
	}
	f.predicate.Reset()
	f.index = 0
	f.done = false
	return nil
}

func (f *filterOp) Dup() runtime.Op {
	return newFilterOp(f.upstream.Dup(), f.predicate.Clone())
}

// FilterStatementFactory is the BoxedOpFactory registered in the standard
// vocabulary for a given filter sub-factory; it claims `<stmt>.( ... )`
// shapes where the inner tokens are claimed by the wrapped FilterFactory.
type FilterStatementFactory struct {
	Filter FilterFactory
}

func NewFilterStatementFactory(f FilterFactory) *FilterStatementFactory {
	return &FilterStatementFactory{Filter: f}
}

// splitTrailingDotParen finds the `.( ... )` suffix of tokens, if any, and
// returns the index of the `.` token, or -1 if the statement doesn't end in
// a parenthesized postfix block at all (bracket-depth aware, so nested
// `.( )` or `~( )` blocks inside an earlier part of the statement don't
// fool the scan).
func splitTrailingDotParen(tokens *TokenQueue) (dotIdx int, innerStart int, innerEnd int) {
	toks := tokens.Slice()
	n := len(toks)
	if n < 3 {
		return -1, -1, -1
	}
	last := toks[n-1]
	if !last.IsCloseBracket() {
		return -1, -1, -1
	}
	depth := 0
	openIdx := -1
	for i := n - 1; i >= 0; i-- {
		t := toks[i]
		if t.IsCloseBracket() {
			depth++
		} else if t.IsOpenBracket() {
			depth--
			if depth == 0 {
				openIdx = i
				break
			}
		}
	}
	if openIdx < 1 {
		return -1, -1, -1
	}
	dot := toks[openIdx-1]
	if !dot.IsDot() {
		return -1, -1, -1
	}
	return openIdx - 1, openIdx + 1, n - 1
}

func (s *FilterStatementFactory) IsOp(tokens *TokenQueue) bool {
	dotIdx, innerStart, innerEnd := splitTrailingDotParen(tokens)
	if dotIdx < 0 {
		return false
	}
	inner := NewTokenQueue(append([]lexer.Token{}, tokens.Slice()[innerStart:innerEnd]...))
	return s.Filter.IsFilter(inner)
}

func (s *FilterStatementFactory) BuildOp(tokens *TokenQueue, dict *Dictionary) (runtime.Op, error) {
	dotIdx, innerStart, innerEnd := splitTrailingDotParen(tokens)
	inner := NewTokenQueue(append([]lexer.Token{}, tokens.Slice()[innerStart:innerEnd]...))
	predicate, err := s.Filter.BuildFilter(inner)
	if err != nil {
		return nil, err
	}
	upstreamToks := NewTokenQueue(append([]lexer.Token{}, tokens.Slice()[:dotIdx]...))
	upstream, err := dict.TryBuildStatement(upstreamToks)
	if err != nil {
		return nil, err
	}
	return newFilterOp(upstream, predicate), nil
}
