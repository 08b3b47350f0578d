package lang

import (
	"github.com/muss-lang/muss/internal/compiler/lexer"
	"github.com/muss-lang/muss/internal/runtime"
)

// Sorter is one member of the `~( )` sub-vocabulary. sort is called
// repeatedly as the block is pulled; it may draw zero or more items from
// upstream and push zero or more items into buf (its own working set),
// returning the next item to yield downstream, or ok=false once both
// upstream and buf are exhausted.
type Sorter interface {
	Sort(upstream runtime.Op, ctx *runtime.Context) (runtime.Item, bool, error)
	Reset()
	String() string
	// Clone returns an independent copy so a sortOp's Dup doesn't share a
	// buffered item set or shuffle/bliss-anchor state with the original.
	Clone() Sorter
}

// SorterFactory claims and builds a Sorter from the tokens inside a
// `~( ... )` block.
type SorterFactory interface {
	IsSorter(tokens *TokenQueue) bool
	BuildSorter(tokens *TokenQueue) (Sorter, error)
}

type sortOp struct {
	upstream runtime.Op
	sorter   Sorter
	ctx      *runtime.Context
	done     bool
}

func newSortOp(upstream runtime.Op, sorter Sorter) *sortOp {
	return &sortOp{upstream: upstream, sorter: sorter}
}

func (s *sortOp) String() string {
	return s.upstream.String() + "~(" + s.sorter.String() + ")"
}

func (s *sortOp) Next() (runtime.IterResult, bool) {
	if s.done {
		return runtime.IterResult{}, false
	}
	item, ok, err := s.sorter.Sort(s.upstream, s.ctx)
	if err != nil {
		return runtime.ErrResult(opErr(s, err)), true
	}
	if !ok {
		s.done = true
		return runtime.IterResult{}, false
	}
	return runtime.ItemResult(item), true
}

func (s *sortOp) Enter(ctx *runtime.Context) {
	s.ctx = ctx
	s.upstream.Enter(ctx)
}

func (s *sortOp) Escape() *runtime.Context {
	ctx := s.upstream.Escape()
	s.ctx = nil
	return ctx
}

func (s *sortOp) IsResettable() bool { return s.upstream.IsResettable() }

func (s *sortOp) Reset() error {
	if err := s.upstream.Reset(); err != nil {
		return err
	}
	s.sorter.Reset()
	s.done = false
	return nil
}

func (s *sortOp) Dup() runtime.Op {
	return newSortOp(s.upstream.Dup(), s.sorter.Clone())
}

// SortStatementFactory is the BoxedOpFactory registered for a given sorter
// sub-factory; it claims `<stmt>~( ... )` shapes.
type SortStatementFactory struct {
	Sorter SorterFactory
}

func NewSortStatementFactory(f SorterFactory) *SortStatementFactory {
	return &SortStatementFactory{Sorter: f}
}

// splitTrailingTildeParen mirrors splitTrailingDotParen for `~( )`.
func splitTrailingTildeParen(tokens *TokenQueue) (tildeIdx int, innerStart int, innerEnd int) {
	toks := tokens.Slice()
	n := len(toks)
	if n < 3 {
		return -1, -1, -1
	}
	if !toks[n-1].IsCloseBracket() {
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
	if toks[openIdx-1].Type != lexer.TOKEN_TILDE {
		return -1, -1, -1
	}
	return openIdx - 1, openIdx + 1, n - 1
}

func (s *SortStatementFactory) IsOp(tokens *TokenQueue) bool {
	idx, innerStart, innerEnd := splitTrailingTildeParen(tokens)
	if idx < 0 {
		return false
	}
	inner := NewTokenQueue(append([]lexer.Token{}, tokens.Slice()[innerStart:innerEnd]...))
	return s.Sorter.IsSorter(inner)
}

func (s *SortStatementFactory) BuildOp(tokens *TokenQueue, dict *Dictionary) (runtime.Op, error) {
	idx, innerStart, innerEnd := splitTrailingTildeParen(tokens)
	inner := NewTokenQueue(append([]lexer.Token{}, tokens.Slice()[innerStart:innerEnd]...))
	sorter, err := s.Sorter.BuildSorter(inner)
	if err != nil {
		return nil, err
	}
	upstreamToks := NewTokenQueue(append([]lexer.Token{}, tokens.Slice()[:idx]...))
	upstream, err := dict.TryBuildStatement(upstreamToks)
	if err != nil {
		return nil, err
	}
	return newSortOp(upstream, sorter), nil
}
