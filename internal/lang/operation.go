package lang

import (
	"github.com/muss-lang/muss/internal/compiler/errors"
	"github.com/muss-lang/muss/internal/runtime"
)

// BoxedOpFactory is an object-safe operator factory: it claims a token
// shape and, if it claims it, builds a runtime.Op from it. This collapses
// the original two-layer OpFactory[T]/BoxedOpFactory trait-object erasure
// (needed in Rust so a Vec<Box<dyn BoxedOpFactory>> can hold heterogeneous
// concrete Op types) into one interface — Go interfaces are already
// erased, so the extra layer buys nothing here.
type BoxedOpFactory interface {
	// IsOp reports whether this factory claims the given token shape. It
	// must not consume tokens.
	IsOp(tokens *TokenQueue) bool

	// BuildOp consumes tokens (claimed by a prior IsOp call) and builds the
	// operator. dict is passed through so nested statements (e.g. function
	// arguments that are themselves operator trees) can recurse.
	BuildOp(tokens *TokenQueue, dict *Dictionary) (runtime.Op, error)
}

// FunctionFactory claims `name(...)`-shaped statements by name and builds
// an Op from the tokens between the parens.
type FunctionFactory interface {
	IsFunction(name string) bool
	BuildFunction(name string, tokens *TokenQueue, dict *Dictionary) (runtime.Op, error)
}

// FunctionStatementFactory adapts a FunctionFactory into a BoxedOpFactory,
// handling the `name ( ... )` token-shape check and the split-off-the-
// trailing-paren dance so functions don't need to enforce bracket
// coherence themselves — a function's body may itself contain balanced or
// even momentarily unbalanced brackets (e.g. `repeat(inner(), 3)`), so the
// only tokens peeled off here are the leading name, the opening paren, and
// the single closing paren matching the *whole* statement.
type FunctionStatementFactory struct {
	Factory FunctionFactory
}

func NewFunctionStatementFactory(f FunctionFactory) *FunctionStatementFactory {
	return &FunctionStatementFactory{Factory: f}
}

func (s *FunctionStatementFactory) IsOp(tokens *TokenQueue) bool {
	if tokens.Len() < 3 {
		return false
	}
	first, _ := tokens.Front()
	if !first.IsName() {
		return false
	}
	if !s.Factory.IsFunction(first.Text) {
		return false
	}
	second := tokens.At(1)
	last, _ := tokens.Back()
	return second.IsOpenBracket() && last.IsCloseBracket()
}

func (s *FunctionStatementFactory) BuildOp(tokens *TokenQueue, dict *Dictionary) (runtime.Op, error) {
	name, err := assertName(tokens)
	if err != nil {
		return nil, err
	}
	if _, err := assertOpenBracket(tokens); err != nil {
		return nil, err
	}
	tail := tokens.SplitOffBack(1)
	op, err := s.Factory.BuildFunction(name, tokens, dict)
	if err != nil {
		return nil, err
	}
	// Factories that split the argument slice (union, repeat, keyword
	// arguments) read it without popping; drop what they left behind.
	for !tokens.Empty() {
		tokens.PopFront()
	}
	tokens.Extend(tail)
	if _, err := assertCloseBracket(tokens); err != nil {
		return nil, err
	}
	return op, nil
}

// RuntimeMsgFrom is a small convenience so vocabulary code can build a
// runtime error without importing the errors package directly everywhere.
func RuntimeMsgFrom(format string, args ...interface{}) errors.RuntimeMsg {
	return errors.NewRuntimeMsg(format, args...)
}
