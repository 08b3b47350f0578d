package lang

import (
	"github.com/muss-lang/muss/internal/compiler/lexer"
	"github.com/muss-lang/muss/internal/runtime"
)

// ItemOp is one expression inside a `{ expr; expr; ... }` block. Execute
// reads/writes through ctx.Variables — in particular the "item" variable,
// which every block iteration binds to the current item before running its
// expressions — rather than taking the item as a direct parameter, mirroring
// the original `execute(&self, context: &mut Context) -> Result<Type, RuntimeMsg>`
// signature.
type ItemOp interface {
	Execute(ctx *runtime.Context) (runtime.Value, error)
	String() string
}

// itemBlockOp is the Op an item-op block statement builds: for every item
// the upstream yields, it binds "item", runs each expression in order, and
// decides whether to yield the (possibly mutated) item or drop it.
type itemBlockOp struct {
	upstream runtime.Op
	exprs    []ItemOp
	ctx      *runtime.Context
}

func newItemBlockOp(upstream runtime.Op, exprs []ItemOp) *itemBlockOp {
	return &itemBlockOp{upstream: upstream, exprs: exprs}
}

func (b *itemBlockOp) String() string {
	return b.upstream.String() + "{...}"
}

func (b *itemBlockOp) Next() (runtime.IterResult, bool) {
	for {
		res, ok := b.upstream.Next()
		if !ok {
			return runtime.IterResult{}, false
		}
		if res.IsErr() {
			return res, true
		}
		prev, hadPrev := b.ctx.Variables.Swap("item", runtime.ItemValue(res.Item.Clone()))
		var execErr error
		for _, expr := range b.exprs {
			_, execErr = expr.Execute(b.ctx)
			if execErr != nil {
				break
			}
		}
		final, _ := b.ctx.Variables.Remove("item")
		if hadPrev {
			b.ctx.Variables.Declare("item", prev)
		}
		if execErr != nil {
			return runtime.ErrResult(opErr(b, execErr)), true
		}
		// "item" stays bound to an Item for the whole block unless some
		// expression removes it outright (e.g. `remove item`); a field
		// assignment's own Empty return (itemop_nodes.go's fieldAssignItemOp)
		// is not a signal to drop — only losing the Item binding is.
		if final.Kind != runtime.ValueKindItem {
			continue
		}
		return runtime.ItemResult(final.Item), true
	}
}

func (b *itemBlockOp) Enter(ctx *runtime.Context) {
	b.ctx = ctx
	b.upstream.Enter(ctx)
}

func (b *itemBlockOp) Escape() *runtime.Context {
	ctx := b.upstream.Escape()
	b.ctx = nil
	return ctx
}

func (b *itemBlockOp) IsResettable() bool { return b.upstream.IsResettable() }

func (b *itemBlockOp) Reset() error { return b.upstream.Reset() }

func (b *itemBlockOp) Dup() runtime.Op {
	return newItemBlockOp(b.upstream.Dup(), b.exprs)
}

// ItemBlockFactory is the BoxedOpFactory registered for `<stmt>{ ... }`.
type ItemBlockFactory struct{}

// splitTrailingBrace locates a balanced `{ ... }` suffix.
func splitTrailingBrace(tokens *TokenQueue) (braceIdx int, innerStart int, innerEnd int) {
	toks := tokens.Slice()
	n := len(toks)
	if n < 2 {
		return -1, -1, -1
	}
	if toks[n-1].Type != lexer.TOKEN_RBRACE {
		return -1, -1, -1
	}
	depth := 0
	openIdx := -1
	for i := n - 1; i >= 0; i-- {
		switch toks[i].Type {
		case lexer.TOKEN_RBRACE:
			depth++
		case lexer.TOKEN_LBRACE:
			depth--
			if depth == 0 {
				openIdx = i
			}
		}
		if openIdx >= 0 {
			break
		}
	}
	if openIdx < 0 {
		return -1, -1, -1
	}
	return openIdx, openIdx + 1, n - 1
}

func (f *ItemBlockFactory) IsOp(tokens *TokenQueue) bool {
	idx, _, _ := splitTrailingBrace(tokens)
	return idx >= 0
}

func (f *ItemBlockFactory) BuildOp(tokens *TokenQueue, dict *Dictionary) (runtime.Op, error) {
	braceIdx, innerStart, innerEnd := splitTrailingBrace(tokens)
	inner := tokens.Slice()[innerStart:innerEnd]
	exprGroups := splitTopLevel(inner, lexer.TOKEN_SEMICOLON)
	exprs := make([]ItemOp, 0, len(exprGroups))
	for _, group := range exprGroups {
		if len(group) == 0 {
			continue
		}
		q := NewTokenQueue(append([]lexer.Token{}, group...))
		expr, err := parseItemExpr(q, dict)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
	}
	upstreamToks := NewTokenQueue(append([]lexer.Token{}, tokens.Slice()[:braceIdx]...))
	upstream, err := dict.TryBuildStatement(upstreamToks)
	if err != nil {
		return nil, err
	}
	return newItemBlockOp(upstream, exprs), nil
}

// splitTopLevel splits toks on every depth-0 occurrence of sep.
func splitTopLevel(toks []lexer.Token, sep lexer.TokenType) [][]lexer.Token {
	var groups [][]lexer.Token
	depth := 0
	start := 0
	for i, t := range toks {
		if t.IsOpenBracket() {
			depth++
		} else if t.IsCloseBracket() {
			depth--
		} else if t.Type == sep && depth == 0 {
			groups = append(groups, toks[start:i])
			start = i + 1
		}
	}
	groups = append(groups, toks[start:])
	return groups
}
