package lang

import (
	"fmt"

	"github.com/muss-lang/muss/internal/compiler/lexer"
	"github.com/muss-lang/muss/internal/runtime"
)

// ---- reset(name) ----------------------------------------------------------

// resetOp forces re-iteration of a variable-bound operator subtree: on its
// first Next it reaches directly into the variable store and calls Reset on
// whatever Op is currently bound to name (not a freshly parsed statement
// over name — the whole point is to mutate the live, shared instance a
// variable-retrieve source would otherwise keep pulling from). It never
// yields an item.
type resetOp struct {
	name string
	ctx  *runtime.Context
	done bool
}

func (o *resetOp) String() string { return "reset(" + o.name + ")" }

func (o *resetOp) Next() (runtime.IterResult, bool) {
	if o.done {
		return runtime.IterResult{}, false
	}
	o.done = true
	val, err := o.ctx.Variables.Get(o.name)
	if err != nil {
		return runtime.ErrResult(opErr(o, err)), true
	}
	if val.IsOp() {
		if rerr := val.Op.Reset(); rerr != nil {
			return runtime.ErrResult(opErr(o, rerr)), true
		}
	}
	return runtime.IterResult{}, false
}

func (o *resetOp) Enter(ctx *runtime.Context) { o.ctx = ctx }
func (o *resetOp) Escape() *runtime.Context    { ctx := o.ctx; o.ctx = nil; return ctx }
func (o *resetOp) IsResettable() bool          { return true }
func (o *resetOp) Reset() error                { o.done = false; return nil }
func (o *resetOp) Dup() runtime.Op             { return &resetOp{name: o.name} }

type resetFactory struct{}

func (resetFactory) IsFunction(name string) bool { return name == "reset" }
func (resetFactory) BuildFunction(_ string, tokens *TokenQueue, _ *Dictionary) (runtime.Op, error) {
	name, err := assertName(tokens)
	if err != nil {
		return nil, err
	}
	if !tokens.Empty() {
		tok, _ := tokens.Front()
		return nil, syntaxErr("end of arguments", &tok)
	}
	return &resetOp{name: name}, nil
}

// ---- repeat(op, count?) ---------------------------------------------------

// repeatOp iterates inner to exhaustion, resets it, and iterates again, up
// to count total passes (unbounded when count is omitted).
type repeatOp struct {
	inner         runtime.Op
	count         Lookup
	hasCount      bool
	ctx           *runtime.Context
	pass          uint64
	maxPasses     uint64
	resolvedCount bool
	exhausted     bool
}

func (o *repeatOp) String() string {
	if o.hasCount {
		return "repeat(" + o.inner.String() + ", " + o.count.String() + ")"
	}
	return "repeat(" + o.inner.String() + ")"
}

func (o *repeatOp) Next() (runtime.IterResult, bool) {
	if o.exhausted {
		return runtime.IterResult{}, false
	}
	if !o.resolvedCount {
		o.resolvedCount = true
		o.pass = 1
		if o.hasCount {
			v, err := o.count.Get(o.ctx)
			if err != nil {
				o.exhausted = true
				return runtime.ErrResult(opErr(o, err)), true
			}
			n, ok := asUint(v)
			if !ok {
				o.exhausted = true
				return runtime.ErrResult(opErr(o, fmt.Errorf("repeat count %s is not a non-negative UInt", v))), true
			}
			o.maxPasses = n
			if n == 0 {
				o.exhausted = true
				return runtime.IterResult{}, false
			}
		}
	}
	for {
		res, ok := o.inner.Next()
		if ok {
			return res, true
		}
		if o.hasCount && o.pass >= o.maxPasses {
			o.exhausted = true
			return runtime.IterResult{}, false
		}
		if err := o.inner.Reset(); err != nil {
			o.exhausted = true
			return runtime.ErrResult(opErr(o, err)), true
		}
		o.pass++
	}
}

func (o *repeatOp) Enter(ctx *runtime.Context) { o.ctx = ctx; o.inner.Enter(ctx) }
func (o *repeatOp) Escape() *runtime.Context    { o.ctx = nil; return o.inner.Escape() }
func (o *repeatOp) IsResettable() bool          { return o.inner.IsResettable() }
func (o *repeatOp) Reset() error {
	o.resolvedCount = false
	o.exhausted = false
	o.pass = 0
	return o.inner.Reset()
}
func (o *repeatOp) Dup() runtime.Op {
	return &repeatOp{inner: o.inner.Dup(), count: o.count, hasCount: o.hasCount}
}

type repeatFactory struct{}

func (repeatFactory) IsFunction(name string) bool { return name == "repeat" }
func (repeatFactory) BuildFunction(_ string, tokens *TokenQueue, dict *Dictionary) (runtime.Op, error) {
	groups := splitTopLevel(tokens.Slice(), lexer.TOKEN_COMMA)
	if len(groups) < 1 || len(groups) > 2 {
		tok, _ := tokens.Front()
		return nil, syntaxErr("repeat(op) or repeat(op, count)", &tok)
	}
	innerQ := NewTokenQueue(append([]lexer.Token{}, groups[0]...))
	inner, err := dict.TryBuildStatement(innerQ)
	if err != nil {
		return nil, err
	}
	if len(groups) == 1 {
		return &repeatOp{inner: inner}, nil
	}
	countQ := NewTokenQueue(append([]lexer.Token{}, groups[1]...))
	count, err := ParseLookup(countQ)
	if err != nil {
		return nil, err
	}
	if !countQ.Empty() {
		tok, _ := countQ.Front()
		return nil, syntaxErr("end of arguments", &tok)
	}
	return &repeatOp{inner: inner, count: count, hasCount: true}, nil
}

// ---- union(a, b, ...) -----------------------------------------------------

// unionOp concatenates its children in declared order, handing the Context
// to exactly one child at a time (entered when it becomes current, escaped
// the moment it's exhausted).
type unionOp struct {
	children []runtime.Op
	idx      int
	ctx      *runtime.Context
}

func (o *unionOp) String() string {
	s := "union("
	for i, c := range o.children {
		if i > 0 {
			s += ", "
		}
		s += c.String()
	}
	return s + ")"
}

func (o *unionOp) Next() (runtime.IterResult, bool) {
	for o.idx < len(o.children) {
		res, ok := o.children[o.idx].Next()
		if ok {
			return res, true
		}
		o.children[o.idx].Escape()
		o.idx++
		if o.idx < len(o.children) {
			o.children[o.idx].Enter(o.ctx)
		}
	}
	return runtime.IterResult{}, false
}

func (o *unionOp) Enter(ctx *runtime.Context) {
	o.ctx = ctx
	if len(o.children) > 0 {
		o.children[0].Enter(ctx)
	}
}

func (o *unionOp) Escape() *runtime.Context {
	if o.idx < len(o.children) {
		o.children[o.idx].Escape()
	}
	ctx := o.ctx
	o.ctx = nil
	return ctx
}

func (o *unionOp) IsResettable() bool {
	for _, c := range o.children {
		if !c.IsResettable() {
			return false
		}
	}
	return true
}

func (o *unionOp) Reset() error {
	for _, c := range o.children {
		if err := c.Reset(); err != nil {
			return err
		}
	}
	o.idx = 0
	if len(o.children) > 0 {
		o.children[0].Enter(o.ctx)
	}
	return nil
}

func (o *unionOp) Dup() runtime.Op {
	dup := make([]runtime.Op, len(o.children))
	for i, c := range o.children {
		dup[i] = c.Dup()
	}
	return &unionOp{children: dup}
}

type unionFactory struct{}

func (unionFactory) IsFunction(name string) bool { return name == "union" }
func (unionFactory) BuildFunction(_ string, tokens *TokenQueue, dict *Dictionary) (runtime.Op, error) {
	children, err := buildChildStatements(tokens, dict)
	if err != nil {
		return nil, err
	}
	return &unionOp{children: children}, nil
}

// ---- intersection(a, b, ...) ----------------------------------------------

// intersectionOp yields items from its first child that also appear (by
// item-equality key) in every other child stream, preserving the first
// child's order. The non-first children are fully materialized into
// membership sets on the first Next call, since membership testing requires
// having seen every one of their items.
type intersectionOp struct {
	children []runtime.Op
	ctx      *runtime.Context
	sets     []map[string]bool
	prepared bool
}

func (o *intersectionOp) String() string {
	s := "intersection("
	for i, c := range o.children {
		if i > 0 {
			s += ", "
		}
		s += c.String()
	}
	return s + ")"
}

func (o *intersectionOp) prepare() *runtime.IterResult {
	o.prepared = true
	for i := 1; i < len(o.children); i++ {
		o.children[i].Enter(o.ctx)
		set := map[string]bool{}
		for {
			res, ok := o.children[i].Next()
			if !ok {
				break
			}
			if res.IsErr() {
				o.children[i].Escape()
				return &res
			}
			set[res.Item.Key()] = true
		}
		o.children[i].Escape()
		o.sets = append(o.sets, set)
	}
	if len(o.children) > 0 {
		o.children[0].Enter(o.ctx)
	}
	return nil
}

func (o *intersectionOp) Next() (runtime.IterResult, bool) {
	if !o.prepared {
		if res := o.prepare(); res != nil {
			return *res, true
		}
	}
	if len(o.children) == 0 {
		return runtime.IterResult{}, false
	}
	for {
		res, ok := o.children[0].Next()
		if !ok {
			return runtime.IterResult{}, false
		}
		if res.IsErr() {
			return res, true
		}
		key := res.Item.Key()
		inAll := true
		for _, set := range o.sets {
			if !set[key] {
				inAll = false
				break
			}
		}
		if inAll {
			return res, true
		}
	}
}

func (o *intersectionOp) Enter(ctx *runtime.Context) { o.ctx = ctx }
func (o *intersectionOp) Escape() *runtime.Context {
	if o.prepared && len(o.children) > 0 {
		o.children[0].Escape()
	}
	ctx := o.ctx
	o.ctx = nil
	return ctx
}

func (o *intersectionOp) IsResettable() bool {
	for _, c := range o.children {
		if !c.IsResettable() {
			return false
		}
	}
	return true
}

func (o *intersectionOp) Reset() error {
	for _, c := range o.children {
		if err := c.Reset(); err != nil {
			return err
		}
	}
	o.prepared = false
	o.sets = nil
	return nil
}

func (o *intersectionOp) Dup() runtime.Op {
	dup := make([]runtime.Op, len(o.children))
	for i, c := range o.children {
		dup[i] = c.Dup()
	}
	return &intersectionOp{children: dup}
}

type intersectionFactory struct{}

func (intersectionFactory) IsFunction(name string) bool { return name == "intersection" }
func (intersectionFactory) BuildFunction(_ string, tokens *TokenQueue, dict *Dictionary) (runtime.Op, error) {
	children, err := buildChildStatements(tokens, dict)
	if err != nil {
		return nil, err
	}
	return &intersectionOp{children: children}, nil
}

func buildChildStatements(tokens *TokenQueue, dict *Dictionary) ([]runtime.Op, error) {
	groups := splitTopLevel(tokens.Slice(), lexer.TOKEN_COMMA)
	children := make([]runtime.Op, 0, len(groups))
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		q := NewTokenQueue(append([]lexer.Token{}, group...))
		op, err := dict.TryBuildStatement(q)
		if err != nil {
			return nil, err
		}
		children = append(children, op)
	}
	return children, nil
}

// ---- sql_init(name=value, ...) --------------------------------------------

type sqlInitOp struct {
	params map[string]Lookup
	ctx    *runtime.Context
	done   bool
}

func (o *sqlInitOp) String() string { return "sql_init(...)" }

func (o *sqlInitOp) Next() (runtime.IterResult, bool) {
	if o.done {
		return runtime.IterResult{}, false
	}
	o.done = true
	resolved := map[string]runtime.Value{}
	for k, l := range o.params {
		v, err := l.Get(o.ctx)
		if err != nil {
			return runtime.ErrResult(opErr(o, err)), true
		}
		resolved[k] = runtime.PrimitiveValue(v)
	}
	if o.ctx.Database == nil {
		return runtime.ErrResult(opErr(o, fmt.Errorf("sql_init requires a configured database querier"))), true
	}
	if err := o.ctx.Database.InitWithParams(resolved); err != nil {
		return runtime.ErrResult(opErr(o, err)), true
	}
	return runtime.IterResult{}, false
}

func (o *sqlInitOp) Enter(ctx *runtime.Context) { o.ctx = ctx }
func (o *sqlInitOp) Escape() *runtime.Context    { ctx := o.ctx; o.ctx = nil; return ctx }
func (o *sqlInitOp) IsResettable() bool          { return true }
func (o *sqlInitOp) Reset() error                { o.done = false; return nil }
func (o *sqlInitOp) Dup() runtime.Op             { return &sqlInitOp{params: o.params} }

type sqlInitFactory struct{}

func (sqlInitFactory) IsFunction(name string) bool { return name == "sql_init" }
func (sqlInitFactory) BuildFunction(_ string, tokens *TokenQueue, _ *Dictionary) (runtime.Op, error) {
	params, err := parseKeywordArgs(tokens)
	if err != nil {
		return nil, err
	}
	return &sqlInitOp{params: params}, nil
}

// ---- name = op | expr (top-level assignment statement) --------------------

// assignStatementOp is the top-level `name = ...` statement form: it
// declares name if undeclared, else reassigns it, and always yields
// nothing. The right-hand side is either a nested operator tree (parsed via
// the Dictionary, same as any other statement) or a single type literal —
// the two cases spec.md documents as "name = op" and "name = expr".
type assignStatementOp struct {
	name    string
	isOp    bool
	opRHS   runtime.Op
	primRHS runtime.TypePrimitive
	ctx     *runtime.Context
	done    bool
}

func (o *assignStatementOp) String() string {
	if o.isOp {
		return o.name + " = " + o.opRHS.String()
	}
	return o.name + " = " + o.primRHS.String()
}

func (o *assignStatementOp) Next() (runtime.IterResult, bool) {
	if o.done {
		return runtime.IterResult{}, false
	}
	o.done = true
	var val runtime.Value
	if o.isOp {
		val = runtime.OpValue(o.opRHS)
	} else {
		val = runtime.PrimitiveValue(o.primRHS)
	}
	var err error
	if o.ctx.Variables.Exists(o.name) {
		err = o.ctx.Variables.Assign(o.name, val)
	} else {
		err = o.ctx.Variables.Declare(o.name, val)
	}
	if err != nil {
		return runtime.ErrResult(opErr(o, err)), true
	}
	return runtime.IterResult{}, false
}

func (o *assignStatementOp) Enter(ctx *runtime.Context) { o.ctx = ctx }
func (o *assignStatementOp) Escape() *runtime.Context    { ctx := o.ctx; o.ctx = nil; return ctx }
func (o *assignStatementOp) IsResettable() bool          { return true }
func (o *assignStatementOp) Reset() error                { o.done = false; return nil }
func (o *assignStatementOp) Dup() runtime.Op {
	if o.isOp {
		return &assignStatementOp{name: o.name, isOp: true, opRHS: o.opRHS.Dup()}
	}
	return &assignStatementOp{name: o.name, primRHS: o.primRHS}
}

// ---- let name [= expr] (top-level declaration statement) -------------------

// letStatementOp wraps a variableDeclareItemOp (built via the same
// parseLetForm the item-op block uses) into a one-shot top-level Op, so
// `let a = iter empties(2)` works outside a `{ }` block the same way it
// does inside one.
type letStatementOp struct {
	decl ItemOp
	ctx  *runtime.Context
	done bool
}

func (o *letStatementOp) String() string { return o.decl.String() }

func (o *letStatementOp) Next() (runtime.IterResult, bool) {
	if o.done {
		return runtime.IterResult{}, false
	}
	o.done = true
	if _, err := o.decl.Execute(o.ctx); err != nil {
		return runtime.ErrResult(opErr(o, err)), true
	}
	return runtime.IterResult{}, false
}

func (o *letStatementOp) Enter(ctx *runtime.Context) { o.ctx = ctx }
func (o *letStatementOp) Escape() *runtime.Context    { ctx := o.ctx; o.ctx = nil; return ctx }
func (o *letStatementOp) IsResettable() bool          { return true }
func (o *letStatementOp) Reset() error                { o.done = false; return nil }
func (o *letStatementOp) Dup() runtime.Op             { return &letStatementOp{decl: o.decl} }

// LetStatementFactory claims top-level `let name` / `let name = expr`,
// reusing the item-op block's own let-form parser.
type LetStatementFactory struct{}

func (LetStatementFactory) IsOp(tokens *TokenQueue) bool {
	front, ok := tokens.Front()
	return ok && front.IsName() && front.Text == "let"
}

func (LetStatementFactory) BuildOp(tokens *TokenQueue, dict *Dictionary) (runtime.Op, error) {
	decl, err := parseLetForm(tokens, dict)
	if err != nil {
		return nil, err
	}
	if !tokens.Empty() {
		tok, _ := tokens.Front()
		return nil, syntaxErr("end of statement", &tok)
	}
	return &letStatementOp{decl: decl}, nil
}

// AssignStatementFactory claims `name = ...` at the top level (as opposed to
// inside an item-op block, where variableAssignItemOp already handles the
// same shape against the "item" binding).
type AssignStatementFactory struct{}

func (AssignStatementFactory) IsOp(tokens *TokenQueue) bool {
	if tokens.Len() < 2 {
		return false
	}
	front, _ := tokens.Front()
	if !front.IsName() {
		return false
	}
	if tokens.At(1).Type != lexer.TOKEN_EQUALS {
		return false
	}
	return tokens.Len() == 2 || tokens.At(2).Type != lexer.TOKEN_EQUALS
}

func (AssignStatementFactory) BuildOp(tokens *TokenQueue, dict *Dictionary) (runtime.Op, error) {
	name, err := assertName(tokens)
	if err != nil {
		return nil, err
	}
	if _, err := assertTokenType(lexer.TOKEN_EQUALS, tokens); err != nil {
		return nil, err
	}
	if tokens.Len() == 1 {
		front, _ := tokens.Front()
		if checkIsType(front) {
			v, terr := assertType(tokens)
			if terr != nil {
				return nil, terr
			}
			return &assignStatementOp{name: name, primRHS: v}, nil
		}
	}
	op, err := dict.TryBuildStatement(tokens)
	if err != nil {
		return nil, err
	}
	return &assignStatementOp{name: name, isOp: true, opRHS: op}, nil
}
