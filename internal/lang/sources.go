package lang

import (
	"fmt"

	"github.com/muss-lang/muss/internal/compiler/lexer"
	"github.com/muss-lang/muss/internal/runtime"
)

// parseKeywordArgs splits tokens on top-level commas and parses each group
// as `name = value`, building the keyword-argument maps every `name=value,
// ...`-shaped source producer (`files`, `sql_init`, `mpd`) accepts.
func parseKeywordArgs(tokens *TokenQueue) (map[string]Lookup, error) {
	out := map[string]Lookup{}
	if tokens.Empty() {
		return out, nil
	}
	groups := splitTopLevel(tokens.Slice(), lexer.TOKEN_COMMA)
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		q := NewTokenQueue(append([]lexer.Token{}, group...))
		name, err := assertName(q)
		if err != nil {
			return nil, err
		}
		if _, err := assertTokenType(lexer.TOKEN_EQUALS, q); err != nil {
			return nil, err
		}
		val, err := ParseLookup(q)
		if err != nil {
			return nil, err
		}
		if !q.Empty() {
			tok, _ := q.Front()
			return nil, syntaxErr("end of argument", &tok)
		}
		out[name] = val
	}
	return out, nil
}

func lookupStr(params map[string]Lookup, key, def string, ctx *runtime.Context) (string, error) {
	l, ok := params[key]
	if !ok {
		return def, nil
	}
	v, err := l.Get(ctx)
	if err != nil {
		return "", err
	}
	s, ok := asString(v)
	if !ok {
		return v.AsStr(), nil
	}
	return s, nil
}

func lookupInt(params map[string]Lookup, key string, def int, ctx *runtime.Context) (int, error) {
	l, ok := params[key]
	if !ok {
		return def, nil
	}
	v, err := l.Get(ctx)
	if err != nil {
		return 0, err
	}
	n, ok := asInt(v)
	if !ok {
		return 0, fmt.Errorf("argument %q (%s) is not an integer", key, v)
	}
	return int(n), nil
}

func lookupBool(params map[string]Lookup, key string, def bool, ctx *runtime.Context) (bool, error) {
	l, ok := params[key]
	if !ok {
		return def, nil
	}
	v, err := l.Get(ctx)
	if err != nil {
		return false, err
	}
	b, ok := asBool(v)
	if !ok {
		return false, fmt.Errorf("argument %q (%s) is not a Bool", key, v)
	}
	return b, nil
}

// ---- empty() ----------------------------------------------------------

type emptyOp struct{ ctx *runtime.Context }

func (o *emptyOp) String() string               { return "empty()" }
func (o *emptyOp) Next() (runtime.IterResult, bool) { return runtime.IterResult{}, false }
func (o *emptyOp) Enter(ctx *runtime.Context)    { o.ctx = ctx }
func (o *emptyOp) Escape() *runtime.Context      { ctx := o.ctx; o.ctx = nil; return ctx }
func (o *emptyOp) IsResettable() bool            { return true }
func (o *emptyOp) Reset() error                  { return nil }
func (o *emptyOp) Dup() runtime.Op               { return &emptyOp{} }

type emptyFactory struct{}

func (emptyFactory) IsFunction(name string) bool { return name == "empty" }
func (emptyFactory) BuildFunction(_ string, tokens *TokenQueue, _ *Dictionary) (runtime.Op, error) {
	if !tokens.Empty() {
		tok, _ := tokens.Front()
		return nil, syntaxErr("no arguments", &tok)
	}
	return &emptyOp{}, nil
}

// ---- empties(count) -----------------------------------------------------

type emptiesOp struct {
	count     Lookup
	ctx       *runtime.Context
	started   bool
	errored   bool
	remaining uint64
}

func (o *emptiesOp) String() string { return "empties(" + o.count.String() + ")" }

func (o *emptiesOp) Next() (runtime.IterResult, bool) {
	if o.errored {
		return runtime.IterResult{}, false
	}
	if !o.started {
		o.started = true
		v, err := o.count.Get(o.ctx)
		if err != nil {
			o.errored = true
			return runtime.ErrResult(opErr(o, err)), true
		}
		n, ok := asUint(v)
		if !ok {
			o.errored = true
			return runtime.ErrResult(opErr(o, fmt.Errorf("empties count %s is not a non-negative UInt", v))), true
		}
		o.remaining = n
	}
	if o.remaining == 0 {
		return runtime.IterResult{}, false
	}
	o.remaining--
	return runtime.ItemResult(runtime.NewItem()), true
}

func (o *emptiesOp) Enter(ctx *runtime.Context) { o.ctx = ctx }
func (o *emptiesOp) Escape() *runtime.Context    { ctx := o.ctx; o.ctx = nil; return ctx }
func (o *emptiesOp) IsResettable() bool          { return true }
func (o *emptiesOp) Reset() error {
	o.started = false
	o.errored = false
	o.remaining = 0
	return nil
}
func (o *emptiesOp) Dup() runtime.Op { return &emptiesOp{count: o.count} }

type emptiesFactory struct{}

func (emptiesFactory) IsFunction(name string) bool { return name == "empties" }
func (emptiesFactory) BuildFunction(_ string, tokens *TokenQueue, _ *Dictionary) (runtime.Op, error) {
	count, err := ParseLookup(tokens)
	if err != nil {
		return nil, err
	}
	if !tokens.Empty() {
		tok, _ := tokens.Front()
		return nil, syntaxErr("end of arguments", &tok)
	}
	return &emptiesOp{count: count}, nil
}

// ---- files(root=, depth=, regex=, recursive=) --------------------------

type filesOp struct {
	params  map[string]Lookup
	ctx     *runtime.Context
	inner   runtime.Op
	errored bool
}

func (o *filesOp) String() string { return "files(...)" }

func (o *filesOp) Next() (runtime.IterResult, bool) {
	if o.errored {
		return runtime.IterResult{}, false
	}
	if o.inner == nil {
		root, err := lookupStr(o.params, "root", "", o.ctx)
		if err == nil {
			if root == "" {
				root, err = lookupStr(o.params, "folder", "", o.ctx)
			}
		}
		var depth int
		if err == nil {
			depth, err = lookupInt(o.params, "depth", -1, o.ctx)
		}
		var regex string
		if err == nil {
			regex, err = lookupStr(o.params, "regex", "", o.ctx)
		}
		var recursive bool
		if err == nil {
			recursive, err = lookupBool(o.params, "recursive", false, o.ctx)
		}
		if err != nil {
			o.errored = true
			return runtime.ErrResult(opErr(o, err)), true
		}
		inner, ferr := o.ctx.Filesystem.Raw(root, depth, regex, recursive)
		if ferr != nil {
			o.errored = true
			return runtime.ErrResult(opErr(o, ferr)), true
		}
		o.inner = inner
		o.inner.Enter(o.ctx)
	}
	return o.inner.Next()
}

func (o *filesOp) Enter(ctx *runtime.Context) { o.ctx = ctx }
func (o *filesOp) Escape() *runtime.Context {
	if o.inner != nil {
		return o.inner.Escape()
	}
	ctx := o.ctx
	o.ctx = nil
	return ctx
}
func (o *filesOp) IsResettable() bool { return true }
func (o *filesOp) Reset() error {
	o.errored = false
	if o.inner != nil {
		return o.inner.Reset()
	}
	return nil
}
func (o *filesOp) Dup() runtime.Op { return &filesOp{params: o.params} }

type filesFactory struct{}

func (filesFactory) IsFunction(name string) bool { return name == "files" }
func (filesFactory) BuildFunction(_ string, tokens *TokenQueue, _ *Dictionary) (runtime.Op, error) {
	params, err := parseKeywordArgs(tokens)
	if err != nil {
		return nil, err
	}
	return &filesOp{params: params}, nil
}

// ---- playlist(lookup) ---------------------------------------------------

type playlistOp struct {
	path    Lookup
	ctx     *runtime.Context
	inner   runtime.Op
	errored bool
}

func (o *playlistOp) String() string { return "playlist(" + o.path.String() + ")" }

func (o *playlistOp) Next() (runtime.IterResult, bool) {
	if o.errored {
		return runtime.IterResult{}, false
	}
	if o.inner == nil {
		v, err := o.path.Get(o.ctx)
		if err != nil {
			o.errored = true
			return runtime.ErrResult(opErr(o, err)), true
		}
		path, ok := asString(v)
		if !ok {
			o.errored = true
			return runtime.ErrResult(opErr(o, fmt.Errorf("playlist path %s is not a String", v))), true
		}
		inner, perr := o.ctx.Filesystem.ReadPlaylist(path)
		if perr != nil {
			o.errored = true
			return runtime.ErrResult(opErr(o, perr)), true
		}
		o.inner = inner
		o.inner.Enter(o.ctx)
	}
	return o.inner.Next()
}

func (o *playlistOp) Enter(ctx *runtime.Context) { o.ctx = ctx }
func (o *playlistOp) Escape() *runtime.Context {
	if o.inner != nil {
		return o.inner.Escape()
	}
	ctx := o.ctx
	o.ctx = nil
	return ctx
}
func (o *playlistOp) IsResettable() bool { return true }
func (o *playlistOp) Reset() error {
	o.errored = false
	if o.inner != nil {
		return o.inner.Reset()
	}
	return nil
}
func (o *playlistOp) Dup() runtime.Op { return &playlistOp{path: o.path} }

type playlistFactory struct{}

func (playlistFactory) IsFunction(name string) bool { return name == "playlist" }
func (playlistFactory) BuildFunction(_ string, tokens *TokenQueue, _ *Dictionary) (runtime.Op, error) {
	path, err := ParseLookup(tokens)
	if err != nil {
		return nil, err
	}
	if !tokens.Empty() {
		tok, _ := tokens.Front()
		return nil, syntaxErr("end of arguments", &tok)
	}
	return &playlistOp{path: path}, nil
}

// ---- sql(`literal`) ------------------------------------------------------

type sqlOp struct {
	query   string
	ctx     *runtime.Context
	inner   runtime.Op
	errored bool
}

func (o *sqlOp) String() string { return "sql(`" + o.query + "`)" }

func (o *sqlOp) Next() (runtime.IterResult, bool) {
	if o.errored {
		return runtime.IterResult{}, false
	}
	if o.inner == nil {
		inner, err := o.ctx.Database.Raw(o.query)
		if err != nil {
			o.errored = true
			return runtime.ErrResult(opErr(o, err)), true
		}
		o.inner = inner
		o.inner.Enter(o.ctx)
	}
	return o.inner.Next()
}

func (o *sqlOp) Enter(ctx *runtime.Context) { o.ctx = ctx }
func (o *sqlOp) Escape() *runtime.Context {
	if o.inner != nil {
		return o.inner.Escape()
	}
	ctx := o.ctx
	o.ctx = nil
	return ctx
}
func (o *sqlOp) IsResettable() bool { return true }
func (o *sqlOp) Reset() error {
	o.errored = false
	if o.inner != nil {
		return o.inner.Reset()
	}
	return nil
}
func (o *sqlOp) Dup() runtime.Op { return &sqlOp{query: o.query} }

type sqlFactory struct{}

func (sqlFactory) IsFunction(name string) bool { return name == "sql" }
func (sqlFactory) BuildFunction(_ string, tokens *TokenQueue, _ *Dictionary) (runtime.Op, error) {
	query, err := assertLiteral(tokens)
	if err != nil {
		return nil, err
	}
	if !tokens.Empty() {
		tok, _ := tokens.Front()
		return nil, syntaxErr("end of arguments", &tok)
	}
	return &sqlOp{query: query}, nil
}

// ---- simple_sql(field, `literal`) ---------------------------------------

type simpleSqlOp struct {
	field   string
	value   string
	ctx     *runtime.Context
	inner   runtime.Op
	errored bool
}

func (o *simpleSqlOp) String() string {
	return fmt.Sprintf("simple_sql(%s, `%s`)", o.field, o.value)
}

func buildSimpleSQLQuery(field, value string) string {
	needle := normalizeForLike(value)
	return fmt.Sprintf("SELECT * FROM items WHERE LOWER(%s) LIKE '%%%s%%'", field, needle)
}

func (o *simpleSqlOp) Next() (runtime.IterResult, bool) {
	if o.errored {
		return runtime.IterResult{}, false
	}
	if o.inner == nil {
		inner, err := o.ctx.Database.Raw(buildSimpleSQLQuery(o.field, o.value))
		if err != nil {
			o.errored = true
			return runtime.ErrResult(opErr(o, err)), true
		}
		o.inner = inner
		o.inner.Enter(o.ctx)
	}
	return o.inner.Next()
}

func (o *simpleSqlOp) Enter(ctx *runtime.Context) { o.ctx = ctx }
func (o *simpleSqlOp) Escape() *runtime.Context {
	if o.inner != nil {
		return o.inner.Escape()
	}
	ctx := o.ctx
	o.ctx = nil
	return ctx
}
func (o *simpleSqlOp) IsResettable() bool { return true }
func (o *simpleSqlOp) Reset() error {
	o.errored = false
	if o.inner != nil {
		return o.inner.Reset()
	}
	return nil
}
func (o *simpleSqlOp) Dup() runtime.Op { return &simpleSqlOp{field: o.field, value: o.value} }

type simpleSqlFactory struct{}

func (simpleSqlFactory) IsFunction(name string) bool { return name == "simple_sql" }
func (simpleSqlFactory) BuildFunction(_ string, tokens *TokenQueue, _ *Dictionary) (runtime.Op, error) {
	field, err := assertName(tokens)
	if err != nil {
		return nil, err
	}
	if _, err := assertTokenType(lexer.TOKEN_COMMA, tokens); err != nil {
		return nil, err
	}
	value, err := assertLiteral(tokens)
	if err != nil {
		return nil, err
	}
	if !tokens.Empty() {
		tok, _ := tokens.Front()
		return nil, syntaxErr("end of arguments", &tok)
	}
	return &simpleSqlOp{field: field, value: value}, nil
}

// ---- mpd(name=value, ...) ------------------------------------------------

// mpdOp resolves its keyword args into an MPD search on first Next, then
// hands the whole result set off to the fallthrough in-memory vec iterator
// rather than re-implementing index bookkeeping itself.
type mpdOp struct {
	params   map[string]Lookup
	ctx      *runtime.Context
	vec      *runtime.ItemSliceOp
	prepared bool
	errored  bool
}

func (o *mpdOp) String() string {
	if o.vec != nil {
		return o.vec.String()
	}
	return "mpd(...)"
}

func (o *mpdOp) Next() (runtime.IterResult, bool) {
	if o.errored {
		return runtime.IterResult{}, false
	}
	if !o.prepared {
		o.prepared = true
		if o.ctx.Mpd == nil {
			o.errored = true
			return runtime.ErrResult(opErr(o, fmt.Errorf("mpd source requires a configured MPD querier"))), true
		}
		resolved := map[string]string{}
		for k, l := range o.params {
			v, err := l.Get(o.ctx)
			if err != nil {
				o.errored = true
				return runtime.ErrResult(opErr(o, err)), true
			}
			resolved[k] = v.AsStr()
		}
		items, err := o.ctx.Mpd.Search(resolved)
		if err != nil {
			o.errored = true
			return runtime.ErrResult(opErr(o, err)), true
		}
		o.vec = runtime.NewItemSliceOp(items)
		o.vec.Enter(o.ctx)
	}
	return o.vec.Next()
}

func (o *mpdOp) Enter(ctx *runtime.Context) { o.ctx = ctx }
func (o *mpdOp) Escape() *runtime.Context {
	ctx := o.ctx
	o.ctx = nil
	return ctx
}
func (o *mpdOp) IsResettable() bool { return true }
func (o *mpdOp) Reset() error {
	o.prepared = false
	o.errored = false
	o.vec = nil
	return nil
}
func (o *mpdOp) Dup() runtime.Op { return &mpdOp{params: o.params} }

type mpdFactory struct{}

func (mpdFactory) IsFunction(name string) bool { return name == "mpd" }
func (mpdFactory) BuildFunction(_ string, tokens *TokenQueue, _ *Dictionary) (runtime.Op, error) {
	params, err := parseKeywordArgs(tokens)
	if err != nil {
		return nil, err
	}
	return &mpdOp{params: params}, nil
}

// ---- bare NAME catch-all: variable-retrieve source ----------------------

// variableRetrieveSourceOp is the fallback that claims a single bare NAME
// statement, resolving it against the Context's variable store. Per
// spec: an Op-typed variable is iterated by temporarily removing it from
// the store, advancing one step, and re-declaring it (so a second
// retrieval of the same variable continues where the first left off,
// rather than restarting); an Item-typed variable yields once; a
// Primitive-typed variable cannot be iterated at all.
type variableRetrieveSourceOp struct {
	name string
	ctx  *runtime.Context
	done bool
}

func (o *variableRetrieveSourceOp) String() string { return o.name }

func (o *variableRetrieveSourceOp) Next() (runtime.IterResult, bool) {
	if o.done {
		return runtime.IterResult{}, false
	}
	val, err := o.ctx.Variables.Get(o.name)
	if err != nil {
		o.done = true
		return runtime.ErrResult(opErr(o, err)), true
	}
	switch val.Kind {
	case runtime.ValueKindItem:
		o.done = true
		return runtime.ItemResult(val.Item), true
	case runtime.ValueKindPrimitive:
		o.done = true
		return runtime.ErrResult(opErr(o, fmt.Errorf("variable %q holds a Primitive value, not an iterable source", o.name))), true
	case runtime.ValueKindOp:
		removed, _ := o.ctx.Variables.Remove(o.name)
		sub := removed.Op
		sub.Enter(o.ctx)
		res, ok := sub.Next()
		sub.Escape()
		o.ctx.Variables.Declare(o.name, runtime.OpValue(sub))
		if !ok {
			o.done = true
			return runtime.IterResult{}, false
		}
		return res, true
	default:
		o.done = true
		return runtime.IterResult{}, false
	}
}

func (o *variableRetrieveSourceOp) Enter(ctx *runtime.Context) { o.ctx = ctx }
func (o *variableRetrieveSourceOp) Escape() *runtime.Context {
	ctx := o.ctx
	o.ctx = nil
	return ctx
}
func (o *variableRetrieveSourceOp) IsResettable() bool { return true }
func (o *variableRetrieveSourceOp) Reset() error       { o.done = false; return nil }
func (o *variableRetrieveSourceOp) Dup() runtime.Op    { return &variableRetrieveSourceOp{name: o.name} }

// VariableRetrieveFactory is the dead-last catch-all in the standard
// vocabulary: any bare single NAME statement that no earlier factory
// claimed is assumed to be a variable retrieval.
type VariableRetrieveFactory struct{}

func (VariableRetrieveFactory) IsOp(tokens *TokenQueue) bool {
	if tokens.Len() != 1 {
		return false
	}
	front, _ := tokens.Front()
	return front.IsName()
}

func (VariableRetrieveFactory) BuildOp(tokens *TokenQueue, _ *Dictionary) (runtime.Op, error) {
	name, err := assertName(tokens)
	if err != nil {
		return nil, err
	}
	return &variableRetrieveSourceOp{name: name}, nil
}
