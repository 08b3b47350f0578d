package lang

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/muss-lang/muss/internal/compiler/lexer"
	"github.com/muss-lang/muss/internal/runtime"
)

// ---- empty -----------------------------------------------------------

// emptyPredicate is `.(empty)`: passes every item through unchanged.
type emptyPredicate struct{}

func (emptyPredicate) Matches(runtime.Item, *runtime.Context) (bool, error) { return true, nil }
func (emptyPredicate) IsComplete() bool                                     { return false }
func (emptyPredicate) Reset()                                               {}
func (emptyPredicate) String() string                                       { return "" }
func (emptyPredicate) Clone() FilterPredicate                               { return emptyPredicate{} }

// ---- nonempty (`??`) ---------------------------------------------------

// nonemptyPredicate is `.(??)`: rejects items with no fields, or with only
// a filename (a bare file-path stand-in carries no musical metadata).
type nonemptyPredicate struct{}

func (nonemptyPredicate) Matches(item runtime.Item, _ *runtime.Context) (bool, error) {
	if item.Len() == 0 {
		return false, nil
	}
	if item.Len() == 1 {
		if _, ok := item.Field("filename"); ok {
			return false, nil
		}
	}
	return true, nil
}
func (nonemptyPredicate) IsComplete() bool       { return false }
func (nonemptyPredicate) Reset()                 {}
func (nonemptyPredicate) String() string         { return "??" }
func (nonemptyPredicate) Clone() FilterPredicate { return nonemptyPredicate{} }

// ---- range (n..m, n..=m, ..m, n..) --------------------------------------

// rangePredicate is `.(start..end)` or `.(start..=end)`, either bound
// optional: a sliding window over the upstream's positional index.
// complete becomes true once the window has closed, letting filterOp stop
// pulling from upstream early.
type rangePredicate struct {
	hasStart     bool
	start        Lookup
	hasEnd       bool
	end          Lookup
	inclusiveEnd bool
	index        int
	complete     bool
}

func (r *rangePredicate) String() string {
	s := ""
	if r.hasStart {
		s += r.start.String()
	}
	s += ".."
	if r.inclusiveEnd {
		s += "="
	}
	if r.hasEnd {
		s += r.end.String()
	}
	return s
}

func (r *rangePredicate) IsComplete() bool { return r.complete }
func (r *rangePredicate) Reset()           { r.index = 0; r.complete = false }
func (r *rangePredicate) Clone() FilterPredicate {
	clone := *r
	return &clone
}

func (r *rangePredicate) Matches(_ runtime.Item, ctx *runtime.Context) (bool, error) {
	idx := r.index
	r.index++
	if r.hasStart {
		v, err := r.start.Get(ctx)
		if err != nil {
			return false, err
		}
		start, ok := asInt(v)
		if !ok {
			return false, fmt.Errorf("range start %s is not an Int", v)
		}
		if int64(idx) < start {
			return false, nil
		}
	}
	if r.hasEnd {
		v, err := r.end.Get(ctx)
		if err != nil {
			return false, err
		}
		end, ok := asInt(v)
		if !ok {
			return false, fmt.Errorf("range end %s is not an Int", v)
		}
		last := end
		if !r.inclusiveEnd {
			last = end - 1
		}
		if int64(idx) > last {
			r.complete = true
			return false, nil
		}
		if int64(idx) == last {
			r.complete = true
			return true, nil
		}
	}
	return true, nil
}

// findTopLevelDotDot finds two adjacent TOKEN_DOT tokens at bracket depth 0
// — the range predicate's "..", which has no dedicated lexer token.
func findTopLevelDotDot(toks []lexer.Token) int {
	depth := 0
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.IsOpenBracket() {
			depth++
			continue
		}
		if t.IsCloseBracket() {
			depth--
			continue
		}
		if depth == 0 && t.Type == lexer.TOKEN_DOT && i+1 < len(toks) && toks[i+1].Type == lexer.TOKEN_DOT {
			return i
		}
	}
	return -1
}

func isRangeFilter(tokens *TokenQueue) bool {
	return findTopLevelDotDot(tokens.Slice()) >= 0
}

func buildRangeFilter(tokens *TokenQueue) (FilterPredicate, error) {
	toks := tokens.Slice()
	dotIdx := findTopLevelDotDot(toks)
	left := toks[:dotIdx]
	rest := toks[dotIdx+2:]
	inclusive := false
	if len(rest) > 0 && rest[0].Type == lexer.TOKEN_EQUALS {
		inclusive = true
		rest = rest[1:]
	}
	r := &rangePredicate{inclusiveEnd: inclusive}
	if len(left) > 0 {
		lq := NewTokenQueue(append([]lexer.Token{}, left...))
		start, err := ParseLookup(lq)
		if err != nil {
			return nil, err
		}
		if !lq.Empty() {
			tok, _ := lq.Front()
			return nil, syntaxErr("range start", &tok)
		}
		r.hasStart = true
		r.start = start
	}
	if len(rest) > 0 {
		rq := NewTokenQueue(append([]lexer.Token{}, rest...))
		end, err := ParseLookup(rq)
		if err != nil {
			return nil, err
		}
		if !rq.Empty() {
			tok, _ := rq.Front()
			return nil, syntaxErr("range end", &tok)
		}
		r.hasEnd = true
		r.end = end
	}
	return r, nil
}

// ---- index (n, !n) -------------------------------------------------------

// indexPredicate is `.(n)` (keep only position n) or `.(!n)` (keep every
// position except n).
type indexPredicate struct {
	negate   bool
	target   int64
	index    int
	complete bool
}

func (p *indexPredicate) String() string {
	if p.negate {
		return fmt.Sprintf("!%d", p.target)
	}
	return fmt.Sprintf("%d", p.target)
}

func (p *indexPredicate) IsComplete() bool { return p.complete }
func (p *indexPredicate) Reset()           { p.index = 0; p.complete = false }
func (p *indexPredicate) Clone() FilterPredicate {
	clone := *p
	return &clone
}

func (p *indexPredicate) Matches(_ runtime.Item, _ *runtime.Context) (bool, error) {
	idx := int64(p.index)
	p.index++
	if p.negate {
		return idx != p.target, nil
	}
	if idx == p.target {
		p.complete = true
		return true, nil
	}
	if idx > p.target {
		p.complete = true
	}
	return false, nil
}

func isIndexFilter(tokens *TokenQueue) bool {
	toks := tokens.Slice()
	if len(toks) == 1 {
		return checkIsType(toks[0]) && toks[0].Type == lexer.TOKEN_NAME
	}
	if len(toks) == 2 && toks[0].Type == lexer.TOKEN_BANG {
		return checkIsType(toks[1]) && toks[1].Type == lexer.TOKEN_NAME
	}
	return false
}

func buildIndexFilter(tokens *TokenQueue) (FilterPredicate, error) {
	negate := false
	if front, _ := tokens.Front(); front.Type == lexer.TOKEN_BANG {
		tokens.PopFront()
		negate = true
	}
	v, err := assertType(tokens)
	if err != nil {
		return nil, err
	}
	n, ok := asInt(v)
	if !ok {
		return nil, fmt.Errorf("index filter target %s is not an Int", v)
	}
	return &indexPredicate{negate: negate, target: n}, nil
}

// ---- unique / unique.field -----------------------------------------------

// uniquePredicate is `.(unique)`: drops items whose full field set has
// already been seen.
type uniquePredicate struct{ seen map[string]bool }

func (p *uniquePredicate) String() string   { return "unique" }
func (p *uniquePredicate) IsComplete() bool { return false }
func (p *uniquePredicate) Reset()           { p.seen = map[string]bool{} }
func (p *uniquePredicate) Clone() FilterPredicate {
	seen := make(map[string]bool, len(p.seen))
	for k, v := range p.seen {
		seen[k] = v
	}
	return &uniquePredicate{seen: seen}
}

func (p *uniquePredicate) Matches(item runtime.Item, _ *runtime.Context) (bool, error) {
	if p.seen == nil {
		p.seen = map[string]bool{}
	}
	key := item.Key()
	if p.seen[key] {
		return false, nil
	}
	p.seen[key] = true
	return true, nil
}

// uniqueFieldPredicate is `.(unique.field)`: drops items whose value for a
// single field has already been seen. An item missing the field passes
// through unconditionally — there's no key to dedupe on.
type uniqueFieldPredicate struct {
	field string
	seen  map[string]bool
}

func (p *uniqueFieldPredicate) String() string   { return "unique." + p.field }
func (p *uniqueFieldPredicate) IsComplete() bool { return false }
func (p *uniqueFieldPredicate) Reset()           { p.seen = map[string]bool{} }
func (p *uniqueFieldPredicate) Clone() FilterPredicate {
	seen := make(map[string]bool, len(p.seen))
	for k, v := range p.seen {
		seen[k] = v
	}
	return &uniqueFieldPredicate{field: p.field, seen: seen}
}

func (p *uniqueFieldPredicate) Matches(item runtime.Item, _ *runtime.Context) (bool, error) {
	key, ok := item.FieldKey(p.field)
	if !ok {
		return true, nil
	}
	if p.seen == nil {
		p.seen = map[string]bool{}
	}
	if p.seen[key] {
		return false, nil
	}
	p.seen[key] = true
	return true, nil
}

func isUniqueFilter(tokens *TokenQueue) bool {
	toks := tokens.Slice()
	return len(toks) == 1 && toks[0].IsName() && toks[0].Text == "unique"
}

func isUniqueFieldFilter(tokens *TokenQueue) bool {
	toks := tokens.Slice()
	return len(toks) == 3 && toks[0].IsName() && toks[0].Text == "unique" &&
		toks[1].IsDot() && toks[2].IsName()
}

func buildUniqueFilter(*TokenQueue) (FilterPredicate, error) {
	return &uniquePredicate{seen: map[string]bool{}}, nil
}

func buildUniqueFieldFilter(tokens *TokenQueue) (FilterPredicate, error) {
	tokens.PopFront()
	tokens.PopFront()
	field, err := assertName(tokens)
	if err != nil {
		return nil, err
	}
	return &uniqueFieldPredicate{field: field, seen: map[string]bool{}}, nil
}

// ---- field forms: .field <cmp> value | .field like `pat` | .field matches `re` --

// fieldMissingMode controls what happens when an item lacks the named
// field: "error" propagates a RuntimeError, "drop" treats it as a
// non-match, "include" treats it as a match.
type fieldMissingMode int

const (
	fieldMissingError fieldMissingMode = iota
	fieldMissingDrop
	fieldMissingInclude
)

func parseFieldMissingMode(q *TokenQueue) fieldMissingMode {
	front, ok := q.Front()
	if !ok {
		return fieldMissingError
	}
	switch front.Type {
	case lexer.TOKEN_QUESTION:
		q.PopFront()
		return fieldMissingDrop
	case lexer.TOKEN_BANG:
		q.PopFront()
		return fieldMissingError
	default:
		return fieldMissingInclude
	}
}

func handleMissingField(mode fieldMissingMode, field string) (bool, error) {
	switch mode {
	case fieldMissingDrop:
		return false, nil
	case fieldMissingInclude:
		return true, nil
	default:
		return false, fmt.Errorf("item has no field %q", field)
	}
}

// fieldComparePredicate is `.field <cmp> value` (cmp one of == != < <= > >=).
type fieldComparePredicate struct {
	field string
	mode  fieldMissingMode
	op    string
	rhs   Lookup
}

func (p *fieldComparePredicate) String() string {
	return "." + p.field + " " + p.op + " " + p.rhs.String()
}
func (p *fieldComparePredicate) IsComplete() bool { return false }
func (p *fieldComparePredicate) Reset()           {}
func (p *fieldComparePredicate) Clone() FilterPredicate {
	clone := *p
	return &clone
}

func (p *fieldComparePredicate) Matches(item runtime.Item, ctx *runtime.Context) (bool, error) {
	lhs, ok := item.Field(p.field)
	if !ok {
		return handleMissingField(p.mode, p.field)
	}
	rhsVal, err := p.rhs.Get(ctx)
	if err != nil {
		return false, err
	}
	cmp, err := lhs.Compare(rhsVal)
	if err != nil {
		return false, err
	}
	for _, want := range comparatorsFor(p.op) {
		if cmp == want {
			return true, nil
		}
	}
	return false, nil
}

// fieldLikePredicate is `.field like \`pattern\``: a normalized substring
// match (case/punctuation-insensitive).
type fieldLikePredicate struct {
	field   string
	mode    fieldMissingMode
	pattern string
	needle  string
}

func (p *fieldLikePredicate) String() string { return "." + p.field + " like `" + p.pattern + "`" }
func (p *fieldLikePredicate) IsComplete() bool { return false }
func (p *fieldLikePredicate) Reset()           {}
func (p *fieldLikePredicate) Clone() FilterPredicate {
	clone := *p
	return &clone
}

func (p *fieldLikePredicate) Matches(item runtime.Item, _ *runtime.Context) (bool, error) {
	v, ok := item.Field(p.field)
	if !ok {
		return handleMissingField(p.mode, p.field)
	}
	s, ok := v.Str()
	if !ok {
		s = v.AsStr()
	}
	hay := normalizeForLike(s)
	return strings.Contains(hay, p.needle), nil
}

// fieldMatchesPredicate is `.field matches \`regex\``.
type fieldMatchesPredicate struct {
	field string
	mode  fieldMissingMode
	re    *regexp.Regexp
}

func (p *fieldMatchesPredicate) String() string {
	return "." + p.field + " matches `" + p.re.String() + "`"
}
func (p *fieldMatchesPredicate) IsComplete() bool { return false }
func (p *fieldMatchesPredicate) Reset()           {}
func (p *fieldMatchesPredicate) Clone() FilterPredicate {
	clone := *p
	return &clone
}

func (p *fieldMatchesPredicate) Matches(item runtime.Item, _ *runtime.Context) (bool, error) {
	v, ok := item.Field(p.field)
	if !ok {
		return handleMissingField(p.mode, p.field)
	}
	s, ok := v.Str()
	if !ok {
		s = v.AsStr()
	}
	return p.re.MatchString(s), nil
}

func isFieldForm(tokens *TokenQueue) bool {
	toks := tokens.Slice()
	return len(toks) >= 2 && toks[0].IsDot() && toks[1].IsName()
}

func buildFieldFilter(tokens *TokenQueue) (FilterPredicate, error) {
	if _, err := assertTokenType(lexer.TOKEN_DOT, tokens); err != nil {
		return nil, err
	}
	field, err := assertName(tokens)
	if err != nil {
		return nil, err
	}
	mode := parseFieldMissingMode(tokens)

	if front, ok := tokens.Front(); ok && front.IsName() && front.Text == "like" {
		tokens.PopFront()
		pattern, err := assertLiteral(tokens)
		if err != nil {
			return nil, err
		}
		return &fieldLikePredicate{field: field, mode: mode, pattern: pattern, needle: normalizeForLike(pattern)}, nil
	}
	if front, ok := tokens.Front(); ok && front.IsName() && front.Text == "matches" {
		tokens.PopFront()
		pattern, err := assertLiteral(tokens)
		if err != nil {
			return nil, err
		}
		re, rerr := regexp.Compile(pattern)
		if rerr != nil {
			return nil, fmt.Errorf("invalid matches pattern %q: %w", pattern, rerr)
		}
		return &fieldMatchesPredicate{field: field, mode: mode, re: re}, nil
	}

	op, ok := tryConsumeComparator(tokens)
	if !ok {
		tok, _ := tokens.Front()
		return nil, syntaxErr("like | matches | a comparator", &tok)
	}
	rhs, err := ParseLookup(tokens)
	if err != nil {
		return nil, err
	}
	return &fieldComparePredicate{field: field, mode: mode, op: op, rhs: rhs}, nil
}

// ---- dispatcher ------------------------------------------------------

type filterCase struct {
	is    func(*TokenQueue) bool
	build func(*TokenQueue) (FilterPredicate, error)
}

// StandardFilterFactory is the ordered dispatcher registered for the `.( )`
// block in the standard vocabulary. Every is func peeks only — it never
// pops — so the non-matching entries leave tokens untouched for the next.
type StandardFilterFactory struct{}

func standardFilterCases() []filterCase {
	return []filterCase{
		{is: func(q *TokenQueue) bool { return q.Empty() || (q.Len() == 1 && q.At(0).IsName() && q.At(0).Text == "empty") },
			build: func(*TokenQueue) (FilterPredicate, error) { return emptyPredicate{}, nil }},
		{is: func(q *TokenQueue) bool {
			return q.Len() == 2 && q.At(0).Type == lexer.TOKEN_QUESTION && q.At(1).Type == lexer.TOKEN_QUESTION
		}, build: func(*TokenQueue) (FilterPredicate, error) { return nonemptyPredicate{}, nil }},
		{is: isUniqueFieldFilter, build: buildUniqueFieldFilter},
		{is: isUniqueFilter, build: buildUniqueFilter},
		{is: isRangeFilter, build: buildRangeFilter},
		{is: isFieldForm, build: buildFieldFilter},
		{is: isIndexFilter, build: buildIndexFilter},
	}
}

func (StandardFilterFactory) IsFilter(tokens *TokenQueue) bool {
	for _, c := range standardFilterCases() {
		if c.is(tokens) {
			return true
		}
	}
	return false
}

func (StandardFilterFactory) BuildFilter(tokens *TokenQueue) (FilterPredicate, error) {
	for _, c := range standardFilterCases() {
		if c.is(tokens) {
			return c.build(tokens)
		}
	}
	tok, _ := tokens.Front()
	return nil, syntaxErr("a filter predicate", &tok)
}
