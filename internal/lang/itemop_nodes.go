package lang

import (
	"fmt"
	"strings"

	"github.com/muss-lang/muss/internal/compiler/errors"
	"github.com/muss-lang/muss/internal/compiler/lexer"
	"github.com/muss-lang/muss/internal/runtime"
)

// ---- node types -----------------------------------------------------

type constantItemOp struct{ value runtime.TypePrimitive }

func (c *constantItemOp) String() string { return c.value.String() }
func (c *constantItemOp) Execute(_ *runtime.Context) (runtime.Value, error) {
	return runtime.PrimitiveValue(c.value), nil
}

type variableRetrieveItemOp struct {
	variableName string
	fieldName    string
	hasField     bool
}

func (v *variableRetrieveItemOp) String() string {
	if v.hasField {
		return v.variableName + "." + v.fieldName
	}
	return v.variableName
}

func (v *variableRetrieveItemOp) Execute(ctx *runtime.Context) (runtime.Value, error) {
	val, err := ctx.Variables.Get(v.variableName)
	if err != nil {
		return runtime.Value{}, errors.NewRuntimeMsg("%s", err.Error())
	}
	if v.hasField {
		if !val.IsItem() {
			return runtime.Value{}, errors.NewRuntimeMsg(
				"Cannot access field `%s` on variable `%s` (%s is not Item)", v.fieldName, v.variableName, val)
		}
		f, ok := val.Item.Field(v.fieldName)
		if !ok {
			return runtime.Value{}, errors.NewRuntimeMsg(
				"Cannot access field `%s` on variable `%s` (field does not exist)", v.fieldName, v.variableName)
		}
		return runtime.PrimitiveValue(f), nil
	}
	switch val.Kind {
	case runtime.ValueKindOp:
		return runtime.OpValue(val.Op.Dup()), nil
	case runtime.ValueKindItem:
		return runtime.ItemValue(val.Item.Clone()), nil
	default:
		return runtime.PrimitiveValue(val.Primitive), nil
	}
}

type variableAssignItemOp struct {
	variableName string
	inner        ItemOp
}

func (v *variableAssignItemOp) String() string { return v.variableName + " = " + v.inner.String() }
func (v *variableAssignItemOp) Execute(ctx *runtime.Context) (runtime.Value, error) {
	val, err := v.inner.Execute(ctx)
	if err != nil {
		return runtime.Value{}, err
	}
	if err := ctx.Variables.Assign(v.variableName, val); err != nil {
		return runtime.Value{}, errors.NewRuntimeMsg("%s", err.Error())
	}
	return runtime.PrimitiveValue(runtime.Empty), nil
}

type variableDeclareItemOp struct {
	variableName string
	inner        ItemOp // nil if bare `let name`
}

func (v *variableDeclareItemOp) String() string {
	if v.inner != nil {
		return "let " + v.variableName + " = " + v.inner.String()
	}
	return "let " + v.variableName
}

func (v *variableDeclareItemOp) Execute(ctx *runtime.Context) (runtime.Value, error) {
	if ctx.Variables.Exists(v.variableName) {
		return runtime.PrimitiveValue(runtime.Empty), nil
	}
	val := runtime.PrimitiveValue(runtime.Empty)
	if v.inner != nil {
		var err error
		val, err = v.inner.Execute(ctx)
		if err != nil {
			return runtime.Value{}, err
		}
	}
	if err := ctx.Variables.Declare(v.variableName, val); err != nil {
		return runtime.Value{}, errors.NewRuntimeMsg("%s", err.Error())
	}
	return runtime.PrimitiveValue(runtime.Empty), nil
}

type fieldAssignItemOp struct {
	variableName string
	fieldName    string
	inner        ItemOp
}

func (f *fieldAssignItemOp) String() string {
	return f.variableName + "." + f.fieldName + " = " + f.inner.String()
}

func (f *fieldAssignItemOp) Execute(ctx *runtime.Context) (runtime.Value, error) {
	val, err := f.inner.Execute(ctx)
	if err != nil {
		return runtime.Value{}, err
	}
	cur, getErr := ctx.Variables.Get(f.variableName)
	if getErr != nil {
		return runtime.Value{}, errors.NewRuntimeMsg("%s", getErr.Error())
	}
	if !cur.IsItem() {
		return runtime.Value{}, errors.NewRuntimeMsg(
			"Cannot access field `%s` on variable `%s` (%s is not Item)", f.fieldName, f.variableName, cur)
	}
	if !val.IsPrimitive() {
		return runtime.Value{}, errors.NewRuntimeMsg(
			"Cannot assign non-primitive %s to variable field `%s.%s`", val, f.variableName, f.fieldName)
	}
	cur.Item.SetField(f.fieldName, val.Primitive)
	if err := ctx.Variables.Assign(f.variableName, cur); err != nil {
		return runtime.Value{}, errors.NewRuntimeMsg("%s", err.Error())
	}
	return runtime.PrimitiveValue(runtime.Empty), nil
}

type removeItemOp struct {
	variableName string
	fieldName    string
	hasField     bool
}

func (r *removeItemOp) String() string {
	if r.hasField {
		return "remove " + r.variableName + "." + r.fieldName
	}
	return "remove " + r.variableName
}

func (r *removeItemOp) Execute(ctx *runtime.Context) (runtime.Value, error) {
	if r.hasField {
		cur, err := ctx.Variables.Get(r.variableName)
		if err != nil {
			return runtime.Value{}, errors.NewRuntimeMsg("%s", err.Error())
		}
		if !cur.IsItem() {
			return runtime.Value{}, errors.NewRuntimeMsg(
				"Cannot access field `%s` on variable `%s` (%s is not Item)", r.fieldName, r.variableName, cur)
		}
		cur.Item.RemoveField(r.fieldName)
		ctx.Variables.Assign(r.variableName, cur)
		return runtime.PrimitiveValue(runtime.Empty), nil
	}
	ctx.Variables.Remove(r.variableName)
	return runtime.PrimitiveValue(runtime.Empty), nil
}

type emptyItemOp struct{}

func (emptyItemOp) String() string { return "empty()" }
func (emptyItemOp) Execute(_ *runtime.Context) (runtime.Value, error) {
	return runtime.PrimitiveValue(runtime.Empty), nil
}

type fileItemOp struct{ inner ItemOp }

func (f *fileItemOp) String() string { return "file(" + f.inner.String() + ")" }
func (f *fileItemOp) Execute(ctx *runtime.Context) (runtime.Value, error) {
	val, err := f.inner.Execute(ctx)
	if err != nil {
		return runtime.Value{}, err
	}
	path, ok := val.Primitive.Str()
	if !val.IsPrimitive() || !ok {
		return runtime.Value{}, errors.NewRuntimeMsg("Cannot use %s as filepath (should be String)", val)
	}
	item, ferr := ctx.Filesystem.Single(path, "")
	if ferr != nil {
		return runtime.Value{}, errors.NewRuntimeMsg("%s", ferr.Error())
	}
	return runtime.ItemValue(item), nil
}

type iterItemOp struct{ inner runtime.Op }

func (i *iterItemOp) String() string { return "iter " + i.inner.String() }
func (i *iterItemOp) Execute(_ *runtime.Context) (runtime.Value, error) {
	return runtime.OpValue(i.inner.Dup()), nil
}

type constructorField struct {
	name  string
	value ItemOp
}

type constructorItemOp struct{ fields []constructorField }

func (c *constructorItemOp) String() string {
	parts := make([]string, len(c.fields))
	for i, f := range c.fields {
		parts[i] = fmt.Sprintf("%s: %s", f.name, f.value)
	}
	return "Item(" + strings.Join(parts, ", ") + ")"
}

func (c *constructorItemOp) Execute(ctx *runtime.Context) (runtime.Value, error) {
	result := runtime.NewItem()
	for _, f := range c.fields {
		val, err := f.value.Execute(ctx)
		if err != nil {
			return runtime.Value{}, err
		}
		if !val.IsPrimitive() {
			return runtime.Value{}, errors.NewRuntimeMsg("Cannot assign non-primitive %s to Item field `%s`", val, f.name)
		}
		result.SetField(f.name, val.Primitive)
	}
	return runtime.ItemValue(result), nil
}

type stringInterpolateItemOp struct {
	format string
	inner  ItemOp
}

func (s *stringInterpolateItemOp) String() string {
	return fmt.Sprintf("~ `%s` %s", s.format, s.inner)
}

func (s *stringInterpolateItemOp) Execute(ctx *runtime.Context) (runtime.Value, error) {
	val, err := s.inner.Execute(ctx)
	if err != nil {
		return runtime.Value{}, err
	}
	switch val.Kind {
	case runtime.ValueKindPrimitive:
		return runtime.PrimitiveValue(runtime.StringVal(strings.ReplaceAll(s.format, "{}", val.Primitive.AsStr()))), nil
	case runtime.ValueKindItem:
		result := s.format
		if val.Item.Len() > 0 {
			for _, k := range val.Item.Keys() {
				f, _ := val.Item.Field(k)
				result = strings.ReplaceAll(result, "{"+k+"}", f.AsStr())
			}
		}
		return runtime.PrimitiveValue(runtime.StringVal(result)), nil
	case runtime.ValueKindOp:
		return runtime.PrimitiveValue(runtime.StringVal(strings.ReplaceAll(s.format, "{}", val.Op.String()))), nil
	default:
		return runtime.PrimitiveValue(runtime.StringVal(s.format)), nil
	}
}

type bracketsItemOp struct{ inner ItemOp }

func (b *bracketsItemOp) String() string                                { return "(" + b.inner.String() + ")" }
func (b *bracketsItemOp) Execute(ctx *runtime.Context) (runtime.Value, error) { return b.inner.Execute(ctx) }

type negateItemOp struct{ rhs ItemOp }

func (n *negateItemOp) String() string { return "- " + n.rhs.String() }
func (n *negateItemOp) Execute(ctx *runtime.Context) (runtime.Value, error) {
	val, err := n.rhs.Execute(ctx)
	if err != nil {
		return runtime.Value{}, err
	}
	if !val.IsPrimitive() {
		return runtime.Value{}, errors.NewRuntimeMsg("Cannot negate `%s` (%s): not primitive type", n.rhs, val)
	}
	out, nerr := val.Primitive.Negate()
	if nerr != nil {
		return runtime.Value{}, errors.NewRuntimeMsg("%s", nerr.Error())
	}
	return runtime.PrimitiveValue(out), nil
}

type notItemOp struct{ rhs ItemOp }

func (n *notItemOp) String() string { return "! " + n.rhs.String() }
func (n *notItemOp) Execute(ctx *runtime.Context) (runtime.Value, error) {
	val, err := n.rhs.Execute(ctx)
	if err != nil {
		return runtime.Value{}, err
	}
	if !val.IsPrimitive() {
		return runtime.Value{}, errors.NewRuntimeMsg("Cannot apply logical NOT to `%s` (%s): not primitive type", n.rhs, val)
	}
	out, nerr := val.Primitive.Not()
	if nerr != nil {
		return runtime.Value{}, errors.NewRuntimeMsg("%s", nerr.Error())
	}
	return runtime.PrimitiveValue(out), nil
}

type addItemOp struct{ lhs, rhs ItemOp }

func (a *addItemOp) String() string { return a.lhs.String() + " + " + a.rhs.String() }
func (a *addItemOp) Execute(ctx *runtime.Context) (runtime.Value, error) {
	lhs, err := a.lhs.Execute(ctx)
	if err != nil {
		return runtime.Value{}, err
	}
	if !lhs.IsPrimitive() {
		return runtime.Value{}, errors.NewRuntimeMsg("Cannot add left-hand side `%s` (%s): not primitive type", a.lhs, lhs)
	}
	rhs, err := a.rhs.Execute(ctx)
	if err != nil {
		return runtime.Value{}, err
	}
	if !rhs.IsPrimitive() {
		return runtime.Value{}, errors.NewRuntimeMsg("Cannot add right-hand side `%s` (%s): not primitive type", a.rhs, rhs)
	}
	sum, serr := lhs.Primitive.TryAdd(rhs.Primitive)
	if serr != nil {
		return runtime.Value{}, errors.NewRuntimeMsg("%s", serr.Error())
	}
	return runtime.PrimitiveValue(sum), nil
}

type subtractItemOp struct{ lhs, rhs ItemOp }

func (s *subtractItemOp) String() string { return s.lhs.String() + " - " + s.rhs.String() }
func (s *subtractItemOp) Execute(ctx *runtime.Context) (runtime.Value, error) {
	lhs, err := s.lhs.Execute(ctx)
	if err != nil {
		return runtime.Value{}, err
	}
	if !lhs.IsPrimitive() {
		return runtime.Value{}, errors.NewRuntimeMsg("Cannot subtract left-hand side `%s` (%s): not primitive type", s.lhs, lhs)
	}
	rhs, err := s.rhs.Execute(ctx)
	if err != nil {
		return runtime.Value{}, err
	}
	if !rhs.IsPrimitive() {
		return runtime.Value{}, errors.NewRuntimeMsg("Cannot subtract right-hand side `%s` (%s): not primitive type", s.rhs, rhs)
	}
	diff, derr := lhs.Primitive.TrySub(rhs.Primitive)
	if derr != nil {
		return runtime.Value{}, errors.NewRuntimeMsg("%s", derr.Error())
	}
	return runtime.PrimitiveValue(diff), nil
}

type orItemOp struct{ lhs, rhs ItemOp }

func (o *orItemOp) String() string { return o.lhs.String() + " || " + o.rhs.String() }
func (o *orItemOp) Execute(ctx *runtime.Context) (runtime.Value, error) {
	lhs, err := o.lhs.Execute(ctx)
	if err != nil {
		return runtime.Value{}, err
	}
	lb, ok := lhs.Primitive.Bool()
	if !lhs.IsPrimitive() || !ok {
		return runtime.Value{}, errors.NewRuntimeMsg("Cannot apply logical OR to left-hand side of `%s` (%s): not Bool type", o.lhs, lhs)
	}
	if lb {
		return runtime.PrimitiveValue(runtime.BoolVal(true)), nil
	}
	rhs, err := o.rhs.Execute(ctx)
	if err != nil {
		return runtime.Value{}, err
	}
	rb, ok := rhs.Primitive.Bool()
	if !rhs.IsPrimitive() || !ok {
		return runtime.Value{}, errors.NewRuntimeMsg("Cannot apply logical OR to right-hand side of `%s` (%s): not Bool type", o.rhs, rhs)
	}
	return runtime.PrimitiveValue(runtime.BoolVal(rb)), nil
}

type andItemOp struct{ lhs, rhs ItemOp }

func (a *andItemOp) String() string { return a.lhs.String() + " && " + a.rhs.String() }
func (a *andItemOp) Execute(ctx *runtime.Context) (runtime.Value, error) {
	lhs, err := a.lhs.Execute(ctx)
	if err != nil {
		return runtime.Value{}, err
	}
	lb, ok := lhs.Primitive.Bool()
	if !lhs.IsPrimitive() || !ok {
		return runtime.Value{}, errors.NewRuntimeMsg("Cannot apply logical AND to left-hand side of `%s` (%s): not Bool type", a.lhs, lhs)
	}
	if !lb {
		return runtime.PrimitiveValue(runtime.BoolVal(false)), nil
	}
	rhs, err := a.rhs.Execute(ctx)
	if err != nil {
		return runtime.Value{}, err
	}
	rb, ok := rhs.Primitive.Bool()
	if !rhs.IsPrimitive() || !ok {
		return runtime.Value{}, errors.NewRuntimeMsg("Cannot apply logical AND to right-hand side of `%s` (%s): not Bool type", a.rhs, rhs)
	}
	return runtime.PrimitiveValue(runtime.BoolVal(rb)), nil
}

type compareItemOp struct {
	comparators []int8
	opText      string
	lhs, rhs    ItemOp
}

func (c *compareItemOp) String() string { return c.lhs.String() + " " + c.opText + " " + c.rhs.String() }
func (c *compareItemOp) Execute(ctx *runtime.Context) (runtime.Value, error) {
	lhs, err := c.lhs.Execute(ctx)
	if err != nil {
		return runtime.Value{}, err
	}
	if !lhs.IsPrimitive() {
		return runtime.Value{}, errors.NewRuntimeMsg("Cannot compare non-primitive left-hand side %s (%s)", c.lhs, lhs)
	}
	rhs, err := c.rhs.Execute(ctx)
	if err != nil {
		return runtime.Value{}, err
	}
	if !rhs.IsPrimitive() {
		return runtime.Value{}, errors.NewRuntimeMsg("Cannot compare non-primitive right-hand side %s (%s)", c.rhs, rhs)
	}
	cmp, cerr := lhs.Primitive.Compare(rhs.Primitive)
	if cerr != nil {
		return runtime.Value{}, errors.NewRuntimeMsg("%s", cerr.Error())
	}
	match := false
	for _, want := range c.comparators {
		if want == cmp {
			match = true
			break
		}
	}
	return runtime.PrimitiveValue(runtime.BoolVal(match)), nil
}

// comparatorsFor maps a comparison operator's text to its set of matching
// three-valued Compare outcomes, mirroring the original's [i8; 2] arrays
// (a second sentinel value repeats the first when the operator has only one
// matching outcome).
func comparatorsFor(op string) []int8 {
	switch op {
	case "==":
		return []int8{0, 0}
	case "!=":
		return []int8{-1, 1}
	case "<":
		return []int8{-1, -1}
	case "<=":
		return []int8{-1, 0}
	case ">":
		return []int8{1, 1}
	case ">=":
		return []int8{0, 1}
	default:
		return nil
	}
}

// ---- parser -----------------------------------------------------------
//
// parseItemExpr is a direct recursive-descent/precedence-climbing parser
// over one `;`-separated expression of an item-op block, rather than a
// literal port of the ordered-factory-list-with-first-match-wins scan the
// interpreter uses for every other statement shape. The tiers below mirror
// the precedence table directly: assignment forms bind loosest, then `||`,
// then `&&`, then a single (non-chained) comparison, then `+`/`-`, then
// unary `-`/`!`, then primary expressions. Each tier calls the next
// tighter tier for its operands, which is what gives the precedence its
// meaning — no registration-order trickery required.
func parseItemExpr(q *TokenQueue, dict *Dictionary) (ItemOp, error) {
	expr, err := parseStatementForm(q, dict)
	if err != nil {
		return nil, err
	}
	if !q.Empty() {
		tok, _ := q.Front()
		return nil, syntaxErr("end of expression", &tok)
	}
	return expr, nil
}

func parseStatementForm(q *TokenQueue, dict *Dictionary) (ItemOp, error) {
	switch {
	case isLetForm(q):
		return parseLetForm(q, dict)
	case isRemoveForm(q):
		return parseRemoveForm(q)
	case isFieldAssignForm(q):
		return parseFieldAssignForm(q, dict)
	case isVariableAssignForm(q):
		return parseVariableAssignForm(q, dict)
	default:
		return parseOrExpr(q, dict)
	}
}

func isLetForm(q *TokenQueue) bool {
	front, ok := q.Front()
	return ok && front.IsName() && front.Text == "let"
}

// parseLetForm handles `let name` and `let name = expr`. There is no
// dedicated keyword token for `let` — it lexes as a plain NAME — so the
// claim check above is textual rather than a token-type test.
func parseLetForm(q *TokenQueue, dict *Dictionary) (ItemOp, error) {
	if err := assertExactName("let", q); err != nil {
		return nil, err
	}
	name, err := assertName(q)
	if err != nil {
		return nil, err
	}
	if q.Empty() {
		return &variableDeclareItemOp{variableName: name}, nil
	}
	if _, err := assertTokenType(lexer.TOKEN_EQUALS, q); err != nil {
		return nil, err
	}
	inner, err := parseOrExpr(q, dict)
	if err != nil {
		return nil, err
	}
	return &variableDeclareItemOp{variableName: name, inner: inner}, nil
}

// isRemoveForm claims exactly `remove name` (length 2) or
// `remove name . field` (length 4), matching the original's token-length
// based claim check so a longer expression such as `remove x + 1` is not
// claimed as a removal just because it starts with the name "remove".
func isRemoveForm(q *TokenQueue) bool {
	front, ok := q.Front()
	if !ok || !front.IsName() || front.Text != "remove" {
		return false
	}
	switch q.Len() {
	case 2:
		return q.At(1).IsName()
	case 4:
		return q.At(1).IsName() && q.At(2).IsDot() && q.At(3).IsName()
	default:
		return false
	}
}

func parseRemoveForm(q *TokenQueue) (ItemOp, error) {
	if err := assertExactName("remove", q); err != nil {
		return nil, err
	}
	name, err := assertName(q)
	if err != nil {
		return nil, err
	}
	if q.Empty() {
		return &removeItemOp{variableName: name}, nil
	}
	if _, err := assertTokenType(lexer.TOKEN_DOT, q); err != nil {
		return nil, err
	}
	field, err := assertName(q)
	if err != nil {
		return nil, err
	}
	return &removeItemOp{variableName: name, fieldName: field, hasField: true}, nil
}

// isFieldAssignForm claims `name.field = expr` or a leading bare
// `.field = expr`, whose variable defaults to "item" — the parser-level
// sugar that lets item-op blocks write `.title = ...` instead of spelling
// out `item.title = ...`.
func isFieldAssignForm(q *TokenQueue) bool {
	front, ok := q.Front()
	if !ok {
		return false
	}
	if front.IsDot() {
		return q.Len() >= 3 && q.At(1).IsName() && q.At(2).Type == lexer.TOKEN_EQUALS &&
			(q.Len() == 3 || q.At(3).Type != lexer.TOKEN_EQUALS)
	}
	if front.IsName() {
		return q.Len() >= 4 && q.At(1).IsDot() && q.At(2).IsName() && q.At(3).Type == lexer.TOKEN_EQUALS &&
			(q.Len() == 4 || q.At(4).Type != lexer.TOKEN_EQUALS)
	}
	return false
}

func parseFieldAssignForm(q *TokenQueue, dict *Dictionary) (ItemOp, error) {
	varName := "item"
	front, _ := q.Front()
	if front.IsDot() {
		q.PopFront()
	} else {
		name, err := assertName(q)
		if err != nil {
			return nil, err
		}
		varName = name
		if _, err := assertTokenType(lexer.TOKEN_DOT, q); err != nil {
			return nil, err
		}
	}
	field, err := assertName(q)
	if err != nil {
		return nil, err
	}
	if _, err := assertTokenType(lexer.TOKEN_EQUALS, q); err != nil {
		return nil, err
	}
	inner, err := parseOrExpr(q, dict)
	if err != nil {
		return nil, err
	}
	return &fieldAssignItemOp{variableName: varName, fieldName: field, inner: inner}, nil
}

func isVariableAssignForm(q *TokenQueue) bool {
	front, ok := q.Front()
	if !ok || !front.IsName() {
		return false
	}
	return q.Len() >= 2 && q.At(1).Type == lexer.TOKEN_EQUALS &&
		(q.Len() == 2 || q.At(2).Type != lexer.TOKEN_EQUALS)
}

func parseVariableAssignForm(q *TokenQueue, dict *Dictionary) (ItemOp, error) {
	name, err := assertName(q)
	if err != nil {
		return nil, err
	}
	if _, err := assertTokenType(lexer.TOKEN_EQUALS, q); err != nil {
		return nil, err
	}
	inner, err := parseOrExpr(q, dict)
	if err != nil {
		return nil, err
	}
	return &variableAssignItemOp{variableName: name, inner: inner}, nil
}

func parseOrExpr(q *TokenQueue, dict *Dictionary) (ItemOp, error) {
	lhs, err := parseAndExpr(q, dict)
	if err != nil {
		return nil, err
	}
	for {
		if q.Len() < 2 || q.At(0).Type != lexer.TOKEN_PIPE || q.At(1).Type != lexer.TOKEN_PIPE {
			return lhs, nil
		}
		q.PopFront()
		q.PopFront()
		rhs, err := parseAndExpr(q, dict)
		if err != nil {
			return nil, err
		}
		lhs = &orItemOp{lhs: lhs, rhs: rhs}
	}
}

func parseAndExpr(q *TokenQueue, dict *Dictionary) (ItemOp, error) {
	lhs, err := parseCompareExpr(q, dict)
	if err != nil {
		return nil, err
	}
	for {
		if q.Len() < 2 || q.At(0).Type != lexer.TOKEN_AMP || q.At(1).Type != lexer.TOKEN_AMP {
			return lhs, nil
		}
		q.PopFront()
		q.PopFront()
		rhs, err := parseCompareExpr(q, dict)
		if err != nil {
			return nil, err
		}
		lhs = &andItemOp{lhs: lhs, rhs: rhs}
	}
}

// tryConsumeComparator consumes a comparison operator from the front of q,
// if one is present, returning its canonical text.
func tryConsumeComparator(q *TokenQueue) (string, bool) {
	front, ok := q.Front()
	if !ok {
		return "", false
	}
	switch front.Type {
	case lexer.TOKEN_LANGLE:
		if q.Len() >= 2 && q.At(1).Type == lexer.TOKEN_EQUALS {
			q.PopFront()
			q.PopFront()
			return "<=", true
		}
		q.PopFront()
		return "<", true
	case lexer.TOKEN_RANGLE:
		if q.Len() >= 2 && q.At(1).Type == lexer.TOKEN_EQUALS {
			q.PopFront()
			q.PopFront()
			return ">=", true
		}
		q.PopFront()
		return ">", true
	case lexer.TOKEN_EQUALS:
		if q.Len() >= 2 && q.At(1).Type == lexer.TOKEN_EQUALS {
			q.PopFront()
			q.PopFront()
			return "==", true
		}
		return "", false
	case lexer.TOKEN_BANG:
		if q.Len() >= 2 && q.At(1).Type == lexer.TOKEN_EQUALS {
			q.PopFront()
			q.PopFront()
			return "!=", true
		}
		return "", false
	default:
		return "", false
	}
}

// parseCompareExpr allows at most one comparison per expression — chained
// comparisons (`a < b < c`) aren't part of the grammar.
func parseCompareExpr(q *TokenQueue, dict *Dictionary) (ItemOp, error) {
	lhs, err := parseAdditiveExpr(q, dict)
	if err != nil {
		return nil, err
	}
	op, ok := tryConsumeComparator(q)
	if !ok {
		return lhs, nil
	}
	rhs, err := parseAdditiveExpr(q, dict)
	if err != nil {
		return nil, err
	}
	return &compareItemOp{comparators: comparatorsFor(op), opText: op, lhs: lhs, rhs: rhs}, nil
}

func parseAdditiveExpr(q *TokenQueue, dict *Dictionary) (ItemOp, error) {
	lhs, err := parseUnaryExpr(q, dict)
	if err != nil {
		return nil, err
	}
	for {
		front, ok := q.Front()
		if !ok {
			return lhs, nil
		}
		switch front.Type {
		case lexer.TOKEN_PLUS:
			q.PopFront()
			rhs, err := parseUnaryExpr(q, dict)
			if err != nil {
				return nil, err
			}
			lhs = &addItemOp{lhs: lhs, rhs: rhs}
		case lexer.TOKEN_MINUS:
			q.PopFront()
			rhs, err := parseUnaryExpr(q, dict)
			if err != nil {
				return nil, err
			}
			lhs = &subtractItemOp{lhs: lhs, rhs: rhs}
		default:
			return lhs, nil
		}
	}
}

func parseUnaryExpr(q *TokenQueue, dict *Dictionary) (ItemOp, error) {
	front, ok := q.Front()
	if ok && front.Type == lexer.TOKEN_MINUS {
		q.PopFront()
		rhs, err := parseUnaryExpr(q, dict)
		if err != nil {
			return nil, err
		}
		return &negateItemOp{rhs: rhs}, nil
	}
	if ok && front.Type == lexer.TOKEN_BANG {
		q.PopFront()
		rhs, err := parseUnaryExpr(q, dict)
		if err != nil {
			return nil, err
		}
		return &notItemOp{rhs: rhs}, nil
	}
	return parsePrimaryExpr(q, dict)
}

// takeBalancedInner consumes tokens up to (and including) the bracket
// matching one already popped by the caller, returning everything before
// the match.
func takeBalancedInner(q *TokenQueue) ([]lexer.Token, error) {
	depth := 1
	var inner []lexer.Token
	for {
		tok, ok := q.PopFront()
		if !ok {
			return nil, syntaxErr("close bracket", nil)
		}
		if tok.IsOpenBracket() {
			depth++
			inner = append(inner, tok)
			continue
		}
		if tok.IsCloseBracket() {
			depth--
			if depth == 0 {
				return inner, nil
			}
			inner = append(inner, tok)
			continue
		}
		inner = append(inner, tok)
	}
}

func parseSubExprFull(toks []lexer.Token, dict *Dictionary) (ItemOp, error) {
	subq := NewTokenQueue(toks)
	expr, err := parseOrExpr(subq, dict)
	if err != nil {
		return nil, err
	}
	if !subq.Empty() {
		tok, _ := subq.Front()
		return nil, syntaxErr("end of expression", &tok)
	}
	return expr, nil
}

// splitConstructorField consumes one Item(...) field value's tokens, up to
// (not including) the next depth-0 comma or the constructor's closing
// paren — either of which it also consumes, returning it as the terminator.
func splitConstructorField(q *TokenQueue) ([]lexer.Token, lexer.Token, error) {
	depth := 0
	var toks []lexer.Token
	for {
		tok, ok := q.PopFront()
		if !ok {
			return nil, lexer.Token{}, syntaxErr(", or )", nil)
		}
		if tok.IsOpenBracket() {
			depth++
			toks = append(toks, tok)
			continue
		}
		if tok.IsCloseBracket() {
			if depth == 0 {
				return toks, tok, nil
			}
			depth--
			toks = append(toks, tok)
			continue
		}
		if tok.Type == lexer.TOKEN_COMMA && depth == 0 {
			return toks, tok, nil
		}
		toks = append(toks, tok)
	}
}

func parseConstructorFields(q *TokenQueue, dict *Dictionary) (ItemOp, error) {
	var fields []constructorField
	if front, ok := q.Front(); ok && front.IsCloseBracket() {
		q.PopFront()
		return &constructorItemOp{fields: fields}, nil
	}
	for {
		name, err := assertName(q)
		if err != nil {
			return nil, err
		}
		if _, err := assertTokenType(lexer.TOKEN_EQUALS, q); err != nil {
			return nil, err
		}
		valueToks, term, err := splitConstructorField(q)
		if err != nil {
			return nil, err
		}
		value, err := parseSubExprFull(valueToks, dict)
		if err != nil {
			return nil, err
		}
		fields = append(fields, constructorField{name: name, value: value})
		if term.Type == lexer.TOKEN_COMMA {
			continue
		}
		break
	}
	return &constructorItemOp{fields: fields}, nil
}

func parsePrimaryExpr(q *TokenQueue, dict *Dictionary) (ItemOp, error) {
	front, ok := q.Front()
	if !ok {
		return nil, syntaxErr("expression", nil)
	}

	switch {
	case front.Type == lexer.TOKEN_LPAREN:
		q.PopFront()
		inner, err := takeBalancedInner(q)
		if err != nil {
			return nil, err
		}
		expr, err := parseSubExprFull(inner, dict)
		if err != nil {
			return nil, err
		}
		return &bracketsItemOp{inner: expr}, nil

	case front.Type == lexer.TOKEN_TILDE:
		q.PopFront()
		format, err := assertLiteral(q)
		if err != nil {
			return nil, err
		}
		inner, err := parseOrExpr(q, dict)
		if err != nil {
			return nil, err
		}
		return &stringInterpolateItemOp{format: format, inner: inner}, nil

	case front.IsName() && front.Text == "file" && q.Len() >= 2 && q.At(1).Type == lexer.TOKEN_LPAREN:
		q.PopFront()
		q.PopFront()
		inner, err := takeBalancedInner(q)
		if err != nil {
			return nil, err
		}
		expr, err := parseSubExprFull(inner, dict)
		if err != nil {
			return nil, err
		}
		return &fileItemOp{inner: expr}, nil

	case front.IsName() && front.Text == "empty" && q.Len() >= 3 &&
		q.At(1).Type == lexer.TOKEN_LPAREN && q.At(2).Type == lexer.TOKEN_RPAREN:
		q.PopFront()
		q.PopFront()
		q.PopFront()
		return emptyItemOp{}, nil

	case front.IsName() && front.Text == "Item" && q.Len() >= 2 && q.At(1).Type == lexer.TOKEN_LPAREN:
		q.PopFront()
		q.PopFront()
		return parseConstructorFields(q, dict)

	case front.IsName() && front.Text == "iter" && q.Len() >= 2:
		q.PopFront()
		op, err := dict.TryBuildStatement(q)
		if err != nil {
			return nil, err
		}
		for !q.Empty() {
			q.PopFront()
		}
		return &iterItemOp{inner: op}, nil

	case checkIsType(front):
		v, err := assertType(q)
		if err != nil {
			return nil, err
		}
		return &constantItemOp{value: v}, nil

	case front.IsName():
		name, _ := assertName(q)
		if q.Len() >= 2 {
			if nxt, _ := q.Front(); nxt.IsDot() && q.At(1).IsName() {
				q.PopFront()
				field, _ := assertName(q)
				return &variableRetrieveItemOp{variableName: name, fieldName: field, hasField: true}, nil
			}
		}
		return &variableRetrieveItemOp{variableName: name}, nil
	}

	return nil, syntaxErr("expression", &front)
}
