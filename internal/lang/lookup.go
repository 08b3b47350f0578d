package lang

import (
	"github.com/muss-lang/muss/internal/compiler/errors"
	"github.com/muss-lang/muss/internal/compiler/lexer"
	"github.com/muss-lang/muss/internal/runtime"
)

// Lookup resolves to a value either statically (a literal baked in at
// parse time) or dynamically (a named variable fetched from the Context at
// iteration time). It's used anywhere the grammar accepts "a literal or a
// variable name" — field comparisons, range bounds, source counts.
type Lookup struct {
	isVariable bool
	static     runtime.TypePrimitive
	name       string
}

// StaticLookup wraps a literal value.
func StaticLookup(v runtime.TypePrimitive) Lookup {
	return Lookup{static: v}
}

// VariableLookup wraps a variable name to resolve later.
func VariableLookup(name string) Lookup {
	return Lookup{isVariable: true, name: name}
}

// LookupCheckIs reports whether a token could begin a Lookup: a bare name
// (variable reference) or a type literal.
func LookupCheckIs(tokens *TokenQueue) bool {
	tok, ok := tokens.Front()
	if !ok {
		return false
	}
	return tok.IsName() || checkIsType(tok)
}

// ParseLookup consumes either a literal (becoming Static) or a bare name
// (becoming Variable). A leading `-` before a numeric literal is accepted
// here too (the lexer never folds the sign into the number itself), so a
// negative count/index argument parses as a single Static literal instead
// of failing as an unrecognized name.
func ParseLookup(tokens *TokenQueue) (Lookup, error) {
	tok, ok := tokens.Front()
	if !ok {
		return Lookup{}, syntaxErr("a variable name or literal", nil)
	}
	if tok.Type == lexer.TOKEN_MINUS {
		tokens.PopFront()
		v, err := assertType(tokens)
		if err != nil {
			return Lookup{}, err
		}
		neg, err := v.Negate()
		if err != nil {
			return Lookup{}, syntaxErr("a negatable numeric literal", &tok)
		}
		return StaticLookup(neg), nil
	}
	if checkIsType(tok) {
		v, err := assertType(tokens)
		if err != nil {
			return Lookup{}, err
		}
		return StaticLookup(v), nil
	}
	name, err := assertName(tokens)
	if err != nil {
		return Lookup{}, err
	}
	return VariableLookup(name), nil
}

// Get resolves the Lookup against a Context without mutating it.
func (l Lookup) Get(ctx *runtime.Context) (runtime.TypePrimitive, error) {
	if !l.isVariable {
		return l.static, nil
	}
	v, err := ctx.Variables.Get(l.name)
	if err != nil {
		return runtime.TypePrimitive{}, err
	}
	if !v.IsPrimitive() {
		return runtime.TypePrimitive{}, errors.NewRuntimeMsg("variable %q is not a primitive value", l.name)
	}
	return v.Primitive, nil
}

func (l Lookup) String() string {
	if l.isVariable {
		return l.name
	}
	return l.static.String()
}
