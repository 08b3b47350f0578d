package lang

import (
	"strconv"

	"github.com/muss-lang/muss/internal/compiler/errors"
	"github.com/muss-lang/muss/internal/compiler/lexer"
	"github.com/muss-lang/muss/internal/runtime"
)

func syntaxErr(expected string, got *lexer.Token) *errors.SyntaxError {
	return &errors.SyntaxError{Expected: expected, Got: got}
}

// assertName pops a NAME token, erroring if the queue is empty or the next
// token isn't a name.
func assertName(tokens *TokenQueue) (string, error) {
	tok, ok := tokens.PopFront()
	if !ok {
		return "", syntaxErr("name", nil)
	}
	if !tok.IsName() {
		return "", syntaxErr("name", &tok)
	}
	return tok.Text, nil
}

// assertExactName pops a NAME token and requires its text match exactly.
func assertExactName(name string, tokens *TokenQueue) error {
	tok, ok := tokens.PopFront()
	if !ok {
		return syntaxErr(name, nil)
	}
	if !tok.IsName() || tok.Text != name {
		return syntaxErr(name, &tok)
	}
	return nil
}

func assertTokenType(tt lexer.TokenType, tokens *TokenQueue) (lexer.Token, error) {
	tok, ok := tokens.PopFront()
	if !ok {
		return lexer.Token{}, syntaxErr(tt.String(), nil)
	}
	if tok.Type != tt {
		return lexer.Token{}, syntaxErr(tt.String(), &tok)
	}
	return tok, nil
}

func assertOpenBracket(tokens *TokenQueue) (lexer.Token, error) {
	tok, ok := tokens.PopFront()
	if !ok {
		return lexer.Token{}, syntaxErr("open bracket", nil)
	}
	if !tok.IsOpenBracket() {
		return lexer.Token{}, syntaxErr("open bracket", &tok)
	}
	return tok, nil
}

func assertCloseBracket(tokens *TokenQueue) (lexer.Token, error) {
	tok, ok := tokens.PopFront()
	if !ok {
		return lexer.Token{}, syntaxErr("close bracket", nil)
	}
	if !tok.IsCloseBracket() {
		return lexer.Token{}, syntaxErr("close bracket", &tok)
	}
	return tok, nil
}

func assertLiteral(tokens *TokenQueue) (string, error) {
	tok, err := assertTokenType(lexer.TOKEN_LITERAL, tokens)
	if err != nil {
		return "", err
	}
	return tok.Text, nil
}

// checkIsType reports whether a token could be parsed as a TypePrimitive
// literal: a LITERAL (string), or a NAME that parses as int/uint/float/bool.
func checkIsType(tok lexer.Token) bool {
	if tok.Type == lexer.TOKEN_LITERAL {
		return true
	}
	if tok.Type != lexer.TOKEN_NAME {
		return false
	}
	s := tok.Text
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return true
	}
	if _, err := strconv.ParseUint(s, 10, 64); err == nil {
		return true
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	return s == "true" || s == "false"
}

// assertType pops a token and parses it as a TypePrimitive literal, trying
// Int, then UInt, then Float, then Bool, in that order — mirroring the
// original parser's fallback chain so "9223372036854775808" (too big for
// Int) still parses as UInt rather than failing.
func assertType(tokens *TokenQueue) (runtime.TypePrimitive, error) {
	tok, ok := tokens.PopFront()
	if !ok {
		return runtime.TypePrimitive{}, syntaxErr("Float | UInt | Int | Bool | \"String\"", nil)
	}
	if tok.Type == lexer.TOKEN_LITERAL {
		return runtime.StringVal(tok.Text), nil
	}
	if tok.Type != lexer.TOKEN_NAME {
		return runtime.TypePrimitive{}, syntaxErr("Float | UInt | Int | Bool | \"String\"", &tok)
	}
	s := tok.Text
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return runtime.IntVal(i), nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return runtime.UIntVal(u), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return runtime.FloatVal(f), nil
	}
	if s == "true" {
		return runtime.BoolVal(true), nil
	}
	if s == "false" {
		return runtime.BoolVal(false), nil
	}
	return runtime.TypePrimitive{}, syntaxErr("Float | UInt | Int | Bool | \"String\"", &tok)
}
