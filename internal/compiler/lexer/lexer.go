package lexer

import (
	"fmt"
	"strings"
)

// ParseError is a lexical error: an unterminated literal, unbalanced
// brackets at a statement boundary, or an unclassifiable character.
type ParseError struct {
	Line   int
	Column int
	Item   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ParseError (line %d, column %d): unexpected %s", e.Line, e.Column, e.Item)
}

// SetLine implements errors.LanguageError.
func (e *ParseError) SetLine(line int) { e.Line = line }

// Lexer tokenizes Muss source one statement at a time.
//
// Thread Safety: a Lexer is not safe for concurrent use; create one per
// goroutine, matching the stated single-statement lexer contract.
type Lexer struct {
	source string
	pos    int
	line   int
	column int
}

// New creates a Lexer over the given source text.
func New(source string) *Lexer {
	return &Lexer{source: source, pos: 0, line: 1, column: 1}
}

func (l *Lexer) peekByte() (byte, bool) {
	if l.pos >= len(l.source) {
		return 0, false
	}
	return l.source[l.pos], true
}

func (l *Lexer) peekByteAt(offset int) (byte, bool) {
	idx := l.pos + offset
	if idx >= len(l.source) {
		return 0, false
	}
	return l.source[idx], true
}

func (l *Lexer) advance() byte {
	c := l.source[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return c
}

// AtEnd reports whether the whole source has been consumed.
func (l *Lexer) AtEnd() bool {
	return l.pos >= len(l.source)
}

// ReadStatement appends the tokens of the next logical statement to buf and
// returns it. A statement ends at a top-level ';' or end-of-input; every
// bracket opened inside the statement must be closed before the boundary is
// recognized. Comments are dropped before they reach buf.
func (l *Lexer) ReadStatement(buf []Token) ([]Token, error) {
	depth := 0
	for {
		l.skipWhitespaceAndComments()
		if l.AtEnd() {
			if depth != 0 {
				return buf, &ParseError{Line: l.line, Column: l.column, Item: "end of input (unbalanced brackets)"}
			}
			return buf, nil
		}
		startLine, startCol := l.line, l.column
		c, _ := l.peekByte()
		switch {
		case c == ';' && depth == 0:
			l.advance()
			return buf, nil
		case c == '`':
			tok, err := l.scanLiteral()
			if err != nil {
				return buf, err
			}
			buf = append(buf, tok)
		case isPunct(c):
			l.advance()
			tt := punctuation[c]
			if tt == TOKEN_LPAREN || tt == TOKEN_LBRACE || tt == TOKEN_LBRACKET {
				depth++
			} else if tt == TOKEN_RPAREN || tt == TOKEN_RBRACE || tt == TOKEN_RBRACKET {
				depth--
			}
			buf = append(buf, Token{Type: tt, Text: string(c), Line: startLine, Column: startCol})
		default:
			tok, err := l.scanName()
			if err != nil {
				return buf, err
			}
			buf = append(buf, tok)
		}
	}
}

func isPunct(c byte) bool {
	_, ok := punctuation[c]
	return ok
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.AtEnd() {
		c, _ := l.peekByte()
		if isSpace(c) {
			l.advance()
			continue
		}
		if c == '/' {
			if next, ok := l.peekByteAt(1); ok && next == '/' {
				l.skipLineComment()
				continue
			}
		}
		if c == '#' {
			l.skipLineComment()
			continue
		}
		break
	}
}

func (l *Lexer) skipLineComment() {
	for !l.AtEnd() {
		c, _ := l.peekByte()
		if c == '\n' {
			return
		}
		l.advance()
	}
}

func (l *Lexer) scanLiteral() (Token, error) {
	startLine, startCol := l.line, l.column
	l.advance() // opening `
	var sb strings.Builder
	for {
		if l.AtEnd() {
			return Token{}, &ParseError{Line: startLine, Column: startCol, Item: "unterminated string literal"}
		}
		c, _ := l.peekByte()
		if c == '`' {
			l.advance()
			return Token{Type: TOKEN_LITERAL, Text: sb.String(), Line: startLine, Column: startCol}, nil
		}
		sb.WriteByte(l.advance())
	}
}

func (l *Lexer) scanName() (Token, error) {
	startLine, startCol := l.line, l.column
	var sb strings.Builder
	for !l.AtEnd() {
		c, _ := l.peekByte()
		if isSpace(c) || isPunct(c) || c == '`' {
			break
		}
		if c == '/' {
			if next, ok := l.peekByteAt(1); ok && next == '/' {
				break
			}
		}
		if c == '#' {
			break
		}
		sb.WriteByte(l.advance())
	}
	text := sb.String()
	if text == "" {
		c := l.advance()
		return Token{}, &ParseError{Line: startLine, Column: startCol, Item: fmt.Sprintf("character %q", c)}
	}
	return Token{Type: TOKEN_NAME, Text: text, Line: startLine, Column: startCol}, nil
}
