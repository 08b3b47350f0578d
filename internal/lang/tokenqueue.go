// Package lang implements the vocabulary/parser layer: an ordered list of
// factories, each claiming a token shape and building a runtime.Op (or a
// filter predicate / sorter / item-op) from it. It builds on both
// internal/compiler (tokens, errors) and internal/runtime.
package lang

import "github.com/muss-lang/muss/internal/compiler/lexer"

// TokenQueue is a small front/back-poppable token buffer, the Go analogue
// of the VecDeque<Token> every factory in this package is built against.
type TokenQueue struct {
	toks []lexer.Token
}

// NewTokenQueue wraps a token slice for factory consumption.
func NewTokenQueue(toks []lexer.Token) *TokenQueue {
	return &TokenQueue{toks: toks}
}

// Len reports the number of tokens remaining.
func (q *TokenQueue) Len() int { return len(q.toks) }

// Empty reports whether the queue has no tokens left.
func (q *TokenQueue) Empty() bool { return len(q.toks) == 0 }

// At returns the token at index i without consuming it.
func (q *TokenQueue) At(i int) lexer.Token { return q.toks[i] }

// Front returns the first token without consuming it.
func (q *TokenQueue) Front() (lexer.Token, bool) {
	if len(q.toks) == 0 {
		return lexer.Token{}, false
	}
	return q.toks[0], true
}

// Back returns the last token without consuming it.
func (q *TokenQueue) Back() (lexer.Token, bool) {
	if len(q.toks) == 0 {
		return lexer.Token{}, false
	}
	return q.toks[len(q.toks)-1], true
}

// PopFront removes and returns the first token.
func (q *TokenQueue) PopFront() (lexer.Token, bool) {
	if len(q.toks) == 0 {
		return lexer.Token{}, false
	}
	t := q.toks[0]
	q.toks = q.toks[1:]
	return t, true
}

// PopBack removes and returns the last token.
func (q *TokenQueue) PopBack() (lexer.Token, bool) {
	if len(q.toks) == 0 {
		return lexer.Token{}, false
	}
	t := q.toks[len(q.toks)-1]
	q.toks = q.toks[:len(q.toks)-1]
	return t, true
}

// PushFront re-prepends a token (used after splitting off a trailing
// close-bracket to let an inner factory consume the middle, mirroring the
// split_off/extend dance function.rs uses around its parameter tokens).
func (q *TokenQueue) PushFront(t lexer.Token) {
	q.toks = append([]lexer.Token{t}, q.toks...)
}

// PushBack appends a token.
func (q *TokenQueue) PushBack(t lexer.Token) {
	q.toks = append(q.toks, t)
}

// Slice returns the remaining tokens as a plain slice (read-only use).
func (q *TokenQueue) Slice() []lexer.Token { return q.toks }

// Clone returns an independent copy, for lookahead that must not consume.
func (q *TokenQueue) Clone() *TokenQueue {
	cp := make([]lexer.Token, len(q.toks))
	copy(cp, q.toks)
	return &TokenQueue{toks: cp}
}

// SplitOffBack removes and returns the last n tokens as their own queue,
// leaving the first len-n tokens behind — mirrors VecDeque::split_off used
// to protect a function call's trailing ')' while an inner factory consumes
// the middle of the parameter list.
func (q *TokenQueue) SplitOffBack(n int) *TokenQueue {
	if n <= 0 {
		return &TokenQueue{}
	}
	idx := len(q.toks) - n
	if idx < 0 {
		idx = 0
	}
	tail := q.toks[idx:]
	q.toks = q.toks[:idx]
	out := make([]lexer.Token, len(tail))
	copy(out, tail)
	return &TokenQueue{toks: out}
}

// Extend appends another queue's tokens in order.
func (q *TokenQueue) Extend(o *TokenQueue) {
	q.toks = append(q.toks, o.toks...)
}
