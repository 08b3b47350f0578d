// Package errors implements the three-kind error taxonomy of the Muss
// interpreter: Parse (lexer), Syntax (parser) and Runtime (iteration).
// Every error carries a line number; Runtime errors additionally carry a
// textual operator identity captured lazily through a PseudoOp so that
// constructing an error never requires cloning a live operator tree.
package errors

import (
	"fmt"

	"github.com/muss-lang/muss/internal/compiler/lexer"
)

// LanguageError is satisfied by every error kind the interpreter produces;
// it lets the runner stamp in the statement's line number after the fact,
// since lexing/parsing/evaluation happen before the statement's line is
// fully known to the component that first raised the error.
type LanguageError interface {
	error
	SetLine(line int)
}

// SyntaxError reports that the parser expected one token shape and found
// another (or nothing) while building an operator tree.
type SyntaxError struct {
	Line     int
	Expected string
	Got      *lexer.Token
}

func (e *SyntaxError) Error() string {
	if e.Got != nil {
		return fmt.Sprintf("SyntaxError (line %d): expected %s, got %s", e.Line, e.Expected, e.Got)
	}
	return fmt.Sprintf("SyntaxError (line %d): expected %s, got nothing", e.Line, e.Expected)
}

// SetLine implements LanguageError.
func (e *SyntaxError) SetLine(line int) { e.Line = line }

// ParseError is a lexical error (unterminated literal, unbalanced brackets,
// unclassifiable character). It is the same shape the lexer already raises;
// it is re-exported here so callers only need to import one error package.
type ParseError = lexer.ParseError

// RuntimeError is raised while a top-level operator tree is being iterated.
// Op is the lazily-rendered textual identity of the node that raised it,
// produced on demand by a PseudoOp rather than by cloning the node.
type RuntimeError struct {
	Line    int
	Op      string
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s (line %d): %s", e.Message, e.Line, e.Op)
}

// SetLine implements LanguageError.
func (e *RuntimeError) SetLine(line int) { e.Line = line }

// RuntimeMsg is a RuntimeError missing only its operator identity. Item-ops
// and filter/sort predicates (which have no Op identity of their own) build
// one of these and let their enclosing operator node attach identity via
// WithOp when it surfaces the error to its caller.
type RuntimeMsg struct {
	Message string
}

// NewRuntimeMsg is a convenience constructor equivalent to RuntimeMsg{fmt.Sprintf(...)}.
func NewRuntimeMsg(format string, args ...interface{}) RuntimeMsg {
	return RuntimeMsg{Message: fmt.Sprintf(format, args...)}
}

func (m RuntimeMsg) Error() string { return m.Message }

// WithOp attaches an operator identity (already rendered by a PseudoOp) and
// produces a full RuntimeError.
func (m RuntimeMsg) WithOp(opIdentity string) *RuntimeError {
	return &RuntimeError{Op: opIdentity, Message: m.Message}
}
