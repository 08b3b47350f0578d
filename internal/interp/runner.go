// Package interp implements the Runner: the tokenize -> parse -> iterate
// loop that drives a Muss script one top-level statement at a time,
// threading a single Context across the whole run.
package interp

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muss-lang/muss/internal/compiler/errors"
	"github.com/muss-lang/muss/internal/compiler/lexer"
	"github.com/muss-lang/muss/internal/lang"
	"github.com/muss-lang/muss/internal/runtime"
)

// Runner reads one statement worth of tokens, builds its top-level
// operator, hands the Context to it via Enter, pumps Next until
// exhaustion, takes the Context back via Escape, and proceeds to the next
// statement. Parse/Syntax errors abort the run; Runtime errors are
// recorded as warnings and iteration continues with the statement's next
// item (the rest of the script still runs).
type Runner struct {
	dict   *lang.Dictionary
	logger *zap.Logger
	RunID  uuid.UUID
}

// NewRunner returns a Runner over the standard vocabulary. A nil logger
// falls back to zap.NewNop() so components can run without logging
// configured.
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{dict: lang.Standard(), logger: logger, RunID: uuid.New()}
}

// Result accumulates everything a script run produced: the items yielded
// by every statement's operator tree, in statement order, and any runtime
// errors surfaced along the way (which don't themselves abort the run).
type Result struct {
	Items    []runtime.Item
	Warnings []*errors.RuntimeError
}

// stampLine attaches a line number to any LanguageError the interpreter's
// layers return without one already set (everything below the runner
// builds errors without knowing which line its statement started on).
func stampLine(err error, line int) error {
	if le, ok := err.(errors.LanguageError); ok {
		le.SetLine(line)
	}
	return err
}

// Run tokenizes source into statements and executes each in order against
// ctx, which must already be wired with whatever collaborators the script
// needs (database, filesystem, analysis, mpd).
func (r *Runner) Run(source string, ctx *runtime.Context) (*Result, error) {
	lx := lexer.New(source)
	result := &Result{}
	stmtNum := 0

	for !lx.AtEnd() {
		toks, err := lx.ReadStatement(nil)
		if err != nil {
			r.logger.Error("lex failed", zap.Int("statement", stmtNum+1), zap.Error(err))
			return result, err
		}
		if len(toks) == 0 {
			continue
		}
		stmtNum++
		line := toks[0].Line

		q := lang.NewTokenQueue(toks)
		op, err := r.dict.TryBuildStatement(q)
		if err != nil {
			err = stampLine(err, line)
			r.logger.Error("parse failed", zap.Int("statement", stmtNum), zap.Error(err))
			return result, err
		}

		r.logger.Debug("executing statement",
			zap.String("run_id", r.RunID.String()),
			zap.Int("statement", stmtNum),
			zap.String("op", op.String()))

		op.Enter(ctx)
		for {
			res, ok := op.Next()
			if !ok {
				break
			}
			if res.IsErr() {
				res.Err.SetLine(line)
				result.Warnings = append(result.Warnings, res.Err)
				r.logger.Warn("runtime error",
					zap.Int("statement", stmtNum),
					zap.Error(res.Err))
				continue
			}
			result.Items = append(result.Items, res.Item)
		}
		op.Escape()
	}

	return result, nil
}
