package runtime

import "github.com/muss-lang/muss/internal/compiler/errors"

// IterResult is one value an Op yields: either an Item, or a RuntimeError
// surfaced mid-stream without ending iteration (mirrors the original
// Iterator<Item = Result<Item, RuntimeError>> contract — a single failed
// item does not by itself stop the upstream from producing more).
type IterResult struct {
	Item Item
	Err  *errors.RuntimeError
}

// ItemResult wraps a successfully produced item.
func ItemResult(it Item) IterResult { return IterResult{Item: it} }

// ErrResult wraps a runtime error yielded mid-stream.
func ErrResult(err *errors.RuntimeError) IterResult { return IterResult{Err: err} }

// IsErr reports whether this result is an error rather than an item.
func (r IterResult) IsErr() bool { return r.Err != nil }

// Op is an operator-tree node: simultaneously a lazy iterator of items and
// the holder of exactly one Context at a time. Every Op obeys the lifecycle:
//
//	Fresh --Enter(ctx)--> Running --Escape()--> Fresh (context released)
//	Running --Next() exhausted--> Exhausted --Escape()--> Fresh
//	Running/Exhausted --Reset()--> Running (only if IsResettable)
//	Fresh --Dup()--> Fresh (a brand new, context-less copy)
//
// Dup is only meaningful on a Fresh node; calling it on a Running node is a
// caller bug (mirrors the documented Rust contract — this interface cannot
// enforce it statically, so implementations should panic or no-op rather
// than silently hand back a half-consumed duplicate).
type Op interface {
	// String renders a diagnostic identity for this node, used by PseudoOp
	// to name the operator that raised a RuntimeError.
	String() string

	// Next advances the iterator by one step. ok=false means the stream is
	// exhausted (no item, no error, nothing more will ever come).
	Next() (IterResult, bool)

	// Enter gives this node ownership of ctx, transitioning Fresh->Running.
	Enter(ctx *Context)

	// Escape releases ownership of the Context this node was holding,
	// transitioning (Running|Exhausted)->Fresh. Must not be called on a
	// node that never received Enter.
	Escape() *Context

	// IsResettable reports whether Reset is supported by this node.
	IsResettable() bool

	// Reset rewinds a Running or Exhausted node back to its first item,
	// without releasing the Context. Returns an error if !IsResettable().
	Reset() error

	// Dup returns a brand new, Fresh, context-less copy of this node's
	// configuration (not its iteration position).
	Dup() Op
}
