package runtime

import "github.com/muss-lang/muss/internal/compiler/errors"

// PseudoOp is a diagnostic-identity wrapper around an Op: either a live
// reference to a Real node, or a Fake rendered string. It exists so that
// reporting a RuntimeError never requires deep-cloning a potentially large
// operator tree just to remember "which node raised this" — Clone degrades
// a Real PseudoOp to its Fake string form instead of copying the node.
type PseudoOp struct {
	real Op
	fake string
}

// RealOp wraps a live Op by reference.
func RealOp(op Op) PseudoOp { return PseudoOp{real: op} }

// FakeOp wraps an already-rendered identity string.
func FakeOp(s string) PseudoOp { return PseudoOp{fake: s} }

// IsReal reports whether this PseudoOp still holds a live Op reference.
func (p PseudoOp) IsReal() bool { return p.real != nil }

// String renders the operator's diagnostic identity, going through the live
// Op's String() if still Real, else returning the stored Fake text.
func (p PseudoOp) String() string {
	if p.real != nil {
		return p.real.String()
	}
	return p.fake
}

// Clone degrades a Real PseudoOp into a Fake one carrying the same rendered
// text — the point being that cloning never walks/copies the operator tree.
func (p PseudoOp) Clone() PseudoOp {
	return PseudoOp{fake: p.String()}
}

// AsRuntimeMsg attaches this PseudoOp's identity to a RuntimeMsg, producing
// a complete RuntimeError ready to return to a caller.
func (p PseudoOp) AsRuntimeMsg(m errors.RuntimeMsg) *errors.RuntimeError {
	return m.WithOp(p.String())
}
