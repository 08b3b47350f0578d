package lang

import (
	"github.com/muss-lang/muss/internal/compiler/errors"
	"github.com/muss-lang/muss/internal/runtime"
)

// Dictionary is the ordered vocabulary of factories tried, in registration
// order, against each statement's tokens. First match wins — order is
// significant, which is why Standard() registers filters and sorters
// before the generic item-op block, and the bare variable-retrieve
// fallback dead last.
type Dictionary struct {
	vocabulary []BoxedOpFactory
}

// NewDictionary returns an empty Dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{}
}

// Add registers a factory and returns the Dictionary for chaining.
func (d *Dictionary) Add(factory BoxedOpFactory) *Dictionary {
	d.vocabulary = append(d.vocabulary, factory)
	return d
}

// TryBuildStatement finds the first factory that claims tokens and asks it
// to build an Op. It is a SyntaxError for no factory to claim the tokens.
func (d *Dictionary) TryBuildStatement(tokens *TokenQueue) (runtime.Op, error) {
	for _, factory := range d.vocabulary {
		if factory.IsOp(tokens) {
			return factory.BuildOp(tokens, d)
		}
	}
	got, ok := tokens.PopFront()
	if !ok {
		return nil, &errors.SyntaxError{Expected: "a statement"}
	}
	return nil, &errors.SyntaxError{Expected: "a recognized statement", Got: &got}
}

// Standard returns a Dictionary pre-loaded with every built-in vocabulary
// entry, in the same registration order the interpreter has always used.
func Standard() *Dictionary {
	d := NewDictionary()
	RegisterStandardVocabulary(d)
	return d
}
