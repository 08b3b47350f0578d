package lang

// RegisterStandardVocabulary wires every built-in factory into d, in the
// registration order that gives the grammar its precedence: the top-level
// `let` declaration first (so `let a = iter <stmt>` hands its whole
// right-hand side, postfix blocks included, to the declaration), then the
// filter and sort postfix blocks and the item-op block (so they win the
// suffix scan over any inner statement shape), then the named
// function-family factories in the order the interpreter has always used,
// and finally the bare variable-retrieve catch-all dead last.
func RegisterStandardVocabulary(d *Dictionary) {
	d.Add(&LetStatementFactory{})
	d.Add(NewFilterStatementFactory(StandardFilterFactory{}))
	d.Add(NewSortStatementFactory(StandardSorterFactory{}))
	d.Add(&ItemBlockFactory{})
	d.Add(NewFunctionStatementFactory(sqlFactory{}))
	d.Add(NewFunctionStatementFactory(mpdFactory{}))
	d.Add(NewFunctionStatementFactory(simpleSqlFactory{}))
	d.Add(NewFunctionStatementFactory(repeatFactory{}))
	d.Add(&AssignStatementFactory{})
	d.Add(NewFunctionStatementFactory(sqlInitFactory{}))
	d.Add(NewFunctionStatementFactory(filesFactory{}))
	d.Add(NewFunctionStatementFactory(playlistFactory{}))
	d.Add(NewFunctionStatementFactory(emptyFactory{}))
	d.Add(NewFunctionStatementFactory(emptiesFactory{}))
	d.Add(NewFunctionStatementFactory(resetFactory{}))
	d.Add(NewFunctionStatementFactory(unionFactory{}))
	d.Add(NewFunctionStatementFactory(intersectionFactory{}))
	d.Add(&VariableRetrieveFactory{})
}
