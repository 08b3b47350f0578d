package runtime

// The interfaces below are the only contract the core interpreter has with
// its collaborators. Concrete implementations live under internal/collab/*
// and are wired up by cmd/muss; internal/lang and internal/runtime never
// import a concrete backend.

// DatabaseQuerier executes SQL-like queries and streams results back as an
// Op, and accepts late-bound connection parameters (e.g. a DSN) from an
// `sql_init` statement.
type DatabaseQuerier interface {
	Raw(query string) (Op, error)
	InitWithParams(params map[string]Value) error
}

// FilesystemQuerier resolves on-disk sources: a recursive/filtered directory
// walk, a single-file stat/probe, and reading a playlist file's entries.
type FilesystemQuerier interface {
	Raw(root string, depth int, regex string, recursive bool) (Op, error)
	Single(path string, hint string) (Item, error)
	ReadPlaylist(path string) (Op, error)
}

// MusicAnalyzer computes a similarity distance between two items, backing
// the bliss_first/bliss_next sorters.
type MusicAnalyzer interface {
	PrepareDistance(a, b Item) error
	GetDistance(a, b Item) (float64, error)
}

// MpdQuerier speaks to an MPD-compatible daemon, backing the `radio` sorter
// and any `mpd` source/combinator.
type MpdQuerier interface {
	Connect(addr string) error
	Search(params map[string]string) ([]Item, error)
}
