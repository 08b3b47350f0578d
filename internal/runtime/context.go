package runtime

import "fmt"

// Context is the single piece of mutable state an operator tree threads
// through iteration: its variable bank plus handles to every collaborator.
// Exactly one live Op holds a Context at a time — it moves on Enter/Escape,
// never copies implicitly (see Op for the full lifecycle contract).
type Context struct {
	Variables  VariableStore
	Database   DatabaseQuerier
	Filesystem FilesystemQuerier
	Analysis   MusicAnalyzer // optional; nil when no analyzer is configured
	Mpd        MpdQuerier    // optional; nil when no MPD daemon is configured
}

// NewContext builds a Context with a fresh MapVariableStore and the given
// required collaborators. Analysis and Mpd may be nil.
func NewContext(db DatabaseQuerier, fs FilesystemQuerier, analysis MusicAnalyzer, mpd MpdQuerier) *Context {
	return &Context{
		Variables:  NewMapVariableStore(),
		Database:   db,
		Filesystem: fs,
		Analysis:   analysis,
		Mpd:        mpd,
	}
}

func (c *Context) String() string {
	if c == nil {
		return "<nil Context>"
	}
	return fmt.Sprintf("Context{analysis=%v, mpd=%v}", c.Analysis != nil, c.Mpd != nil)
}
