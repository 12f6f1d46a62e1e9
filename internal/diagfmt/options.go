package diagfmt

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	PathModeAsIs PathMode = iota
	PathModeBasename
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	ShowNotes bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	PathMode     PathMode
	Max          int // output cap, independent of the bag limit
	IncludeNotes bool
}
