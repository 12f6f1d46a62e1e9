package diag

import "kestrel/internal/source"

// Note points at a secondary location, such as the declaration a violation
// refers to.
type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is one reported problem in a unit.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
}
