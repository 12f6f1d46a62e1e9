package source

import "strconv"

// Span is a half-open byte range [Start, End) inside one unit. Spans
// decoded from kast documents keep the offsets of the external parser.
type Span struct {
	File  FileID
	Start uint32
	End   uint32
}

func (s Span) Empty() bool { return s.End <= s.Start }

func (s Span) Len() uint32 {
	if s.Empty() {
		return 0
	}
	return s.End - s.Start
}

// String renders file:start-end.
func (s Span) String() string {
	return strconv.FormatUint(uint64(s.File), 10) + ":" +
		strconv.FormatUint(uint64(s.Start), 10) + "-" +
		strconv.FormatUint(uint64(s.End), 10)
}

// Contains reports whether other lies within s in the same file.
func (s Span) Contains(other Span) bool {
	return s.File == other.File && s.Start <= other.Start && other.End <= s.End
}

// Cover widens s to include other. Spans of another file leave s as is.
func (s Span) Cover(other Span) Span {
	switch {
	case s.File != other.File:
		return s
	case s.Empty():
		return other
	}
	s.Start = min(s.Start, other.Start)
	s.End = max(s.End, other.End)
	return s
}
