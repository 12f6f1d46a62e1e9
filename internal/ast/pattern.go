package ast

// PatternKind enumerates the shapes a match arm can test.
type PatternKind uint8

const (
	PatWildcard PatternKind = iota
	PatSome
	PatNone
	PatOk
	PatErr
	PatIdent
	PatInt
	PatString
)

func (k PatternKind) String() string {
	switch k {
	case PatSome:
		return "Some"
	case PatNone:
		return "None"
	case PatOk:
		return "Ok"
	case PatErr:
		return "Err"
	case PatIdent:
		return "ident"
	case PatInt:
		return "int"
	case PatString:
		return "string"
	default:
		return "_"
	}
}

// Pattern is a match arm pattern. Bind names the payload for Some/Ok/Err and
// the whole scrutinee for PatIdent; it is empty when nothing is bound.
type Pattern struct {
	Kind PatternKind
	Bind string
	Int  int64
	Str  string
}

// IsTag reports whether the pattern dispatches on a tagged-union discriminant.
func (p Pattern) IsTag() bool {
	switch p.Kind {
	case PatSome, PatNone, PatOk, PatErr:
		return true
	}
	return false
}
