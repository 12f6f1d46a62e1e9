package borrow

import (
	"sort"

	"kestrel/internal/source"
	"kestrel/internal/types"
)

// State is the ownership state of a binding.
type State uint8

const (
	Owned State = iota
	Borrowed
	MutBorrowed
	Moved
)

func (s State) String() string {
	switch s {
	case Owned:
		return "owned"
	case Borrowed:
		return "borrowed"
	case MutBorrowed:
		return "mut-borrowed"
	case Moved:
		return "moved"
	default:
		return "unknown"
	}
}

type binding struct {
	name       string
	state      State
	mutable    bool
	typ        types.Type
	borrowedBy map[string]struct{}
	decl       source.Span
}

// Binding is a read-only snapshot of an ownership record.
type Binding struct {
	Name       string
	State      State
	Mutable    bool
	Type       types.Type
	BorrowedBy []string
}

func (b *binding) snapshot() Binding {
	out := Binding{Name: b.name, State: b.state, Mutable: b.mutable, Type: b.typ}
	for n := range b.borrowedBy {
		out.BorrowedBy = append(out.BorrowedBy, n)
	}
	sort.Strings(out.BorrowedBy)
	return out
}

func (b *binding) addBorrower(name string) {
	if b.borrowedBy == nil {
		b.borrowedBy = make(map[string]struct{})
	}
	b.borrowedBy[name] = struct{}{}
}

// scopeStack holds nested block scopes above the global binding map.
type scopeStack struct {
	globals map[string]*binding
	frames  []map[string]*binding
}

func (s *scopeStack) push() {
	s.frames = append(s.frames, make(map[string]*binding))
}

func (s *scopeStack) pop() {
	if len(s.frames) > 0 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// declare binds b in the innermost scope, or globally at top level.
func (s *scopeStack) declare(b *binding) {
	if len(s.frames) == 0 {
		s.globals[b.name] = b
		return
	}
	s.frames[len(s.frames)-1][b.name] = b
}

func (s *scopeStack) lookup(name string) *binding {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if b, ok := s.frames[i][name]; ok {
			return b
		}
	}
	return s.globals[name]
}
