package borrow

import (
	"fmt"

	"kestrel/internal/diag"
	"kestrel/internal/source"
)

// Kind classifies an ownership violation.
type Kind uint8

const (
	KindUndefined Kind = iota + 1
	KindUseAfterMove
	KindAssignImmutable
	KindBorrowImmutable
	KindUnknownField
	KindAssignMoved
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindUseAfterMove:
		return "use-after-move"
	case KindAssignImmutable:
		return "assign-immutable"
	case KindBorrowImmutable:
		return "borrow-immutable"
	case KindUnknownField:
		return "unknown-field"
	case KindAssignMoved:
		return "assign-moved"
	default:
		return "unknown"
	}
}

// Code maps the kind to its diagnostic code.
func (k Kind) Code() diag.Code {
	switch k {
	case KindUndefined:
		return diag.SemaUndefined
	case KindUseAfterMove:
		return diag.SemaUseAfterMove
	case KindAssignImmutable:
		return diag.SemaAssignImmutable
	case KindBorrowImmutable:
		return diag.SemaBorrowImmutable
	case KindUnknownField:
		return diag.SemaUnknownField
	case KindAssignMoved:
		return diag.SemaAssignMoved
	default:
		return diag.UnknownCode
	}
}

// Violation is the first ownership error found in a program.
type Violation struct {
	Kind    Kind
	Name    string
	Message string
	Span    source.Span
	// Decl points at the offending binding's declaration when known.
	Decl source.Span
}

func (v *Violation) Error() string { return v.Message }

// Report forwards the violation to r as an error diagnostic.
func (v *Violation) Report(r diag.Reporter) {
	b := diag.ReportError(r, v.Kind.Code(), v.Span, v.Message)
	if !v.Decl.Empty() {
		b.WithNote(v.Decl, fmt.Sprintf("'%s' declared here", v.Name))
	}
	b.Emit()
}

func undefined(name string, sp source.Span) *Violation {
	return &Violation{
		Kind:    KindUndefined,
		Name:    name,
		Span:    sp,
		Message: fmt.Sprintf("variable '%s' is not defined", name),
	}
}

func useAfterMove(b *binding, sp source.Span) *Violation {
	return &Violation{
		Kind:    KindUseAfterMove,
		Name:    b.name,
		Span:    sp,
		Decl:    b.decl,
		Message: fmt.Sprintf("variable '%s' was moved and is no longer valid", b.name),
	}
}

func assignImmutable(b *binding, sp source.Span) *Violation {
	return &Violation{
		Kind:    KindAssignImmutable,
		Name:    b.name,
		Span:    sp,
		Decl:    b.decl,
		Message: fmt.Sprintf("variable '%s' is immutable and cannot be modified; declare it with 'let mut %s'", b.name, b.name),
	}
}

func borrowImmutable(b *binding, sp source.Span) *Violation {
	return &Violation{
		Kind:    KindBorrowImmutable,
		Name:    b.name,
		Span:    sp,
		Decl:    b.decl,
		Message: fmt.Sprintf("cannot take a mutable reference (&mut) of '%s' because it is immutable; declare it with 'let mut %s'", b.name, b.name),
	}
}

func assignMoved(b *binding, sp source.Span) *Violation {
	return &Violation{
		Kind:    KindAssignMoved,
		Name:    b.name,
		Span:    sp,
		Decl:    b.decl,
		Message: fmt.Sprintf("variable '%s' was moved and cannot be assigned", b.name),
	}
}

func unknownField(field, structName string, sp source.Span) *Violation {
	return &Violation{
		Kind:    KindUnknownField,
		Name:    field,
		Span:    sp,
		Message: fmt.Sprintf("field '%s' does not exist on struct '%s'", field, structName),
	}
}
