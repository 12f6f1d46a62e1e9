// Package ast defines the syntax tree handed over by the parser.
//
// Statements and expressions are sealed interfaces: every concrete node is a
// pointer to a struct declared in this package. The tree is treated as
// immutable once built; the verifier and the generator only read it.
package ast

import "kestrel/internal/source"

// Program is the root of one compilation unit.
type Program struct {
	Stmts []Stmt
}

// Node carries the source span shared by all nodes.
type Node struct {
	Pos source.Span
}

// Span returns the node's source range.
func (n Node) Span() source.Span { return n.Pos }
