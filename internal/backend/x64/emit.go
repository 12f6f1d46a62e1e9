// Package x64 lowers a verified program to NASM x86-64 assembly.
//
// One walker serves both ABIs; everything platform specific comes from the
// target.CallingConvention the Emitter is built with. Each function (and the
// program entry) gets its own frame, so lowering state never leaks between
// activations.
package x64

import (
	"sort"
	"strings"

	"kestrel/internal/ast"
	"kestrel/internal/target"
)

// Listing is the generated assembly: a data section and a text section.
type Listing struct {
	Data []string
	Text []string
}

// String joins both sections into one NASM source file.
func (l *Listing) String() string {
	var sb strings.Builder
	for _, line := range l.Data {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	for _, line := range l.Text {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Emitter holds module-wide lowering state: constants, known structs and
// the external symbols referenced so far.
type Emitter struct {
	conv *target.CallingConvention

	text []string
	fn   *frame

	consts  *constPool
	structs map[string]*ast.StructStmt
	externs map[string]bool

	needItoa bool
}

// New creates an Emitter for the given calling convention.
func New(conv *target.CallingConvention) *Emitter {
	return &Emitter{
		conv:    conv,
		consts:  newConstPool(),
		structs: make(map[string]*ast.StructStmt),
		externs: make(map[string]bool),
	}
}

// Generate lowers prog for platform p. The program must already have passed
// ownership verification.
func Generate(prog *ast.Program, p target.Platform) (string, error) {
	conv, err := p.Convention()
	if err != nil {
		return "", errorf(codeUnknownTarget, "%v", err)
	}
	l, err := New(conv).Emit(prog)
	if err != nil {
		return "", err
	}
	return l.String(), nil
}

// Emit lowers prog into a Listing. No partial listing is returned on error.
func (e *Emitter) Emit(prog *ast.Program) (*Listing, error) {
	if prog == nil {
		prog = &ast.Program{}
	}
	for _, st := range prog.Stmts {
		if s, ok := st.(*ast.StructStmt); ok {
			e.structs[s.Name] = s
		}
	}

	entry := e.enterFrame(e.conv.Entry, true)
	e.label(e.conv.Entry)
	e.prologue(true)
	e.emitStartup()
	if err := e.emitBlock(prog.Stmts); err != nil {
		return nil, err
	}
	e.label(entry.exitLabel)
	e.drainDrops()
	e.emitExit()
	if err := e.leaveFrame(); err != nil {
		return nil, err
	}
	if e.needItoa {
		e.emitItoa()
	}

	return &Listing{Data: e.dataSection(), Text: append(e.textHeader(), e.text...)}, nil
}

func (e *Emitter) textHeader() []string {
	hdr := []string{"section .text", "global " + e.conv.Entry}
	for _, sym := range e.conv.Externs {
		hdr = append(hdr, "extern "+sym)
	}
	extra := make([]string, 0, len(e.externs))
	for sym := range e.externs {
		extra = append(extra, sym)
	}
	sort.Strings(extra)
	for _, sym := range extra {
		hdr = append(hdr, "extern "+sym)
	}
	return append(hdr, "")
}

func (e *Emitter) emit(ins string) {
	e.text = append(e.text, "    "+ins)
}

func (e *Emitter) label(name string) {
	e.text = append(e.text, name+":")
}

// emitStartup fetches the stdout handle on Windows.
func (e *Emitter) emitStartup() {
	if e.conv.IO != target.IOWin32 {
		return
	}
	e.emit("mov rcx, -11")
	e.callSym("GetStdHandle", 1)
	e.emit("mov [rel " + symStdout + "], rax")
}

// emitExit terminates the process with status 0.
func (e *Emitter) emitExit() {
	switch e.conv.IO {
	case target.IOWin32:
		e.emit("xor ecx, ecx")
		e.callSym("ExitProcess", 1)
	default:
		e.emit("mov rax, 60")
		e.emit("xor edi, edi")
		e.emit("syscall")
	}
}
