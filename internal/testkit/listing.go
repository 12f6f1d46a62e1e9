// Package testkit holds invariant checks shared by tests across packages.
package testkit

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ListingError points at one offending line of a listing (1-based).
type ListingError struct {
	Line int
	Msg  string
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

var relOperand = regexp.MustCompile(`\[rel ([A-Za-z_.][A-Za-z0-9_.]*)`)

type symRef struct {
	name string
	line int
	what string
}

// CheckListing validates the structure of a NASM listing:
//  1. every label is defined once; local labels (".x") are scoped to the
//     preceding non-local label
//  2. every direct jump or call target is defined or declared extern
//  3. every [rel sym] operand names a defined symbol
//  4. every global symbol is defined
//
// All violations are returned joined.
func CheckListing(asm string) error {
	var (
		errs    []error
		refs    []symRef
		globals []symRef
		scope   string
	)
	defined := make(map[string]int)
	externs := make(map[string]bool)

	for i, raw := range strings.Split(asm, "\n") {
		n := i + 1
		line := stripComment(raw)
		body := strings.TrimSpace(line)
		if body == "" {
			continue
		}
		switch {
		case strings.HasPrefix(body, "section "):
			continue
		case strings.HasPrefix(body, "global "):
			globals = append(globals, symRef{strings.TrimSpace(body[len("global "):]), n, "global"})
			continue
		case strings.HasPrefix(body, "extern "):
			externs[strings.TrimSpace(body[len("extern "):])] = true
			continue
		}

		indented := line[0] == ' ' || line[0] == '\t'
		if !indented {
			head, rest, _ := strings.Cut(body, " ")
			if !strings.HasSuffix(head, ":") {
				errs = append(errs, &ListingError{n, fmt.Sprintf("unindented line is not a label: %q", body)})
				continue
			}
			name := strings.TrimSuffix(head, ":")
			if strings.HasPrefix(name, ".") {
				name = scope + name
			} else {
				scope = name
			}
			if prev, dup := defined[name]; dup {
				errs = append(errs, &ListingError{n, fmt.Sprintf("label %s already defined on line %d", name, prev)})
			}
			defined[name] = n
			body = strings.TrimSpace(rest)
			if body == "" {
				continue
			}
		}

		mnemonic, operands, _ := strings.Cut(body, " ")
		operands = strings.TrimSpace(operands)
		if (mnemonic == "call" || mnemonic == "jmp" || isCondJump(mnemonic)) && !strings.HasPrefix(operands, "[") {
			target := operands
			if strings.HasPrefix(target, ".") {
				target = scope + target
			}
			refs = append(refs, symRef{target, n, mnemonic})
		}
		for _, m := range relOperand.FindAllStringSubmatch(body, -1) {
			refs = append(refs, symRef{m[1], n, "rel"})
		}
	}

	for _, r := range refs {
		if _, ok := defined[r.name]; !ok && !externs[r.name] {
			errs = append(errs, &ListingError{r.line, fmt.Sprintf("%s target %s is not defined", r.what, r.name)})
		}
	}
	for _, g := range globals {
		if _, ok := defined[g.name]; !ok {
			errs = append(errs, &ListingError{g.line, fmt.Sprintf("global %s is not defined", g.name)})
		}
	}
	return errors.Join(errs...)
}

func isCondJump(m string) bool {
	switch m {
	case "je", "jne", "jz", "jnz", "jl", "jle", "jg", "jge", "jb", "jbe", "ja", "jae", "js", "jns", "jp", "jnp":
		return true
	}
	return false
}

// stripComment drops a trailing ';' comment that is outside quotes.
func stripComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == ';':
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
