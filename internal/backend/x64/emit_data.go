package x64

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"kestrel/internal/target"
)

// Runtime symbols shared by generated code.
const (
	symStdout  = "kx_stdout"
	symWritten = "kx_written"
	symNewline = "kx_newline"
	symItoaBuf = "kx_itoa_buf"
	symItoa    = "kx_itoa"
	itoaBufLen = 32
)

type dataEntry struct {
	label string
	lines []string
}

// constPool deduplicates string and float constants for the data section.
type constPool struct {
	strings map[string]string
	floats  map[uint64]string
	entries []dataEntry
	nstr    int
	nflt    int
}

func newConstPool() *constPool {
	return &constPool{
		strings: make(map[string]string),
		floats:  make(map[uint64]string),
	}
}

// str interns s (NFC-normalized) followed by a newline byte. The label's
// `_len` constant covers the newline.
func (p *constPool) str(s string) string {
	s = norm.NFC.String(s)
	if l, ok := p.strings[s]; ok {
		return l
	}
	l := fmt.Sprintf("msg%d", p.nstr)
	p.nstr++
	p.strings[s] = l
	p.entries = append(p.entries, dataEntry{label: l, lines: []string{
		fmt.Sprintf("%s: db %s", l, nasmBytes(s+"\n")),
		fmt.Sprintf("%s_len: equ $ - %s", l, l),
	}})
	return l
}

func (p *constPool) float(v float64) string {
	bits := math.Float64bits(v)
	if l, ok := p.floats[bits]; ok {
		return l
	}
	l := fmt.Sprintf("float_%d", p.nflt)
	p.nflt++
	p.floats[bits] = l
	p.entries = append(p.entries, dataEntry{label: l, lines: []string{
		fmt.Sprintf("%s: dq 0x%016X ; %s", l, bits, strconv.FormatFloat(v, 'g', -1, 64)),
	}})
	return l
}

// nasmBytes renders s as a NASM db operand list: printable ASCII runs are
// quoted, every other byte is written as a hex literal.
func nasmBytes(s string) string {
	var (
		parts []string
		run   strings.Builder
	)
	flush := func() {
		if run.Len() > 0 {
			parts = append(parts, `"`+run.String()+`"`)
			run.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c < 0x7f && c != '"' {
			run.WriteByte(c)
			continue
		}
		flush()
		parts = append(parts, fmt.Sprintf("0x%X", c))
	}
	flush()
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, ", ")
}

func (e *Emitter) dataSection() []string {
	out := []string{"section .data"}
	for _, en := range e.consts.entries {
		out = append(out, en.lines...)
	}
	out = append(out, symNewline+": db 0xA")
	if e.needItoa {
		out = append(out, fmt.Sprintf("%s: times %d db 0", symItoaBuf, itoaBufLen))
	}
	if e.conv.IO == target.IOWin32 {
		out = append(out,
			symStdout+": dq 0",
			symWritten+": dq 0",
		)
	}
	return out
}
