package x64

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"kestrel/internal/types"
)

// maxFrame bounds a single activation's stack usage.
const maxFrame = 1 << 24

type valueKind uint8

const (
	kindUnknown valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindString
	kindStruct
	kindTagged
	kindArray
	kindRef
)

type slot struct {
	off        int32 // value lives at [rbp - off]
	kind       valueKind
	structName string
}

type loopLabels struct {
	cont, brk string
}

// drop is a pending destructor call for a struct-typed binding.
type drop struct {
	name, structName string
	off              int32
}

// frame is the lowering state of one function activation.
type frame struct {
	name      string
	entry     bool
	slots     map[string]*slot
	size      int32
	sizeLine  int // index of the `sub rsp, N` placeholder in Emitter.text
	depth     int // outstanding 8-byte pushes
	labels    int
	loops     []loopLabels
	drops     []drop
	exitLabel string
	parent    *frame
}

func (e *Emitter) enterFrame(name string, entry bool) *frame {
	f := &frame{
		name:      name,
		entry:     entry,
		slots:     make(map[string]*slot),
		exitLabel: name + "_exit",
		parent:    e.fn,
	}
	e.fn = f
	return f
}

// leaveFrame patches the frame size and drop-slot zeroing into the prologue
// and restores the enclosing activation. Nested frames always start after
// their parent's prologue, so the insertion never shifts a pending sizeLine.
func (e *Emitter) leaveFrame() error {
	f := e.fn
	if f.depth != 0 {
		return errorf(codeInternal, "unbalanced stack in %s: %d pushes outstanding", f.name, f.depth)
	}
	size := e.conv.AlignFrame(f.size)
	e.text[f.sizeLine] = fmt.Sprintf("    sub rsp, %d", size)
	e.text = slices.Insert(e.text, f.sizeLine+1, dropSlotInit(f)...)
	e.fn = f.parent
	return nil
}

func (e *Emitter) prologue(entry bool) {
	e.emit("push rbp")
	e.emit("mov rbp, rsp")
	if entry {
		e.emit("and rsp, -16")
	}
	e.fn.sizeLine = len(e.text)
	e.emit("sub rsp, 0")
}

func (f *frame) newLabel(prefix string) string {
	l := fmt.Sprintf("%s_%s_%d", f.name, prefix, f.labels)
	f.labels++
	return l
}

// alloc reserves n bytes and returns the offset of their lowest address.
func (f *frame) alloc(n int32) (int32, error) {
	next := int64(f.size) + int64(n)
	if next > maxFrame {
		return 0, errorf(codeFrameOverflow, "stack frame of %s exceeds %d bytes", f.name, maxFrame)
	}
	size, err := safecast.Conv[int32](next)
	if err != nil {
		return 0, errorf(codeFrameOverflow, "stack frame of %s: %v", f.name, err)
	}
	f.size = size
	return size, nil
}

// allocType reserves a word-rounded block big enough for t.
func (f *frame) allocType(t types.Type) (int32, error) {
	n, err := t.SlotSize()
	if err != nil {
		return 0, errorf(codeFrameOverflow, "%v", err)
	}
	return f.alloc(n)
}

// allocWords reserves n consecutive 8-byte words.
func (f *frame) allocWords(n int) (int32, error) {
	words := make([]types.Type, max(n, 1))
	for i := range words {
		words[i] = types.Int64()
	}
	return f.allocType(types.Tuple(words...))
}

func (f *frame) temp() (int32, error) {
	return f.allocType(types.Int64())
}

// bind returns the slot for name, allocating one on first sight.
func (f *frame) bind(name string, kind valueKind, structName string) (*slot, error) {
	if s, ok := f.slots[name]; ok {
		if kind != kindUnknown {
			s.kind, s.structName = kind, structName
		}
		return s, nil
	}
	off, err := f.temp()
	if err != nil {
		return nil, err
	}
	s := &slot{off: off, kind: kind, structName: structName}
	f.slots[name] = s
	return s, nil
}

func (f *frame) lookup(name string) (*slot, error) {
	if s, ok := f.slots[name]; ok {
		return s, nil
	}
	return nil, errorf(codeUndefinedSlot, "variable '%s' is not defined in the current stack frame of %s", name, f.name)
}

// mem addresses the word at byte disp within the block based at off.
func mem(off, disp int32) string {
	return fmt.Sprintf("[rbp - %d]", off-disp)
}

func (e *Emitter) push(reg string) {
	e.emit("push " + reg)
	e.fn.depth++
}

func (e *Emitter) pop(reg string) {
	e.emit("pop " + reg)
	e.fn.depth--
}

func (f *frame) pushLoop(cont, brk string) {
	f.loops = append(f.loops, loopLabels{cont: cont, brk: brk})
}

func (f *frame) popLoop() {
	f.loops = f.loops[:len(f.loops)-1]
}

func (f *frame) loop() (loopLabels, bool) {
	if len(f.loops) == 0 {
		return loopLabels{}, false
	}
	return f.loops[len(f.loops)-1], true
}
