package x64

import "fmt"

// scheduleDrop queues a destructor call for the struct record whose address
// is in rax. The address is saved in its own slot so rebinding the name does
// not lose the earlier instance.
func (e *Emitter) scheduleDrop(name, structName string) error {
	s := e.structs[structName]
	if s == nil || s.Destroy == nil {
		return nil
	}
	off, err := e.fn.temp()
	if err != nil {
		return err
	}
	e.emit(fmt.Sprintf("mov %s, rax", mem(off, 0)))
	e.fn.drops = append(e.fn.drops, drop{name: name, structName: structName, off: off})
	return nil
}

// drainDrops emits the queued destructor calls, last declared first. A slot
// still holding zero was never constructed on the path taken and is skipped.
func (e *Emitter) drainDrops() {
	for i := len(e.fn.drops) - 1; i >= 0; i-- {
		d := e.fn.drops[i]
		skip := e.fn.newLabel("nodrop")
		e.emit(fmt.Sprintf("cmp qword %s, 0", mem(d.off, 0)))
		e.emit("je " + skip)
		e.emit(fmt.Sprintf("mov %s, %s", e.conv.ArgReg(0), mem(d.off, 0)))
		e.callSym(methodLabel(d.structName, "destroy"), 1)
		e.label(skip)
	}
}

// dropSlotInit zeroes every drop slot of f; it runs right after the frame
// is reserved.
func dropSlotInit(f *frame) []string {
	out := make([]string, 0, len(f.drops))
	for _, d := range f.drops {
		out = append(out, fmt.Sprintf("    mov qword %s, 0", mem(d.off, 0)))
	}
	return out
}
