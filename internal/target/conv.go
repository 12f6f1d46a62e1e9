package target

// IOModel selects how the generated program writes to stdout and exits.
type IOModel uint8

const (
	// IOWin32 calls kernel32 WriteFile/ExitProcess through the import table.
	IOWin32 IOModel = iota + 1
	// IOSyscall issues Linux write/exit system calls directly.
	IOSyscall
)

// CallingConvention is the data the generator needs to lower calls for one ABI.
type CallingConvention struct {
	Platform Platform
	// ArgRegs are the integer argument registers in order.
	ArgRegs []string
	// ShadowSpace is reserved by the caller below the stack arguments.
	ShadowSpace int32
	// StackAlign is the required rsp alignment at a call instruction.
	StackAlign int32
	// Entry is the program entry symbol.
	Entry string
	// Externs are the imported symbols declared in the text section.
	Externs []string
	IO      IOModel
}

// Win64 returns the Microsoft x64 convention.
func Win64() *CallingConvention {
	return &CallingConvention{
		Platform:    Windows,
		ArgRegs:     []string{"rcx", "rdx", "r8", "r9"},
		ShadowSpace: 32,
		StackAlign:  16,
		Entry:       "main",
		Externs:     []string{"GetStdHandle", "WriteFile", "ExitProcess"},
		IO:          IOWin32,
	}
}

// SystemV returns the System V AMD64 convention.
func SystemV() *CallingConvention {
	return &CallingConvention{
		Platform:    SysV,
		ArgRegs:     []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"},
		ShadowSpace: 0,
		StackAlign:  16,
		Entry:       "_start",
		IO:          IOSyscall,
	}
}

// RegArgs is the number of integer arguments passed in registers.
func (c *CallingConvention) RegArgs() int { return len(c.ArgRegs) }

// ArgReg returns the register for argument i, or "" when it goes on the stack.
func (c *CallingConvention) ArgReg(i int) string {
	if i < 0 || i >= len(c.ArgRegs) {
		return ""
	}
	return c.ArgRegs[i]
}

// StackArgOffset is the rsp-relative offset, at the call instruction, of
// stack-passed argument i (i >= RegArgs).
func (c *CallingConvention) StackArgOffset(i int) int32 {
	return c.ShadowSpace + int32(8*(i-len(c.ArgRegs)))
}

// ParamOffset is the rbp-relative offset, inside the callee after the
// standard prologue, of stack-passed parameter i.
func (c *CallingConvention) ParamOffset(i int) int32 {
	// saved rbp + return address
	return 16 + c.StackArgOffset(i)
}

// CallArea is the bytes to reserve below rsp for a call with nargs arguments,
// rounded to the stack alignment.
func (c *CallingConvention) CallArea(nargs int) int32 {
	n := c.ShadowSpace
	if extra := nargs - len(c.ArgRegs); extra > 0 {
		n += int32(8 * extra)
	}
	return alignUp(n, c.StackAlign)
}

func alignUp(n, a int32) int32 {
	if a <= 1 {
		return n
	}
	return (n + a - 1) / a * a
}

// AlignFrame rounds a frame size so rsp stays aligned after the prologue.
func (c *CallingConvention) AlignFrame(n int32) int32 {
	return alignUp(n, c.StackAlign)
}
