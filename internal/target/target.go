// Package target describes the two supported x86-64 ABIs.
package target

import (
	"fmt"
	"strings"
)

// Platform selects the operating system ABI. It is chosen once per run.
type Platform uint8

const (
	Windows Platform = iota + 1
	SysV
)

func (p Platform) String() string {
	switch p {
	case Windows:
		return "windows"
	case SysV:
		return "sysv"
	default:
		return "unknown"
	}
}

// ParsePlatform accepts the names printed by Platform.String plus common aliases.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "windows", "win64", "win":
		return Windows, nil
	case "sysv", "linux", "systemv", "unix":
		return SysV, nil
	default:
		return 0, fmt.Errorf("unknown target %q (expected windows|sysv)", s)
	}
}

// Triple returns a descriptive target triple for headers and cache keys.
func (p Platform) Triple() string {
	switch p {
	case Windows:
		return "x86_64-pc-windows-msvc"
	case SysV:
		return "x86_64-linux-gnu"
	default:
		return "x86_64-unknown"
	}
}

// Convention returns the calling convention for p.
func (p Platform) Convention() (*CallingConvention, error) {
	switch p {
	case Windows:
		return Win64(), nil
	case SysV:
		return SystemV(), nil
	default:
		return nil, fmt.Errorf("no calling convention for platform %d", p)
	}
}
