// Package version carries build metadata for the kestrel CLI. The variables
// are meant to be overridden with -ldflags at build time.
package version

import (
	"strings"

	"github.com/fatih/color"
)

var (
	// Version is the plain semantic version. It is part of every cache key.
	Version = "0.3.0-dev"

	// GitCommit is the source revision, if known.
	GitCommit = ""

	// GitMessage is the subject of that revision, if known.
	GitMessage = ""

	// BuildDate is an ISO-8601 timestamp, if known.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Styled renders Version with each numeric component colored. Colors are
// dropped when fatih/color is disabled.
func Styled() string {
	core, suffix, hasSuffix := strings.Cut(Version, "-")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return Version
	}
	out := majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2])
	if hasSuffix {
		out += "-" + suffix
	}
	return out
}
