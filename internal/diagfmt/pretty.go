package diagfmt

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"

	"kestrel/internal/diag"
	"kestrel/internal/source"
)

// Pretty writes one line per diagnostic:
//
//	<path>:<start>-<end>: <severity>[<ID>]: <message>
//
// followed by indented notes. The bag is expected to be sorted.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil {
		return
	}
	sevColor := map[diag.Severity]*color.Color{
		diag.SevError:   color.New(color.FgRed, color.Bold),
		diag.SevWarning: color.New(color.FgYellow, color.Bold),
		diag.SevInfo:    color.New(color.FgCyan),
	}
	pathColor := color.New(color.Bold)
	noteColor := color.New(color.FgBlue)
	for _, c := range sevColor {
		applyColor(c, opts.Color)
	}
	applyColor(pathColor, opts.Color)
	applyColor(noteColor, opts.Color)

	for _, d := range bag.Items() {
		loc := location(fs, d.Primary, opts.PathMode)
		head := sevColor[d.Severity].Sprintf("%s[%s]", d.Severity, d.Code.ID())
		fmt.Fprintf(w, "%s: %s: %s\n", pathColor.Sprint(loc), head, d.Message)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  %s %s: %s\n", noteColor.Sprint("note:"), location(fs, n.Span, opts.PathMode), n.Msg)
		}
	}
}

func applyColor(c *color.Color, enabled bool) {
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
}

func location(fs *source.FileSet, sp source.Span, mode PathMode) string {
	path := "<unit>"
	if fs != nil {
		path = fs.Path(sp.File)
	}
	if mode == PathModeBasename {
		path = filepath.Base(path)
	}
	if sp.Empty() && sp.Start == 0 {
		return path
	}
	return fmt.Sprintf("%s:%d-%d", path, sp.Start, sp.End)
}
