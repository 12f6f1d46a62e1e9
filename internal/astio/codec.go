package astio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"kestrel/internal/ast"
	"kestrel/internal/source"
)

// Format is a kast encoding.
type Format uint8

const (
	FormatMsgpack Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "msgpack"
}

// Extensions recognized as kast input.
const (
	ExtBinary = ".kast"
	ExtJSON   = ".kast.json"
)

// FormatForPath picks the encoding from a file name.
func FormatForPath(path string) Format {
	if strings.HasSuffix(path, ".json") {
		return FormatJSON
	}
	return FormatMsgpack
}

// IsSource reports whether path names a kast document.
func IsSource(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, ExtBinary) || strings.HasSuffix(base, ExtJSON)
}

// Encode writes prog to w. Spans keep their offsets but not their file.
func Encode(w io.Writer, prog *ast.Program, f Format) error {
	wf, err := toWire(prog)
	if err != nil {
		return err
	}
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(wf)
	default:
		return msgpack.NewEncoder(w).Encode(wf)
	}
}

// Marshal is Encode into a byte slice.
func Marshal(prog *ast.Program, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, prog, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a program from r. Decoded spans are attributed to file.
func Decode(r io.Reader, f Format, file source.FileID) (*ast.Program, error) {
	var wf wireFile
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&wf); err != nil {
			return nil, fmt.Errorf("astio: decode json: %w", err)
		}
	default:
		if err := msgpack.NewDecoder(r).Decode(&wf); err != nil {
			return nil, fmt.Errorf("astio: decode msgpack: %w", err)
		}
	}
	d := decoder{file: file}
	return d.program(&wf)
}

// Unmarshal is Decode from a byte slice.
func Unmarshal(data []byte, f Format, file source.FileID) (*ast.Program, error) {
	return Decode(bytes.NewReader(data), f, file)
}
