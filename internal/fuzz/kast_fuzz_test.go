package fuzztests

import (
	"bytes"
	"testing"

	"kestrel/internal/astio"
	"kestrel/internal/backend/x64"
	"kestrel/internal/borrow"
	"kestrel/internal/source"
	"kestrel/internal/target"
)

func formatOf(isJSON bool) astio.Format {
	if isJSON {
		return astio.FormatJSON
	}
	return astio.FormatMsgpack
}

// FuzzDecodeRoundTrip checks that any accepted document re-encodes to a
// fixed point.
func FuzzDecodeRoundTrip(f *testing.F) {
	addSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte, isJSON bool) {
		format := formatOf(isJSON)
		prog, err := astio.Unmarshal(clamp(input), format, source.FileID(0))
		if err != nil {
			return
		}
		first, err := astio.Marshal(prog, format)
		if err != nil {
			// JSON cannot carry every float a msgpack document can
			return
		}
		again, err := astio.Unmarshal(first, format, source.FileID(0))
		if err != nil {
			t.Fatalf("canonical encoding does not decode: %v", err)
		}
		second, err := astio.Marshal(again, format)
		if err != nil {
			t.Fatalf("re-encode: %v", err)
		}
		if !bytes.Equal(first, second) {
			t.Fatalf("encoding is not a fixed point")
		}
	})
}

// FuzzPipeline runs decoded documents through verification and both
// backends; neither stage may panic.
func FuzzPipeline(f *testing.F) {
	addSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte, isJSON bool) {
		prog, err := astio.Unmarshal(clamp(input), formatOf(isJSON), source.FileID(0))
		if err != nil {
			return
		}
		if err := borrow.Check(prog); err != nil {
			if _, ok := borrow.AsViolation(err); !ok {
				t.Fatalf("verifier returned a non-violation error: %v", err)
			}
			return
		}
		for _, p := range []target.Platform{target.Windows, target.SysV} {
			_, _ = x64.Generate(prog, p)
		}
	})
}
