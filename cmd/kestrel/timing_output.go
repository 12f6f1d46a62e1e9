package main

import (
	"encoding/json"
	"fmt"
	"io"

	"kestrel/internal/observ"
)

func printTimings(out io.Writer, timer *observ.Timer, asJSON bool) error {
	if out == nil || timer == nil {
		return nil
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(timer.Report())
	}
	_, err := fmt.Fprint(out, timer.Summary())
	return err
}
