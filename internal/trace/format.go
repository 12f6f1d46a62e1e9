package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"time"
)

// Format is the on-wire shape of trace output.
type Format uint8

const (
	FormatAuto Format = iota // pick from the output path
	FormatText
	FormatNDJSON
)

// ParseFormat parses auto|text|ndjson. jsonl is accepted as ndjson.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson", "jsonl":
		return FormatNDJSON, nil
	}
	return FormatAuto, fmt.Errorf("invalid trace format %q (expected auto|text|ndjson)", s)
}

// formatFor picks the format implied by an output path.
func formatFor(path string) Format {
	switch {
	case strings.HasSuffix(path, ".ndjson"), strings.HasSuffix(path, ".jsonl"):
		return FormatNDJSON
	default:
		return FormatText
	}
}

// FormatEvent renders ev as one line. Text timestamps are relative to epoch.
func FormatEvent(ev *Event, format Format, epoch time.Time) []byte {
	return formatEvent(ev, format, epoch)
}

func formatEvent(ev *Event, format Format, epoch time.Time) []byte {
	if format == FormatNDJSON {
		return encodeNDJSON(ev)
	}
	return encodeText(ev, epoch)
}

type wireEvent struct {
	Time     string            `json:"time"`
	Seq      uint64            `json:"seq"`
	Kind     string            `json:"kind"`
	Scope    string            `json:"scope"`
	SpanID   uint64            `json:"span_id,omitempty"`
	ParentID uint64            `json:"parent_id,omitempty"`
	GID      uint64            `json:"gid,omitempty"`
	Name     string            `json:"name"`
	Detail   string            `json:"detail,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

func encodeNDJSON(ev *Event) []byte {
	w := wireEvent{
		Time:     ev.Time.Format(time.RFC3339Nano),
		Seq:      ev.Seq,
		Kind:     ev.Kind.String(),
		Scope:    ev.Scope.String(),
		SpanID:   ev.SpanID,
		ParentID: ev.ParentID,
		GID:      ev.GID,
		Name:     ev.Name,
		Detail:   ev.Detail,
		Extra:    ev.Extra,
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil
	}
	return append(data, '\n')
}

var kindMarks = [...]string{KindSpanBegin: ">", KindSpanEnd: "<", KindPoint: "*", KindHeartbeat: "~"}

// encodeText renders "+   12.345ms   > name (detail) {k=v}". Child events
// are indented one step.
func encodeText(ev *Event, epoch time.Time) []byte {
	var elapsed time.Duration
	if !epoch.IsZero() {
		elapsed = max(ev.Time.Sub(epoch), 0)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "+%10.3fms ", float64(elapsed.Microseconds())/1000)
	if ev.ParentID != 0 {
		b.WriteString("  ")
	}
	if int(ev.Kind) < len(kindMarks) && kindMarks[ev.Kind] != "" {
		b.WriteString(kindMarks[ev.Kind] + " ")
	}
	b.WriteString(ev.Name)
	if ev.Detail != "" {
		b.WriteString(" (" + ev.Detail + ")")
	}
	if len(ev.Extra) > 0 {
		pairs := make([]string, 0, len(ev.Extra))
		for _, k := range slices.Sorted(maps.Keys(ev.Extra)) {
			pairs = append(pairs, k+"="+ev.Extra[k])
		}
		b.WriteString(" {" + strings.Join(pairs, ", ") + "}")
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// stdio streams are never closed or synced by tracers.
func isStdStream(w io.Writer) bool {
	return w == os.Stdout || w == os.Stderr
}
