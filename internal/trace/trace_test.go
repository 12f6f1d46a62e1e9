package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Enabled() {
		t.Fatalf("LevelOff tracer reports enabled")
	}
}

func TestStreamTextSpan(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeStream, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	span := Begin(tr, ScopePass, "verify", 0)
	span.WithExtra("units", "2").End("ok")

	out := buf.String()
	if !strings.Contains(out, "> verify") || !strings.Contains(out, "< verify (ok) {units=2}") {
		t.Fatalf("unexpected text trace:\n%s", out)
	}
}

func TestLevelFiltersScopes(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)
	Begin(tr, ScopeUnit, "main.ks", 0).End("")
	if buf.Len() != 0 {
		t.Fatalf("unit scope should be filtered at phase level: %q", buf.String())
	}
}

func TestNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	Point(tr, ScopeFunc, "fn_add", "lowered")
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid ndjson %q: %v", buf.String(), err)
	}
	if got["kind"] != "point" || got["name"] != "fn_add" || got["scope"] != "func" {
		t.Fatalf("unexpected event %v", got)
	}
}

func TestRingWrapsOldestFirst(t *testing.T) {
	r := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(r, ScopePass, name, "")
	}
	evs := r.Snapshot()
	if len(evs) != 2 || evs[0].Name != "b" || evs[1].Name != "c" {
		t.Fatalf("unexpected snapshot %+v", evs)
	}
	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatText); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 2 {
		t.Fatalf("dump should have two lines:\n%s", buf.String())
	}
}

func TestBothModeExposesRing(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf, RingSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	Point(tr, ScopeDriver, "build", "")
	r, ok := Ring(tr)
	if !ok || len(r.Snapshot()) != 1 || buf.Len() == 0 {
		t.Fatalf("expected event in both ring and stream")
	}
}

func TestStartSpanNests(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	ctx := WithTracer(context.Background(), tr)
	ctx, outer := StartSpan(ctx, ScopeDriver, "build")
	_, inner := StartSpan(ctx, ScopeUnit, "main.ks")
	inner.End("")
	outer.End("")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 events, got %d", len(lines))
	}
	var ev wireEvent
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.ParentID != outer.ID() {
		t.Fatalf("inner parent = %d, want %d", ev.ParentID, outer.ID())
	}
}

func TestParseHelpers(t *testing.T) {
	if l, err := ParseLevel("DETAIL"); err != nil || l != LevelDetail {
		t.Fatalf("ParseLevel = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for bad level")
	}
	if m, err := ParseMode("ring"); err != nil || m != ModeRing {
		t.Fatalf("ParseMode = %v, %v", m, err)
	}
	if f, err := ParseFormat("jsonl"); err != nil || f != FormatNDJSON {
		t.Fatalf("ParseFormat = %v, %v", f, err)
	}
}

func TestHeartbeatStopNil(t *testing.T) {
	var h *Heartbeat
	h.Stop()
	if StartHeartbeat(Nop, 0) != nil {
		t.Fatalf("heartbeat should not start for Nop")
	}
}
