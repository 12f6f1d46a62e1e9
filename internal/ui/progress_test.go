package ui

import (
	"math"
	"strings"
	"testing"

	"kestrel/internal/driver"
)

func feed(m *Model, evs ...driver.Event) {
	for _, ev := range evs {
		m.Update(eventMsg(ev))
	}
}

func TestModelTracksUnits(t *testing.T) {
	m := NewModel("build", []string{"a.kast", "b.kast", "a.kast"}, nil)
	if len(m.units) != 2 {
		t.Fatalf("duplicates should collapse, got %d rows", len(m.units))
	}
	if m.Fraction() != 0 {
		t.Fatalf("nothing has run yet")
	}

	feed(m,
		driver.Event{File: "a.kast", Stage: driver.StageVerify, Status: driver.StatusWorking},
		driver.Event{File: "b.kast", Stage: driver.StageWrite, Status: driver.StatusDone, Cached: true},
		driver.Event{File: "zzz.kast", Stage: driver.StageLoad, Status: driver.StatusError},
	)
	if got := m.Fraction(); math.Abs(got-0.65) > 1e-9 {
		t.Fatalf("fraction = %v", got)
	}
	view := m.View()
	for _, want := range []string{"verify", "cached", "a.kast", "1/2 units, 0 failed, 1 cached"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view lacks %q:\n%s", want, view)
		}
	}

	feed(m, driver.Event{File: "a.kast", Stage: driver.StageVerify, Status: driver.StatusError})
	feed(m, driver.Event{File: "a.kast", Stage: driver.StageGenerate, Status: driver.StatusWorking})
	if m.units[0].status != driver.StatusError {
		t.Fatalf("finished rows must not change, got %s", m.units[0].status)
	}
	if !strings.Contains(m.View(), "2/2 units, 1 failed") {
		t.Fatalf("summary not updated:\n%s", m.View())
	}
}

func TestModelQuitsWhenEventsClose(t *testing.T) {
	ch := make(chan driver.Event)
	close(ch)
	m := NewModel("check", []string{"a.kast"}, ch)
	msg := m.next()()
	if _, ok := msg.(closedMsg); !ok {
		t.Fatalf("expected closedMsg, got %T", msg)
	}
	_, cmd := m.Update(msg)
	if cmd == nil || !m.done {
		t.Fatalf("model should finish and quit")
	}
	if !strings.Contains(m.View(), "finished check") {
		t.Fatalf("unexpected view:\n%s", m.View())
	}
}

func TestEmptyModel(t *testing.T) {
	m := NewModel("x", nil, nil)
	if m.View() != "" || m.Fraction() != 1 {
		t.Fatalf("empty model should render nothing and count as complete")
	}
}

func TestTruncatePath(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"short.kast", 20, "short.kast"},
		{"src/deep/nested/file.kast", 12, "...file.kast"},
		{"abcdef", 3, "abc"},
		{"dir/日本.kast", 10, "...本.kast"},
		{"anything", 0, "anything"},
	}
	for _, tc := range cases {
		if got := TruncatePath(tc.in, tc.width); got != tc.want {
			t.Fatalf("TruncatePath(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}
