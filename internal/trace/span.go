package trace

import (
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var ids struct {
	seq  atomic.Uint64
	span atomic.Uint64
}

// NextSeq returns the next global sequence number.
func NextSeq() uint64 { return ids.seq.Add(1) }

// NextSpanID returns a fresh span identifier.
func NextSpanID() uint64 { return ids.span.Add(1) }

// goroutineID reads the goroutine number from the first stack line,
// "goroutine N [running]:". Returns 0 when it cannot be parsed.
func goroutineID() uint64 {
	var buf [64]byte
	line := string(buf[:runtime.Stack(buf[:], false)])
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "goroutine" {
		return 0
	}
	gid, _ := strconv.ParseUint(fields[1], 10, 64)
	return gid
}

// Span is an open begin/end pair. A zero-id span is inert.
type Span struct {
	t      Tracer
	id     uint64
	parent uint64
	gid    uint64
	scope  Scope
	name   string
	start  time.Time
	extra  map[string]string
}

var inert = &Span{t: Nop}

// Begin opens a span under parent (0 for a root span).
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return inert
	}
	s := &Span{t: t, id: NextSpanID(), parent: parent, gid: goroutineID(), scope: scope, name: name, start: time.Now()}
	t.Emit(s.event(KindSpanBegin, s.start, ""))
	return s
}

func (s *Span) live() bool { return s != nil && s.id != 0 }

func (s *Span) event(kind Kind, at time.Time, detail string) *Event {
	return &Event{
		Time:     at,
		Kind:     kind,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		GID:      s.gid,
		Name:     s.name,
		Detail:   detail,
	}
}

// End closes the span and returns its duration.
func (s *Span) End(detail string) time.Duration {
	if !s.live() {
		return 0
	}
	now := time.Now()
	ev := s.event(KindSpanEnd, now, detail)
	ev.Extra = s.extra
	s.t.Emit(ev)
	return now.Sub(s.start)
}

// WithExtra records key=value on the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if !s.live() {
		return s
	}
	if s.extra == nil {
		s.extra = map[string]string{}
	}
	s.extra[key] = value
	return s
}

// ID returns the span id, 0 for inert spans.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}
