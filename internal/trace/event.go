package trace

import "time"

// Kind is the type of a trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

// Scope is the granularity of an event. Lower values are coarser.
type Scope uint8

const (
	ScopeDriver Scope = iota + 1 // CLI command
	ScopePass                    // verify, generate, cache
	ScopeUnit                    // one input file
	ScopeFunc                    // one lowered function
)

var (
	kindNames  = [...]string{KindSpanBegin: "begin", KindSpanEnd: "end", KindPoint: "point", KindHeartbeat: "heartbeat"}
	scopeNames = [...]string{ScopeDriver: "driver", ScopePass: "pass", ScopeUnit: "unit", ScopeFunc: "func"}
)

func lookupName(names []string, i int) string {
	if i <= 0 || i >= len(names) {
		return "unknown"
	}
	return names[i]
}

func (k Kind) String() string  { return lookupName(kindNames[:], int(k)) }
func (s Scope) String() string { return lookupName(scopeNames[:], int(s)) }

// Event is a single trace record. Seq is stamped by the receiving tracer.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for roots
	GID      uint64
	Name     string
	Detail   string
	Extra    map[string]string
}

// Point emits an instant event when t accepts scope.
func Point(t Tracer, scope Scope, name, detail string) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	t.Emit(&Event{Time: time.Now(), Kind: KindPoint, Scope: scope, GID: goroutineID(), Name: name, Detail: detail})
}
