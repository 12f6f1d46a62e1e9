package driver

import (
	"sync"
	"time"
)

// Stage is a step of the per-unit pipeline.
type Stage string

const (
	StageLoad     Stage = "load"
	StageVerify   Stage = "verify"
	StageGenerate Stage = "generate"
	StageWrite    Stage = "write"
)

// Status is the state of a unit within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for one unit.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Cached  bool
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Sinks are called from worker
// goroutines and must be safe for concurrent use.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(ev Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- ev
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(ev Event) { f(ev) }

// Recorder keeps every event it sees.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) OnEvent(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func notify(s ProgressSink, ev Event) {
	if s != nil {
		s.OnEvent(ev)
	}
}
