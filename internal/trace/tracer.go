// Package trace records span and point events for the compile pipeline.
//
// A Tracer travels through the pipeline in a context.Context:
//
//	ctx = trace.WithTracer(ctx, tr)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "verify", 0)
//	defer span.End("")
//
// Stream tracers write each event as it happens; ring tracers keep the most
// recent events in memory so they can be dumped when a build fails.
package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Tracer receives trace events. Implementations must be goroutine-safe.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

// StorageMode selects where events go.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1
	ModeRing
	ModeBoth
)

var modeNames = [...]string{ModeStream: "stream", ModeRing: "ring", ModeBoth: "both"}

func (m StorageMode) String() string { return lookupName(modeNames[:], int(m)) }

// ParseMode parses stream|ring|both.
func ParseMode(s string) (StorageMode, error) {
	for m, name := range modeNames {
		if name != "" && strings.EqualFold(s, name) {
			return StorageMode(m), nil
		}
	}
	return ModeStream, fmt.Errorf("invalid trace mode %q (expected stream|ring|both)", s)
}

// Config describes a tracer.
type Config struct {
	Level      Level
	Mode       StorageMode
	Format     Format
	Output     io.Writer // takes precedence over OutputPath
	OutputPath string    // "-" or empty means stderr
	RingSize   int
	Heartbeat  time.Duration
}

const defaultRingSize = 4096

// New builds the tracer described by cfg. LevelOff always yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	size := cfg.RingSize
	if size <= 0 {
		size = defaultRingSize
	}
	format := cfg.Format
	if format == FormatAuto {
		format = formatFor(cfg.OutputPath)
	}
	stream := func() (Tracer, error) {
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		return NewStreamTracer(w, cfg.Level, format), nil
	}

	switch cfg.Mode {
	case 0, ModeStream:
		return stream()
	case ModeRing:
		return NewRingTracer(size, cfg.Level), nil
	case ModeBoth:
		st, err := stream()
		if err != nil {
			return nil, err
		}
		return NewMultiTracer(cfg.Level, st, NewRingTracer(size, cfg.Level)), nil
	}
	return nil, fmt.Errorf("unknown trace mode: %v", cfg.Mode)
}

func openOutput(cfg Config) (io.Writer, error) {
	switch {
	case cfg.Output != nil:
		return cfg.Output, nil
	case cfg.OutputPath == "", cfg.OutputPath == "-":
		return os.Stderr, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("open trace output: %w", err)
	}
	return f, nil
}

// Ring finds the in-memory ring behind t, if any.
func Ring(t Tracer) (*RingTracer, bool) {
	if r, ok := t.(*RingTracer); ok {
		return r, true
	}
	if m, ok := t.(*MultiTracer); ok {
		for _, inner := range m.tracers {
			if r, ok := Ring(inner); ok {
				return r, true
			}
		}
	}
	return nil, false
}
