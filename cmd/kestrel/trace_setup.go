package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kestrel/internal/trace"
)

// traceSession owns the tracer of one command invocation.
type traceSession struct {
	tracer    trace.Tracer
	heartbeat *trace.Heartbeat
}

// setupTracing reads the trace flags, attaches a tracer to cmd's context and
// returns the session to close when the command ends.
func setupTracing(cmd *cobra.Command) (*traceSession, error) {
	pf := cmd.Root().PersistentFlags()
	output, err := pf.GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := pf.GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	formatStr, err := pf.GetString("trace-format")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-format flag: %w", err)
	}
	modeStr, err := pf.GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := pf.GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	interval, err := pf.GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	// a trace path alone implies phase-level tracing
	if level == trace.LevelOff && output != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return &traceSession{tracer: trace.Nop}, nil
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace format: %w", err)
	}

	t, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: output,
		RingSize:   ringSize,
		Heartbeat:  interval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), t))

	s := &traceSession{tracer: t}
	if interval > 0 {
		s.heartbeat = trace.StartHeartbeat(t, interval)
	}
	return s, nil
}

// close flushes the tracer. When the run failed and events were kept in a
// ring, they are dumped to stderr first.
func (s *traceSession) close(cmd *cobra.Command, failed bool) {
	if s == nil {
		return
	}
	if s.heartbeat != nil {
		s.heartbeat.Stop()
	}
	if ring, ok := trace.Ring(s.tracer); ok && failed {
		fmt.Fprintln(cmd.ErrOrStderr(), "trace: last events before failure")
		if err := ring.Dump(cmd.ErrOrStderr(), trace.FormatText); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
		}
	}
	if err := s.tracer.Flush(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
	}
	if err := s.tracer.Close(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
	}
}
