// Package audit provides core.AuditSink implementations. Sinks are fire-and-
// forget from the engine's point of view: the orchestrator logs a sink error
// and continues, so none of these implementations need to be durable to keep
// message processing alive.
package audit

import (
	"context"
	"sync"

	"github.com/zapdesk/zapdesk/core"
	"github.com/zapdesk/zapdesk/logging"
)

// LogSink writes every event as one structured log line. It is the default
// sink wired by the engine when no other sink is configured.
type LogSink struct {
	logger logging.Logger
}

// NewLogSink constructs a sink logging through the given logger.
func NewLogSink(logger logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &LogSink{logger: logger}
}

// Record implements core.AuditSink.
func (s *LogSink) Record(_ context.Context, ev core.AuditEvent) error {
	s.logger.Info("audit",
		"tenant_id", ev.TenantID,
		"user_id", ev.UserID,
		"agent_slug", ev.AgentSlug,
		"action", ev.Action,
		"entity_type", ev.EntityType,
		"entity_id", ev.EntityID,
		"timestamp", ev.Timestamp,
	)
	return nil
}

// Recorder buffers events in memory. Intended for tests and local tooling.
type Recorder struct {
	mu     sync.Mutex
	events []core.AuditEvent
}

// NewRecorder constructs an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record implements core.AuditSink.
func (r *Recorder) Record(_ context.Context, ev core.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []core.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.AuditEvent, len(r.events))
	copy(out, r.events)
	return out
}

// ByAction filters recorded events by action name.
func (r *Recorder) ByAction(action string) []core.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.AuditEvent
	for _, ev := range r.events {
		if ev.Action == action {
			out = append(out, ev)
		}
	}
	return out
}

// MultiSink fans one event out to several sinks, collecting nothing: the
// first error is returned but later sinks still run.
type MultiSink []core.AuditSink

// Record implements core.AuditSink.
func (m MultiSink) Record(ctx context.Context, ev core.AuditEvent) error {
	var firstErr error
	for _, s := range m {
		if err := s.Record(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var (
	_ core.AuditSink = (*LogSink)(nil)
	_ core.AuditSink = (*Recorder)(nil)
	_ core.AuditSink = (MultiSink)(nil)
)
