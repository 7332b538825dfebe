package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapdesk/zapdesk/core"
)

func sampleEvent(action string) core.AuditEvent {
	return core.AuditEvent{
		TenantID:   "t1",
		UserID:     "u1",
		Action:     action,
		EntityType: "conversation",
		EntityID:   "c1",
		Timestamp:  time.Now(),
	}
}

func TestRecorderCollectsEvents(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, sampleEvent(core.AuditConversationOpened)))
	require.NoError(t, r.Record(ctx, sampleEvent(core.AuditMessageProcessed)))
	require.NoError(t, r.Record(ctx, sampleEvent(core.AuditMessageProcessed)))

	assert.Len(t, r.Events(), 3)
	assert.Len(t, r.ByAction(core.AuditMessageProcessed), 2)
	assert.Empty(t, r.ByAction(core.AuditDeclined))
}

func TestRecorderEventsDetached(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.Record(context.Background(), sampleEvent(core.AuditDeclined)))

	evs := r.Events()
	evs[0].Action = "mutated"
	assert.Equal(t, core.AuditDeclined, r.Events()[0].Action)
}

type failingSink struct{ err error }

func (f failingSink) Record(context.Context, core.AuditEvent) error { return f.err }

func TestMultiSinkRunsAllSinks(t *testing.T) {
	rec := NewRecorder()
	boom := errors.New("boom")
	m := MultiSink{failingSink{err: boom}, rec}

	err := m.Record(context.Background(), sampleEvent(core.AuditMessageProcessed))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, rec.Events(), 1, "a failing sink must not stop later sinks")
}
