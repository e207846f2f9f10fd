package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridflow/gridflow/internal/application/observer"
)

// capturingObserver records every event it receives.
type capturingObserver struct {
	mu     sync.Mutex
	events []observer.Event
}

func (c *capturingObserver) OnEvent(_ context.Context, event observer.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturingObserver) Name() string                 { return "capturing" }
func (c *capturingObserver) Filter() observer.EventFilter { return nil }

func (c *capturingObserver) last() (observer.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return observer.Event{}, false
	}
	return c.events[len(c.events)-1], true
}

func TestObserverNotifier_Notify(t *testing.T) {
	mgr := observer.NewObserverManager()
	obs := &capturingObserver{}
	require.NoError(t, mgr.Register(obs))

	n := NewObserverNotifier(mgr)
	err := n.Notify(context.Background(), Notice{
		UserID:      "user-1",
		Kind:        KindApprovalRequested,
		ExecutionID: "exec-1",
		WorkflowID:  "wf-1",
		Payload:     map[string]any{"node_id": "gate-1"},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := obs.last()
		return ok
	}, time.Second, 10*time.Millisecond)

	event, ok := obs.last()
	require.True(t, ok)
	assert.Equal(t, observer.EventTypeNotificationSent, event.Type)
	assert.Equal(t, "exec-1", event.ExecutionID)
	assert.Equal(t, "wf-1", event.WorkflowID)
	assert.Equal(t, string(KindApprovalRequested), event.Status)
	assert.Equal(t, "user-1", event.Metadata["user_id"])
	assert.Equal(t, "gate-1", event.Metadata["node_id"])
}

func TestObserverNotifier_NilManager(t *testing.T) {
	n := NewObserverNotifier(nil)
	err := n.Notify(context.Background(), Notice{UserID: "user-1", Kind: KindFormSubmitted})
	assert.NoError(t, err)
}

func TestNoopNotifier(t *testing.T) {
	var n Notifier = NoopNotifier{}
	assert.NoError(t, n.Notify(context.Background(), Notice{Kind: KindFormRequested}))
}
