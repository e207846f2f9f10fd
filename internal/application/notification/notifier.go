// Package notification defines the outbound-notice boundary used by the
// approval and form paths. Actual delivery (email, Slack, webhooks) is out
// of scope; the default Notifier turns a notice into an observer event so
// anything already listening (the websocket hub, the database observer)
// picks it up the same way execution and node events do.
package notification

import (
	"context"

	"github.com/gridflow/gridflow/internal/application/observer"
)

// Kind identifies why a notification was raised.
type Kind string

const (
	KindApprovalRequested Kind = "approval_requested"
	KindApprovalResolved  Kind = "approval_resolved"
	KindFormRequested     Kind = "form_requested"
	KindFormSubmitted     Kind = "form_submitted"
)

// Notice is a single notification addressed to a user.
type Notice struct {
	UserID      string
	Kind        Kind
	ExecutionID string
	WorkflowID  string
	Payload     map[string]any
}

// Notifier delivers notices raised by the approval and form flows.
type Notifier interface {
	Notify(ctx context.Context, notice Notice) error
}

// ObserverNotifier is the default Notifier. It emits a
// observer.EventTypeNotificationSent event carrying the notice, so delivery
// is whatever the registered observers do with that event type (log it,
// persist it, push it over a websocket).
type ObserverNotifier struct {
	manager *observer.ObserverManager
}

// NewObserverNotifier creates a Notifier backed by an ObserverManager.
func NewObserverNotifier(manager *observer.ObserverManager) *ObserverNotifier {
	return &ObserverNotifier{manager: manager}
}

// Notify implements Notifier.
func (n *ObserverNotifier) Notify(ctx context.Context, notice Notice) error {
	if n.manager == nil {
		return nil
	}

	payload := make(map[string]any, len(notice.Payload)+1)
	for k, v := range notice.Payload {
		payload[k] = v
	}
	payload["user_id"] = notice.UserID
	payload["kind"] = string(notice.Kind)

	n.manager.Notify(ctx, observer.Event{
		Type:        observer.EventTypeNotificationSent,
		ExecutionID: notice.ExecutionID,
		WorkflowID:  notice.WorkflowID,
		Status:      string(notice.Kind),
		Metadata:    payload,
	})
	return nil
}

// NoopNotifier discards every notice. Useful where a Notifier is required
// but notifications are not under test.
type NoopNotifier struct{}

// Notify implements Notifier and always succeeds.
func (NoopNotifier) Notify(context.Context, Notice) error { return nil }
