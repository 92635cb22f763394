package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zasterix/zasterix/internal/adapter/ws"
	"github.com/zasterix/zasterix/internal/port/broadcast"
	"github.com/zasterix/zasterix/internal/port/messagequeue"
)

// EventRelay forwards bus events to realtime clients. It lets every instance
// push events that were produced by another instance.
type EventRelay struct {
	queue   messagequeue.Queue
	hub     broadcast.Broadcaster
	cancels []func()
}

// NewEventRelay creates a relay from q to hub.
func NewEventRelay(q messagequeue.Queue, hub broadcast.Broadcaster) *EventRelay {
	return &EventRelay{queue: q, hub: hub}
}

// Start subscribes to the relayed subjects.
func (r *EventRelay) Start(ctx context.Context) error {
	subs := map[string]messagequeue.Handler{
		messagequeue.SubjectAuditRecorded:     r.auditRecorded,
		messagequeue.SubjectProgressCompleted: r.progressCompleted,
	}
	for subject, h := range subs {
		cancel, err := r.queue.Subscribe(ctx, subject, h)
		if err != nil {
			r.Stop()
			return fmt.Errorf("relay subscribe %s: %w", subject, err)
		}
		r.cancels = append(r.cancels, cancel)
	}
	return nil
}

// Stop cancels every subscription.
func (r *EventRelay) Stop() {
	for _, cancel := range r.cancels {
		cancel()
	}
	r.cancels = nil
}

func (r *EventRelay) auditRecorded(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.AuditRecordedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode audit.recorded: %w", err)
	}
	r.hub.BroadcastEvent(ctx, broadcast.Audience{UserID: p.UserID}, ws.EventAuditRecorded, ws.AuditRecordedEvent{
		EntryID: p.EntryID, UserID: p.UserID, Type: p.Type,
	})
	return nil
}

// progressCompleted tells the user's other clients that a task was stored.
func (r *EventRelay) progressCompleted(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.ProgressCompletedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode progress.completed: %w", err)
	}
	r.hub.BroadcastEvent(ctx, broadcast.Audience{UserID: p.UserID}, ws.EventProgressSaved, p)
	return nil
}
