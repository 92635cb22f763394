package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/zasterix/zasterix/internal/port/broadcast"
)

// Event type constants for WebSocket messages.
const (
	EventProgressUpdated = "progress.updated"
	EventProgressSaved   = "progress.saved"
	EventAuditRecorded   = "audit.recorded"
	EventCoachStatus     = "coach.status"
	EventTemplateCreated = "template.created"
)

// ProgressUpdatedEvent is broadcast when a session's aggregator changes.
type ProgressUpdatedEvent struct {
	SessionID      string `json:"session_id"`
	StageID        string `json:"stage_id"`
	ModuleID       string `json:"module_id"`
	TotalTasks     int    `json:"total_tasks"`
	CompletedTasks int    `json:"completed_tasks"`
	Percent        int    `json:"percent"`
}

// AuditRecordedEvent is broadcast after a history entry was stored.
type AuditRecordedEvent struct {
	EntryID string `json:"entry_id"`
	UserID  string `json:"user_id"`
	Type    string `json:"type,omitempty"`
}

// CoachStatusEvent carries one status line of an asset coach run.
type CoachStatusEvent struct {
	RunID string `json:"run_id"`
	Step  int    `json:"step"`
	Line  string `json:"line"`
}

// TemplateCreatedEvent is broadcast when a specialist template is created.
type TemplateCreatedEvent struct {
	TemplateID string `json:"template_id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
}

// BroadcastEvent marshals a typed event and broadcasts it to the audience.
func (h *Hub) BroadcastEvent(ctx context.Context, to broadcast.Audience, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, to, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
