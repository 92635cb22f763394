package service

import (
	"context"
	"encoding/json"
	"log/slog"

	zotel "github.com/zasterix/zasterix/internal/adapter/otel"
	"github.com/zasterix/zasterix/internal/adapter/ws"
	"github.com/zasterix/zasterix/internal/domain"
	"github.com/zasterix/zasterix/internal/domain/audit"
	"github.com/zasterix/zasterix/internal/port/broadcast"
	"github.com/zasterix/zasterix/internal/port/database"
	"github.com/zasterix/zasterix/internal/port/messagequeue"
)

// AuditService appends entries to the universal history.
type AuditService struct {
	store   database.Store
	hub     broadcast.Broadcaster
	queue   messagequeue.Queue
	metrics *zotel.Metrics
}

// NewAuditService creates an AuditService.
func NewAuditService(store database.Store) *AuditService {
	return &AuditService{store: store, hub: broadcast.Nop{}}
}

// SetBroadcaster sets the realtime event sink. It is used only when no
// message queue is configured; otherwise the event relay delivers.
func (s *AuditService) SetBroadcaster(b broadcast.Broadcaster) { s.hub = b }

// SetQueue sets the message queue for audit.recorded events.
func (s *AuditService) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetMetrics sets the metric instruments.
func (s *AuditService) SetMetrics(m *zotel.Metrics) { s.metrics = m }

// Record stores one history entry and returns its id. Failed writes are not
// retried.
func (s *AuditService) Record(ctx context.Context, userID string, orgID *string, payload, summary json.RawMessage) (string, error) {
	e := &audit.Entry{
		UserID:         userID,
		OrganizationID: orgID,
		Payload:        payload,
		SummaryPayload: summary,
	}
	if err := e.Validate(); err != nil {
		return "", err
	}
	if err := s.store.InsertAudit(ctx, e); err != nil {
		return "", domain.Persistence("record history", err)
	}

	typ := payloadType(e.Payload)
	s.metrics.Inc(ctx, zotel.AuditRecorded)
	slog.InfoContext(ctx, "history recorded", "id", e.ID, "user_id", userID, "type", typ)

	if s.queue != nil {
		publish(ctx, s.queue, messagequeue.SubjectAuditRecorded, messagequeue.AuditRecordedPayload{
			EntryID: e.ID, UserID: userID, OrganizationID: orgID, Type: typ,
		})
	} else {
		s.hub.BroadcastEvent(ctx, broadcast.Audience{UserID: userID}, ws.EventAuditRecorded, ws.AuditRecordedEvent{
			EntryID: e.ID, UserID: userID, Type: typ,
		})
	}
	return e.ID, nil
}

// RecordDecision validates a registrar decision and records it.
func (s *AuditService) RecordDecision(ctx context.Context, userID string, orgID *string, d audit.RegistrarDecision) (string, error) {
	payload, err := d.Payload()
	if err != nil {
		return "", err
	}
	return s.Record(ctx, userID, orgID, payload, nil)
}

// RecordDispatch records a technical task handed to a specialist.
func (s *AuditService) RecordDispatch(ctx context.Context, userID string, orgID *string, d audit.TechnicalDispatch) (string, error) {
	payload, err := d.Payload()
	if err != nil {
		return "", err
	}
	return s.Record(ctx, userID, orgID, payload, nil)
}

// RecordSummary records a finished conversation. The entry payload references
// the conversation and the full summary goes into the summary payload.
func (s *AuditService) RecordSummary(ctx context.Context, userID string, orgID *string, sum audit.ConversationSummary) (string, error) {
	summary, err := sum.Payload()
	if err != nil {
		return "", err
	}
	ref, err := sum.Reference()
	if err != nil {
		return "", err
	}
	return s.Record(ctx, userID, orgID, ref, summary)
}

// List returns the newest entries, at most limit (default 50).
func (s *AuditService) List(ctx context.Context, limit int) ([]audit.Entry, error) {
	entries, err := s.store.ListAudit(ctx, audit.ClampLimit(limit))
	if err != nil {
		return nil, domain.Persistence("list history", err)
	}
	return entries, nil
}

// payloadType returns the "type" field of a JSON object payload, if any.
func payloadType(payload json.RawMessage) string {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return ""
	}
	return head.Type
}
