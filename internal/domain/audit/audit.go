// Package audit defines the append-only history entries and the payloads
// recorded for registrar decisions, technical dispatches and conversation
// summaries.
package audit

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/zasterix/zasterix/internal/domain"
)

// ExecutiveApprovalToken must accompany every registrar decision.
const ExecutiveApprovalToken = "CHECK-OK"

// DefaultListLimit is the number of entries returned when no limit is given.
const DefaultListLimit = 50

// MaxListLimit caps the number of entries per list call.
const MaxListLimit = 500

// Payload types.
const (
	TypeRegistrarDecision   = "registrar_decision"
	TypeTechnicalDispatch   = "technical_dispatch"
	TypeConversationSummary = "conversation_summary"
)

// Entry is one immutable history row.
type Entry struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	OrganizationID *string         `json:"organization_id"`
	Payload        json.RawMessage `json:"payload"`
	SummaryPayload json.RawMessage `json:"summary_payload,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Validate checks the fields set by the caller.
func (e *Entry) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return domain.Validation("user id is required")
	}
	if len(e.Payload) == 0 || !json.Valid(e.Payload) {
		return domain.Validation("payload must be valid JSON")
	}
	if len(e.SummaryPayload) > 0 && !json.Valid(e.SummaryPayload) {
		return domain.Validation("summary payload must be valid JSON")
	}
	return nil
}

// ClampLimit applies the default and maximum list limits.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}

// RegistrarDecision is a governance decision that needs executive approval.
type RegistrarDecision struct {
	Decision      string `json:"decision"`
	Subject       string `json:"subject"`
	Rationale     string `json:"rationale,omitempty"`
	ApprovalToken string `json:"approval_token"`
}

// Payload validates the decision and renders it.
func (d RegistrarDecision) Payload() (json.RawMessage, error) {
	if d.ApprovalToken != ExecutiveApprovalToken {
		return nil, domain.Validation("Executive approval missing.")
	}
	if strings.TrimSpace(d.Decision) == "" {
		return nil, domain.Validation("decision is required")
	}
	return render(TypeRegistrarDecision, map[string]any{
		"decision":  d.Decision,
		"subject":   d.Subject,
		"rationale": d.Rationale,
		"approved":  true,
	})
}

// TechnicalDispatch records a technical task handed to a specialist agent.
type TechnicalDispatch struct {
	TemplateID string `json:"template_id"`
	AgentName  string `json:"agent_name"`
	Task       string `json:"task"`
}

// Payload renders the dispatch.
func (d TechnicalDispatch) Payload() (json.RawMessage, error) {
	if strings.TrimSpace(d.Task) == "" {
		return nil, domain.Validation("task is required")
	}
	return render(TypeTechnicalDispatch, map[string]any{
		"template_id": d.TemplateID,
		"agent_name":  d.AgentName,
		"task":        d.Task,
	})
}

// ConversationSummary consolidates a finished conversation.
type ConversationSummary struct {
	Title    string   `json:"title"`
	Messages int      `json:"messages"`
	Points   []string `json:"points"`
}

// Payload validates the summary and renders it.
func (s ConversationSummary) Payload() (json.RawMessage, error) {
	if strings.TrimSpace(s.Title) == "" {
		return nil, domain.Validation("title is required")
	}
	if s.Messages < 0 {
		return nil, domain.Validation("messages must not be negative")
	}
	points := s.Points
	if points == nil {
		points = []string{}
	}
	return render(TypeConversationSummary, map[string]any{
		"title":    s.Title,
		"messages": s.Messages,
		"points":   points,
	})
}

// Reference renders the short entry payload that points at the summary.
func (s ConversationSummary) Reference() (json.RawMessage, error) {
	return render(TypeConversationSummary, map[string]any{
		"title":    s.Title,
		"messages": s.Messages,
	})
}

func render(typ string, fields map[string]any) (json.RawMessage, error) {
	fields["type"] = typ
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return b, nil
}
