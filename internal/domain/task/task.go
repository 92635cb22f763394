// Package task defines the closed set of task variants a guided module is
// built from: Info, Input, AICoach and ToolAction.
package task

import (
	"strings"

	"github.com/zasterix/zasterix/internal/domain"
	"github.com/zasterix/zasterix/internal/domain/tool"
)

// Kind is the wire discriminator of a task variant.
type Kind string

const (
	KindInfo       Kind = "info"
	KindInput      Kind = "input"
	KindAICoach    Kind = "ai-coach"
	KindToolAction Kind = "tool-action"
)

// Task is one step of a module. The interface is sealed: only the four
// variants in this package implement it.
type Task interface {
	TaskID() string
	TaskTitle() string
	Kind() Kind
	Accept(v Visitor)
	sealed()
}

// Visitor is implemented by every consumer that needs per-variant behavior.
// Adding a variant adds a method here, which breaks every consumer until it
// handles the new case.
type Visitor interface {
	VisitInfo(Info)
	VisitInput(Input)
	VisitAICoach(AICoach)
	VisitToolAction(ToolAction)
}

// Base holds the fields every variant shares.
type Base struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

func (b Base) TaskID() string    { return b.ID }
func (b Base) TaskTitle() string { return b.Title }

// Info is static text without interaction.
type Info struct {
	Base
	Content string `json:"content"`
}

func (Info) Kind() Kind         { return KindInfo }
func (t Info) Accept(v Visitor) { v.VisitInfo(t) }
func (Info) sealed()            {}

// Input captures one free-text value.
type Input struct {
	Base
	Placeholder string `json:"placeholder,omitempty"`
	InputLabel  string `json:"input_label,omitempty"`
}

func (Input) Kind() Kind         { return KindInput }
func (t Input) Accept(v Visitor) { v.VisitInput(t) }
func (Input) sealed()            {}

// AICoach shows a templated analysis derived from the preceding input.
type AICoach struct {
	Base
	Prompt string `json:"prompt"`
}

func (AICoach) Kind() Kind         { return KindAICoach }
func (t AICoach) Accept(v Visitor) { v.VisitAICoach(t) }
func (AICoach) sealed()            {}

// ToolAction triggers a registered tool capability.
type ToolAction struct {
	Base
	ToolID      tool.ID     `json:"tool_id"`
	ActionLabel string      `json:"action_label,omitempty"`
	Action      tool.Action `json:"action,omitempty"`
	Amount      *float64    `json:"amount,omitempty"`
	Currency    string      `json:"currency,omitempty"`
}

func (ToolAction) Kind() Kind         { return KindToolAction }
func (t ToolAction) Accept(v Visitor) { v.VisitToolAction(t) }
func (ToolAction) sealed()            {}

// Params returns the tool-specific fields for capability validation.
func (t ToolAction) Params() tool.Params {
	return tool.Params{Action: t.Action, Amount: t.Amount, Currency: t.Currency}
}

// DeepLink returns the connector link for this task.
func (t ToolAction) DeepLink() tool.DeepLink {
	return tool.DeepLink{Action: t.Action, Amount: t.Amount, Currency: t.Currency}
}

// Validate checks the fields of a single task. ToolAction tasks are checked
// against reg; an unregistered tool id is rejected.
func Validate(t Task, reg *tool.Registry) error {
	if strings.TrimSpace(t.TaskID()) == "" {
		return domain.Validation("task id is required")
	}
	if strings.TrimSpace(t.TaskTitle()) == "" {
		return domain.Validation("task %s: title is required", t.TaskID())
	}

	v := &validator{reg: reg}
	t.Accept(v)
	return v.err
}

type validator struct {
	reg *tool.Registry
	err error
}

func (v *validator) VisitInfo(t Info) {
	if t.Content == "" {
		v.err = domain.Validation("task %s: content is required", t.ID)
	}
}

func (v *validator) VisitInput(Input) {}

func (v *validator) VisitAICoach(t AICoach) {
	if t.Prompt == "" {
		v.err = domain.Validation("task %s: prompt is required", t.ID)
	}
}

func (v *validator) VisitToolAction(t ToolAction) {
	c, ok := v.reg.Lookup(t.ToolID)
	if !ok {
		v.err = domain.Validation("task %s: unknown tool %q", t.ID, t.ToolID)
		return
	}
	if err := c.Validate(t.Params()); err != nil {
		v.err = domain.Validation("task %s: %v", t.ID, err)
	}
}
