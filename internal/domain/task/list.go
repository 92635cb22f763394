package task

import (
	"encoding/json"

	"github.com/zasterix/zasterix/internal/domain"
	"github.com/zasterix/zasterix/internal/domain/tool"
)

// List is an ordered, validated sequence of tasks with unique ids.
// List order is presentation order.
type List struct {
	tasks []Task
	index map[string]int
}

// NewList validates tasks against reg and returns them as a List.
// An empty list is valid.
func NewList(reg *tool.Registry, tasks ...Task) (List, error) {
	l := List{tasks: make([]Task, 0, len(tasks)), index: make(map[string]int, len(tasks))}
	for _, t := range tasks {
		if err := Validate(t, reg); err != nil {
			return List{}, err
		}
		if _, dup := l.index[t.TaskID()]; dup {
			return List{}, domain.Validation("duplicate task id %q", t.TaskID())
		}
		l.index[t.TaskID()] = len(l.tasks)
		l.tasks = append(l.tasks, t)
	}
	return l, nil
}

// Len returns the number of tasks.
func (l List) Len() int { return len(l.tasks) }

// At returns the task at position i.
func (l List) At(i int) Task { return l.tasks[i] }

// IndexOf returns the position of the task with the given id.
func (l List) IndexOf(id string) (int, bool) {
	i, ok := l.index[id]
	return i, ok
}

// Tasks returns a copy of the tasks in order.
func (l List) Tasks() []Task {
	out := make([]Task, len(l.tasks))
	copy(out, l.tasks)
	return out
}

// Spec is the serialized form of a task: one flat object with a "type"
// discriminator. It is used for JSON responses and the YAML catalog.
type Spec struct {
	Type        Kind        `json:"type" yaml:"type"`
	ID          string      `json:"id" yaml:"id"`
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Content     string      `json:"content,omitempty" yaml:"content,omitempty"`
	Placeholder string      `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	InputLabel  string      `json:"input_label,omitempty" yaml:"input_label,omitempty"`
	Prompt      string      `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	ToolID      tool.ID     `json:"tool_id,omitempty" yaml:"tool_id,omitempty"`
	ActionLabel string      `json:"action_label,omitempty" yaml:"action_label,omitempty"`
	Action      tool.Action `json:"action,omitempty" yaml:"action,omitempty"`
	Amount      *float64    `json:"amount,omitempty" yaml:"amount,omitempty"`
	Currency    string      `json:"currency,omitempty" yaml:"currency,omitempty"`
}

// Task converts the spec into its variant. Unknown discriminators are rejected.
func (s Spec) Task() (Task, error) {
	base := Base{ID: s.ID, Title: s.Title, Description: s.Description}
	switch s.Type {
	case KindInfo:
		return Info{Base: base, Content: s.Content}, nil
	case KindInput:
		return Input{Base: base, Placeholder: s.Placeholder, InputLabel: s.InputLabel}, nil
	case KindAICoach:
		return AICoach{Base: base, Prompt: s.Prompt}, nil
	case KindToolAction:
		return ToolAction{
			Base:        base,
			ToolID:      s.ToolID,
			ActionLabel: s.ActionLabel,
			Action:      s.Action,
			Amount:      s.Amount,
			Currency:    s.Currency,
		}, nil
	default:
		return nil, domain.Validation("task %s: unknown type %q", s.ID, s.Type)
	}
}

// SpecOf renders t in its serialized form.
func SpecOf(t Task) Spec {
	var s specWriter
	t.Accept(&s)
	return s.spec
}

type specWriter struct{ spec Spec }

func (w *specWriter) base(k Kind, b Base) {
	w.spec.Type, w.spec.ID, w.spec.Title, w.spec.Description = k, b.ID, b.Title, b.Description
}

func (w *specWriter) VisitInfo(t Info) {
	w.base(KindInfo, t.Base)
	w.spec.Content = t.Content
}

func (w *specWriter) VisitInput(t Input) {
	w.base(KindInput, t.Base)
	w.spec.Placeholder, w.spec.InputLabel = t.Placeholder, t.InputLabel
}

func (w *specWriter) VisitAICoach(t AICoach) {
	w.base(KindAICoach, t.Base)
	w.spec.Prompt = t.Prompt
}

func (w *specWriter) VisitToolAction(t ToolAction) {
	w.base(KindToolAction, t.Base)
	w.spec.ToolID, w.spec.ActionLabel = t.ToolID, t.ActionLabel
	w.spec.Action, w.spec.Amount, w.spec.Currency = t.Action, t.Amount, t.Currency
}

// Specs returns the serialized form of every task.
func (l List) Specs() []Spec {
	out := make([]Spec, len(l.tasks))
	for i, t := range l.tasks {
		out[i] = SpecOf(t)
	}
	return out
}

// MarshalJSON encodes the list as an array of specs.
func (l List) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Specs())
}

// FromSpecs builds a validated List from serialized specs.
func FromSpecs(reg *tool.Registry, specs []Spec) (List, error) {
	tasks := make([]Task, 0, len(specs))
	for _, s := range specs {
		t, err := s.Task()
		if err != nil {
			return List{}, err
		}
		tasks = append(tasks, t)
	}
	return NewList(reg, tasks...)
}
