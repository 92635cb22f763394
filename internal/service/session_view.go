package service

import (
	"github.com/zasterix/zasterix/internal/domain/coach"
	"github.com/zasterix/zasterix/internal/domain/runner"
	"github.com/zasterix/zasterix/internal/domain/task"
	"github.com/zasterix/zasterix/internal/domain/tool"
)

// SessionView is the render state of a mounted module.
type SessionView struct {
	ID             string      `json:"id"`
	StageID        string      `json:"stage_id"`
	ModuleID       string      `json:"module_id"`
	Title          string      `json:"title"`
	Subtitle       string      `json:"subtitle,omitempty"`
	Mode           runner.Mode `json:"mode"`
	Interactive    bool        `json:"interactive"`
	CurrentIndex   int         `json:"current_index"`
	CanAdvance     bool        `json:"can_advance"`
	Done           bool        `json:"done"`
	TotalTasks     int         `json:"total_tasks"`
	CompletedCount int         `json:"completed_count"`
	Percent        int         `json:"percent"`
	Tasks          []TaskView  `json:"tasks"`
}

// TaskView is one task with its run state and derived content.
type TaskView struct {
	task.Spec
	Completed bool                `json:"completed"`
	Saved     bool                `json:"saved"`
	Current   bool                `json:"current"`
	Value     string              `json:"value,omitempty"`
	Analysis  string              `json:"analysis,omitempty"`
	DeepLink  string              `json:"deep_link,omitempty"`
	Fees      *tool.FeeComparison `json:"fees,omitempty"`
}

func (s *SessionService) viewLocked(sess *session) *SessionView {
	r := sess.run
	v := &SessionView{
		ID:             sess.id,
		StageID:        sess.module.StageID,
		ModuleID:       sess.module.ModuleID,
		Title:          sess.module.Title,
		Subtitle:       sess.module.Subtitle,
		Mode:           r.Mode(),
		Interactive:    r.Interactive(),
		CurrentIndex:   r.CurrentIndex(),
		CanAdvance:     r.CanAdvance(),
		Done:           r.Done(),
		TotalTasks:     r.Len(),
		CompletedCount: r.CompletedCount(),
		Percent:        r.ProgressPercent(),
		Tasks:          make([]TaskView, 0, r.Len()),
	}

	for i, t := range r.List().Tasks() {
		b := viewBuilder{
			svc: s,
			run: r,
			idx: i,
			tv: TaskView{
				Spec:      task.SpecOf(t),
				Completed: r.IsCompleted(t.TaskID()),
				Saved:     sess.saved[t.TaskID()],
				Current:   r.Mode() == runner.ModeSequential && i == r.CurrentIndex(),
			},
		}
		t.Accept(&b)
		v.Tasks = append(v.Tasks, b.tv)
	}
	return v
}

// viewBuilder fills the variant-specific fields of one TaskView.
type viewBuilder struct {
	svc *SessionService
	run *runner.Runner
	idx int
	tv  TaskView
}

func (b *viewBuilder) VisitInfo(task.Info) {}

func (b *viewBuilder) VisitInput(t task.Input) {
	b.tv.Value = b.run.Input(t.ID)
}

func (b *viewBuilder) VisitAICoach(task.AICoach) {
	b.tv.Analysis = coach.Analysis(b.run.PriorInput(b.idx))
}

func (b *viewBuilder) VisitToolAction(t task.ToolAction) {
	if _, ok := b.svc.tools.Lookup(t.ToolID); !ok {
		return
	}
	switch t.ToolID {
	case tool.IDYuhConnector:
		b.tv.DeepLink = tool.BuildDeepLink(b.svc.scheme, t.DeepLink())
	case tool.IDFeeCalculator:
		amount := float64(coach.DefaultAmountCHF)
		if t.Amount != nil {
			amount = *t.Amount
		} else if in := b.run.PriorInput(b.idx); in != "" {
			if v := tool.ParseAmount(in); v > 0 {
				amount = v
			}
		}
		fees := tool.CompareFees(amount)
		b.tv.Fees = &fees
	}
}
