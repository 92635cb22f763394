// Package runner implements the module shell: a state machine that walks an
// ordered task list, tracking completion and captured input per task.
package runner

import (
	"math"
	"strings"

	"github.com/zasterix/zasterix/internal/domain"
	"github.com/zasterix/zasterix/internal/domain/task"
)

// Mode selects how a module is walked.
type Mode string

const (
	// ModeSequential shows one task at a time and advances on completion.
	ModeSequential Mode = "sequential"
	// ModeChecklist shows every task and lets each be toggled independently.
	ModeChecklist Mode = "checklist"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeSequential || m == ModeChecklist
}

// Transition describes the effect of a completion change. Newly is true only
// for a pending to completed edge.
type Transition struct {
	TaskID string `json:"task_id"`
	Newly  bool   `json:"newly"`
}

// Runner holds the run state of one mounted module. It is not safe for
// concurrent use; callers serialize access per session.
type Runner struct {
	list      task.List
	mode      Mode
	completed map[string]bool
	inputs    map[string]string
	current   int
}

// New returns a runner over list. An empty list is a valid, non-interactive
// state.
func New(list task.List, mode Mode) (*Runner, error) {
	if !mode.Valid() {
		return nil, domain.Validation("unknown runner mode %q", mode)
	}
	return &Runner{
		list:      list,
		mode:      mode,
		completed: make(map[string]bool, list.Len()),
		inputs:    make(map[string]string),
	}, nil
}

// Mode returns the walking mode.
func (r *Runner) Mode() Mode { return r.mode }

// List returns the task list.
func (r *Runner) List() task.List { return r.list }

// Len returns the number of tasks.
func (r *Runner) Len() int { return r.list.Len() }

// Interactive reports whether there is anything to act on.
func (r *Runner) Interactive() bool { return r.list.Len() > 0 }

// CurrentIndex returns the position of the current task. It is always 0 in
// checklist mode.
func (r *Runner) CurrentIndex() int { return r.current }

// Current returns the current task, or nil for an empty list.
func (r *Runner) Current() task.Task {
	if !r.Interactive() {
		return nil
	}
	return r.list.At(r.current)
}

// IsLast reports whether the current task is the last one.
func (r *Runner) IsLast() bool { return r.current == r.list.Len()-1 }

// Complete marks taskID as completed. In sequential mode, completing the
// current task is refused while CanAdvance is false, and otherwise moves to the
// next task unless it is the last one.
func (r *Runner) Complete(taskID string) (Transition, error) {
	i, err := r.lookup(taskID)
	if err != nil {
		return Transition{}, err
	}
	if r.mode == ModeSequential && i == r.current && !r.CanAdvance() {
		return Transition{}, domain.Validation("task %s: input is required", taskID)
	}

	tr := Transition{TaskID: taskID, Newly: !r.completed[taskID]}
	r.completed[taskID] = true

	if r.mode == ModeSequential && i == r.current && !r.IsLast() {
		r.current++
	}
	return tr, nil
}

// Back moves to the previous task without un-completing anything.
func (r *Runner) Back() error {
	if r.mode != ModeSequential {
		return domain.Validation("back is only available in sequential mode")
	}
	if !r.Interactive() {
		return domain.ErrNotFound
	}
	r.current = max(0, r.current-1)
	return nil
}

// Toggle flips the completion of taskID. Checklist mode only.
func (r *Runner) Toggle(taskID string) (Transition, error) {
	if r.mode != ModeChecklist {
		return Transition{}, domain.Validation("toggle is only available in checklist mode")
	}
	if _, err := r.lookup(taskID); err != nil {
		return Transition{}, err
	}

	done := !r.completed[taskID]
	r.completed[taskID] = done
	return Transition{TaskID: taskID, Newly: done}, nil
}

// SetInput stores the raw value for taskID, replacing any previous value. It
// never completes the task.
func (r *Runner) SetInput(taskID, value string) error {
	if _, err := r.lookup(taskID); err != nil {
		return err
	}
	r.inputs[taskID] = value
	return nil
}

// Input returns the raw value captured for taskID.
func (r *Runner) Input(taskID string) string { return r.inputs[taskID] }

// IsCompleted reports whether taskID is completed.
func (r *Runner) IsCompleted(taskID string) bool { return r.completed[taskID] }

// CanAdvance is false while the current task is an Input whose value is blank.
func (r *Runner) CanAdvance() bool {
	cur := r.Current()
	if cur == nil {
		return false
	}
	if cur.Kind() != task.KindInput {
		return true
	}
	return strings.TrimSpace(r.inputs[cur.TaskID()]) != ""
}

// Done reports whether every task is completed. An empty list is never done.
func (r *Runner) Done() bool {
	return r.Interactive() && r.CompletedCount() == r.list.Len()
}

// CompletedCount returns the number of completed tasks of the list.
func (r *Runner) CompletedCount() int {
	n := 0
	for _, t := range r.list.Tasks() {
		if r.completed[t.TaskID()] {
			n++
		}
	}
	return n
}

// ProgressPercent returns round(100 * completed / total), or 0 for an empty
// list.
func (r *Runner) ProgressPercent() int {
	return Percent(r.CompletedCount(), r.list.Len())
}

// Percent returns round(100 * completed / total) clamped to [0, 100]; total 0
// yields 0.
func Percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(completed) / float64(total)))
	return min(100, max(0, p))
}

// PriorInput returns the trimmed value of the nearest Input task before index i.
func (r *Runner) PriorInput(i int) string {
	for j := min(i, r.list.Len()) - 1; j >= 0; j-- {
		if t := r.list.At(j); t.Kind() == task.KindInput {
			return strings.TrimSpace(r.inputs[t.TaskID()])
		}
	}
	return ""
}

// CompletedIDs returns the completed task ids in list order.
func (r *Runner) CompletedIDs() []string {
	ids := make([]string, 0, len(r.completed))
	for _, t := range r.list.Tasks() {
		if r.completed[t.TaskID()] {
			ids = append(ids, t.TaskID())
		}
	}
	return ids
}

// Restore marks the given ids as completed without emitting transitions.
// Unknown ids are ignored. In sequential mode the current index moves to the
// first pending task.
func (r *Runner) Restore(ids []string) {
	for _, id := range ids {
		if _, ok := r.list.IndexOf(id); ok {
			r.completed[id] = true
		}
	}
	if r.mode != ModeSequential || !r.Interactive() {
		return
	}
	r.current = r.list.Len() - 1
	for i, t := range r.list.Tasks() {
		if !r.completed[t.TaskID()] {
			r.current = i
			break
		}
	}
}

func (r *Runner) lookup(taskID string) (int, error) {
	i, ok := r.list.IndexOf(taskID)
	if !ok {
		return 0, domain.NotFound("task %s", taskID)
	}
	return i, nil
}
