// Package progress holds the per-session progress display counters and the
// stored per-module completion record.
package progress

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of an aggregator.
type Snapshot struct {
	TotalTasks     int `json:"total_tasks"`
	CompletedTasks int `json:"completed_tasks"`
}

// Aggregator is a display cache of task counters for one session. Values are
// not validated. Concurrent modules of the same session overwrite each other;
// the last write wins.
type Aggregator struct {
	mu        sync.Mutex
	total     int
	completed int
}

// NewAggregator returns an aggregator initialized to {0, 0}.
func NewAggregator() *Aggregator { return &Aggregator{} }

// SetTotal overwrites the total task count.
func (a *Aggregator) SetTotal(n int) {
	a.mu.Lock()
	a.total = n
	a.mu.Unlock()
}

// SetCompleted overwrites the completed task count.
func (a *Aggregator) SetCompleted(n int) {
	a.mu.Lock()
	a.completed = n
	a.mu.Unlock()
}

// Set overwrites both counters at once.
func (a *Aggregator) Set(total, completed int) {
	a.mu.Lock()
	a.total, a.completed = total, completed
	a.mu.Unlock()
}

// Snapshot returns the current counters.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{TotalTasks: a.total, CompletedTasks: a.completed}
}

// Key identifies one completed task of a module for one user.
type Key struct {
	UserID   string `json:"user_id"`
	StageID  string `json:"stage_id"`
	ModuleID string `json:"module_id"`
	TaskID   string `json:"task_id"`
}

// Record is the stored completion state of one module for one user.
type Record struct {
	UserID         string    `json:"user_id"`
	StageID        string    `json:"stage_id"`
	ModuleID       string    `json:"module_id"`
	CompletedTasks []string  `json:"completed_tasks"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Has reports whether taskID is in the record.
func (r *Record) Has(taskID string) bool {
	for _, id := range r.CompletedTasks {
		if id == taskID {
			return true
		}
	}
	return false
}
