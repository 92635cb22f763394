package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	zotel "github.com/zasterix/zasterix/internal/adapter/otel"
	"github.com/zasterix/zasterix/internal/adapter/ws"
	"github.com/zasterix/zasterix/internal/catalog"
	"github.com/zasterix/zasterix/internal/domain"
	"github.com/zasterix/zasterix/internal/domain/progress"
	"github.com/zasterix/zasterix/internal/domain/runner"
	"github.com/zasterix/zasterix/internal/domain/tool"
	"github.com/zasterix/zasterix/internal/middleware"
	"github.com/zasterix/zasterix/internal/port/broadcast"
	"github.com/zasterix/zasterix/internal/port/database"
	"github.com/zasterix/zasterix/internal/port/messagequeue"
)

// JobSubmitter accepts best-effort background work.
type JobSubmitter interface {
	Submit(job Job) bool
}

// SessionService owns the mounted module sessions. Each session serializes its
// transitions with its own mutex; the registry itself uses a RWMutex.
type SessionService struct {
	catalog *catalog.Catalog
	store   database.Store
	jobs    JobSubmitter
	hub     broadcast.Broadcaster
	queue   messagequeue.Queue
	metrics *zotel.Metrics
	tools   *tool.Registry
	scheme  string
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
	aggs     map[string]*progress.Aggregator
}

type session struct {
	mu     sync.Mutex
	id     string
	owner  middleware.Identity
	module *catalog.Module
	run    *runner.Runner
	agg    *progress.Aggregator
	alive  bool
	saved  map[string]bool
	seen   time.Time
}

// NewSessionService creates a SessionService over the module catalog.
func NewSessionService(cat *catalog.Catalog, store database.Store, jobs JobSubmitter, tools *tool.Registry, scheme string) *SessionService {
	return &SessionService{
		catalog:  cat,
		store:    store,
		jobs:     jobs,
		hub:      broadcast.Nop{},
		tools:    tools,
		scheme:   scheme,
		now:      time.Now,
		sessions: make(map[string]*session),
		aggs:     make(map[string]*progress.Aggregator),
	}
}

// SetBroadcaster sets the realtime event sink.
func (s *SessionService) SetBroadcaster(b broadcast.Broadcaster) { s.hub = b }

// SetQueue sets the optional message queue for progress.completed events.
func (s *SessionService) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetMetrics sets the metric instruments.
func (s *SessionService) SetMetrics(m *zotel.Metrics) { s.metrics = m }

// Modules returns the catalog modules in display order.
func (s *SessionService) Modules() []*catalog.Module { return s.catalog.Modules() }

// Module returns one catalog module.
func (s *SessionService) Module(stageID, moduleID string) (*catalog.Module, error) {
	return s.catalog.Lookup(stageID, moduleID)
}

// Mount starts a session of the given module for the caller in ctx. A
// resolved user whose latest stored progress belongs to this module resumes
// with those tasks completed.
func (s *SessionService) Mount(ctx context.Context, stageID, moduleID string) (*SessionView, error) {
	mod, err := s.catalog.Lookup(stageID, moduleID)
	if err != nil {
		return nil, err
	}
	run, err := runner.New(mod.Tasks, mod.Mode)
	if err != nil {
		return nil, err
	}

	owner := middleware.IdentityFromContext(ctx)
	sess := &session{
		id:     uuid.NewString(),
		owner:  owner,
		module: mod,
		run:    run,
		alive:  true,
		saved:  make(map[string]bool),
		seen:   s.now(),
	}
	if owner.Resolved() {
		s.resume(ctx, sess)
	}

	s.mu.Lock()
	sess.agg = s.aggregatorLocked(aggregatorKey(owner, sess.id))
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.metrics.Inc(ctx, zotel.SessionsMounted, attribute.String("module", mod.Key()))
	slog.InfoContext(ctx, "session mounted", "session_id", sess.id, "module", mod.Key(), "user_id", owner.UserID)

	sess.mu.Lock()
	sess.agg.Set(run.Len(), run.CompletedCount())
	view := s.viewLocked(sess)
	sess.mu.Unlock()

	s.broadcastProgress(ctx, view)
	return view, nil
}

func (s *SessionService) resume(ctx context.Context, sess *session) {
	rec, err := s.store.LatestProgress(ctx, sess.owner.UserID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return
	case err != nil:
		slog.WarnContext(ctx, "progress resume skipped", "user_id", sess.owner.UserID, "error", err)
		return
	}
	if rec.StageID != sess.module.StageID || rec.ModuleID != sess.module.ModuleID {
		return
	}
	sess.run.Restore(rec.CompletedTasks)
	for _, id := range sess.run.CompletedIDs() {
		sess.saved[id] = true
	}
}

// Unmount ends a session. Acknowledgements of background writes that arrive
// afterwards are ignored.
func (s *SessionService) Unmount(ctx context.Context, id string) error {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	s.end(sess)
	slog.InfoContext(ctx, "session unmounted", "session_id", id)
	return nil
}

// Sweep unmounts every session not used for longer than maxIdle and returns
// how many were removed.
func (s *SessionService) Sweep(ctx context.Context, maxIdle time.Duration) int {
	s.mu.RLock()
	all := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.RUnlock()

	cutoff := s.now().Add(-maxIdle)
	n := 0
	for _, sess := range all {
		sess.mu.Lock()
		idle := sess.seen.Before(cutoff)
		sess.mu.Unlock()
		if idle && s.end(sess) {
			n++
		}
	}
	if n > 0 {
		slog.InfoContext(ctx, "idle sessions unmounted", "count", n, "max_idle", maxIdle)
	}
	return n
}

// StartSweep runs Sweep every interval until the returned stop function is
// called.
func (s *SessionService) StartSweep(interval, maxIdle time.Duration) (stop func()) {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				s.Sweep(context.Background(), maxIdle)
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// end removes sess from the registry. Anonymous aggregators go with it; a
// resolved user's aggregator is shared and stays. It reports false when the
// session was already gone.
func (s *SessionService) end(sess *session) bool {
	sess.mu.Lock()
	sess.alive = false
	sess.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.id]; !ok {
		return false
	}
	delete(s.sessions, sess.id)
	if !sess.owner.Resolved() {
		delete(s.aggs, aggregatorKey(sess.owner, sess.id))
	}
	return true
}

// View returns the current state of a session.
func (s *SessionService) View(ctx context.Context, id string) (*SessionView, error) {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.viewLocked(sess), nil
}

// Complete marks a task completed.
func (s *SessionService) Complete(ctx context.Context, id, taskID string) (*SessionView, error) {
	return s.transition(ctx, id, func(r *runner.Runner) (runner.Transition, error) {
		return r.Complete(taskID)
	})
}

// Toggle flips a task of a checklist module.
func (s *SessionService) Toggle(ctx context.Context, id, taskID string) (*SessionView, error) {
	return s.transition(ctx, id, func(r *runner.Runner) (runner.Transition, error) {
		return r.Toggle(taskID)
	})
}

// Back moves a sequential module to the previous task.
func (s *SessionService) Back(ctx context.Context, id string) (*SessionView, error) {
	return s.transition(ctx, id, func(r *runner.Runner) (runner.Transition, error) {
		return runner.Transition{}, r.Back()
	})
}

// SetInput stores the raw value of an input task.
func (s *SessionService) SetInput(ctx context.Context, id, taskID, value string) (*SessionView, error) {
	return s.transition(ctx, id, func(r *runner.Runner) (runner.Transition, error) {
		return runner.Transition{}, r.SetInput(taskID, value)
	})
}

// Snapshot returns the aggregator of the caller in ctx, or of the anonymous
// session sessionID.
func (s *SessionService) Snapshot(ctx context.Context, sessionID string) progress.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if agg, ok := s.aggs[aggregatorKey(middleware.IdentityFromContext(ctx), sessionID)]; ok {
		return agg.Snapshot()
	}
	return progress.Snapshot{}
}

// Count returns the number of mounted sessions.
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionService) transition(ctx context.Context, id string, apply func(*runner.Runner) (runner.Transition, error)) (*SessionView, error) {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	tr, err := apply(sess.run)
	if err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	if tr.TaskID != "" && !sess.run.IsCompleted(tr.TaskID) {
		delete(sess.saved, tr.TaskID)
	}
	sess.agg.Set(sess.run.Len(), sess.run.CompletedCount())
	view := s.viewLocked(sess)
	sess.mu.Unlock()

	if tr.Newly {
		s.metrics.Inc(ctx, zotel.TasksCompleted, attribute.String("module", sess.module.Key()))
		s.persist(ctx, sess, tr.TaskID)
	}
	if tr.TaskID != "" {
		s.broadcastProgress(ctx, view)
	}
	return view, nil
}

// persist submits the completion of taskID for background storage. It must
// be called without holding sess.mu.
func (s *SessionService) persist(ctx context.Context, sess *session, taskID string) {
	if !sess.owner.Resolved() || s.jobs == nil {
		return
	}
	key := progress.Key{
		UserID:   sess.owner.UserID,
		StageID:  sess.module.StageID,
		ModuleID: sess.module.ModuleID,
		TaskID:   taskID,
	}
	reqCtx := context.WithoutCancel(ctx)

	s.jobs.Submit(Job{
		Kind: "progress.upsert",
		Run: func(jobCtx context.Context) error {
			if _, err := s.store.UpsertProgress(jobCtx, key); err != nil {
				return err
			}
			publish(reqCtx, s.queue, messagequeue.SubjectProgressCompleted, messagequeue.ProgressCompletedPayload(key))
			return nil
		},
		OnDone: func(err error) {
			if err != nil {
				return
			}
			sess.mu.Lock()
			if sess.alive && sess.run.IsCompleted(taskID) {
				sess.saved[taskID] = true
			}
			sess.mu.Unlock()
		},
	})
}

func (s *SessionService) broadcastProgress(ctx context.Context, v *SessionView) {
	owner := middleware.IdentityFromContext(ctx)
	if !owner.Resolved() {
		return
	}
	s.hub.BroadcastEvent(ctx, broadcast.Audience{UserID: owner.UserID}, ws.EventProgressUpdated, ws.ProgressUpdatedEvent{
		SessionID:      v.ID,
		StageID:        v.StageID,
		ModuleID:       v.ModuleID,
		TotalTasks:     v.TotalTasks,
		CompletedTasks: v.CompletedCount,
		Percent:        v.Percent,
	})
}

// lookup returns a live session owned by the caller in ctx. Sessions of other
// callers are reported as not found.
func (s *SessionService) lookup(ctx context.Context, id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || sess.owner.UserID != middleware.IdentityFromContext(ctx).UserID {
		return nil, domain.NotFound("session %s", id)
	}
	sess.mu.Lock()
	sess.seen = s.now()
	sess.mu.Unlock()
	return sess, nil
}

func (s *SessionService) aggregatorLocked(key string) *progress.Aggregator {
	agg, ok := s.aggs[key]
	if !ok {
		agg = progress.NewAggregator()
		s.aggs[key] = agg
	}
	return agg
}

// aggregatorKey is the user id, or the session id for anonymous callers.
func aggregatorKey(owner middleware.Identity, sessionID string) string {
	if owner.Resolved() {
		return "user:" + owner.UserID
	}
	return "session:" + sessionID
}
