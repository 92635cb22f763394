package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/zasterix/zasterix/internal/domain"
	"github.com/zasterix/zasterix/internal/domain/audit"
	"github.com/zasterix/zasterix/internal/domain/coach"
	"github.com/zasterix/zasterix/internal/domain/progress"
	"github.com/zasterix/zasterix/internal/domain/template"
	"github.com/zasterix/zasterix/internal/port/broadcast"
	"github.com/zasterix/zasterix/internal/port/database"
	"github.com/zasterix/zasterix/internal/port/messagequeue"
)

var _ database.Store = (*mockStore)(nil)

// mockStore is an in-memory database.Store. Setting err makes every call fail.
type mockStore struct {
	mu        sync.Mutex
	err       error
	templates []template.AgentTemplate
	audit     []audit.Entry
	progress  map[string]*progress.Record
	analyses  []coach.AssetAnalysis
	seq       int
	lists     int
	finds     int
	upserts   int
	clock     time.Time
}

func newMockStore() *mockStore {
	return &mockStore{
		progress: make(map[string]*progress.Record),
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *mockStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *mockStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *mockStore) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *mockStore) ListTemplates(_ context.Context, scope template.Scope) ([]template.AgentTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.err != nil {
		return nil, m.err
	}
	out := []template.AgentTemplate{}
	for i := len(m.templates) - 1; i >= 0; i-- {
		t := m.templates[i]
		if scope.Includes(&t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockStore) GetTemplate(_ context.Context, id string) (*template.AgentTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, t := range m.templates {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, domain.NotFound("template %s", id)
}

func (m *mockStore) FindTemplateByKey(_ context.Context, name string, orgID *string) (*template.AgentTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finds++
	if m.err != nil {
		return nil, m.err
	}
	for _, t := range m.templates {
		if t.Name == name && sameOrg(t.OrganizationID, orgID) {
			return &t, nil
		}
	}
	return nil, domain.NotFound("template %s", name)
}

func sameOrg(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *mockStore) InsertTemplate(_ context.Context, t *template.AgentTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	t.ID = m.nextID("tpl")
	t.CreatedAt = m.tick()
	m.templates = append(m.templates, *t)
	return nil
}

func (m *mockStore) InsertAudit(_ context.Context, e *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	e.ID = m.nextID("hist")
	e.CreatedAt = m.tick()
	m.audit = append(m.audit, *e)
	return nil
}

func (m *mockStore) ListAudit(_ context.Context, limit int) ([]audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []audit.Entry{}
	for i := len(m.audit) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.audit[i])
	}
	return out, nil
}

func progressKey(userID, stageID, moduleID string) string {
	return userID + "/" + stageID + "/" + moduleID
}

func (m *mockStore) UpsertProgress(_ context.Context, key progress.Key) (*progress.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.err != nil {
		return nil, m.err
	}
	k := progressKey(key.UserID, key.StageID, key.ModuleID)
	rec, ok := m.progress[k]
	if !ok {
		rec = &progress.Record{UserID: key.UserID, StageID: key.StageID, ModuleID: key.ModuleID, CompletedTasks: []string{}}
		m.progress[k] = rec
	}
	if !slices.Contains(rec.CompletedTasks, key.TaskID) {
		rec.CompletedTasks = append(rec.CompletedTasks, key.TaskID)
	}
	rec.UpdatedAt = m.tick()
	cp := *rec
	cp.CompletedTasks = slices.Clone(rec.CompletedTasks)
	return &cp, nil
}

func (m *mockStore) LatestProgress(_ context.Context, userID string) (*progress.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var latest *progress.Record
	for _, rec := range m.progress {
		if rec.UserID == userID && (latest == nil || rec.UpdatedAt.After(latest.UpdatedAt)) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, domain.NotFound("progress for %s", userID)
	}
	cp := *latest
	cp.CompletedTasks = slices.Clone(latest.CompletedTasks)
	return &cp, nil
}

func (m *mockStore) ResetProgress(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for k, rec := range m.progress {
		if rec.UserID == userID {
			delete(m.progress, k)
		}
	}
	return nil
}

func (m *mockStore) InsertAssetAnalysis(_ context.Context, a *coach.AssetAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	a.ID = m.nextID("asset")
	a.AnalyzedAt = m.tick()
	m.analyses = append(m.analyses, *a)
	return nil
}

func (m *mockStore) ListAssetAnalyses(_ context.Context, userID string, limit int) ([]coach.AssetAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []coach.AssetAnalysis{}
	for i := len(m.analyses) - 1; i >= 0 && len(out) < limit; i-- {
		if m.analyses[i].UserID == userID {
			out = append(out, m.analyses[i])
		}
	}
	return out, nil
}

func (m *mockStore) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *mockStore) counts() (lists, finds, upserts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists, m.finds, m.upserts
}

// sentEvent is one recorded broadcast.
type sentEvent struct {
	To      broadcast.Audience
	Type    string
	Payload any
}

type mockBroadcaster struct {
	mu     sync.Mutex
	events []sentEvent
}

func (b *mockBroadcaster) BroadcastEvent(_ context.Context, to broadcast.Audience, eventType string, payload any) {
	b.mu.Lock()
	b.events = append(b.events, sentEvent{To: to, Type: eventType, Payload: payload})
	b.mu.Unlock()
}

func (b *mockBroadcaster) ofType(eventType string) []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sentEvent
	for _, e := range b.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

var _ messagequeue.Queue = (*mockQueue)(nil)

type published struct {
	Subject string
	Data    []byte
}

type mockQueue struct {
	mu       sync.Mutex
	messages []published
	handlers map[string]messagequeue.Handler
	err      error
}

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.messages = append(q.messages, published{Subject: subject, Data: data})
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, subject string, h messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.handlers == nil {
		q.handlers = make(map[string]messagequeue.Handler)
	}
	q.handlers[subject] = h
	return func() {
		q.mu.Lock()
		delete(q.handlers, subject)
		q.mu.Unlock()
	}, nil
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

func (q *mockQueue) subjects() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.messages))
	for _, m := range q.messages {
		out = append(out, m.Subject)
	}
	return out
}

func (q *mockQueue) handler(subject string) messagequeue.Handler {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.handlers[subject]
}

// memCache is an in-memory cache.Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	c.data[key] = value
	c.mu.Unlock()
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	return nil
}

func ptr(s string) *string { return &s }
