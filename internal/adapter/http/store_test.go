package http

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zasterix/zasterix/internal/domain"
	"github.com/zasterix/zasterix/internal/domain/audit"
	"github.com/zasterix/zasterix/internal/domain/coach"
	"github.com/zasterix/zasterix/internal/domain/progress"
	"github.com/zasterix/zasterix/internal/domain/template"
	"github.com/zasterix/zasterix/internal/port/database"
)

var _ database.Store = (*memStore)(nil)

// memStore is a minimal in-memory database.Store for handler tests.
type memStore struct {
	mu        sync.Mutex
	templates []template.AgentTemplate
	audit     []audit.Entry
	progress  []progress.Record
	analyses  []coach.AssetAnalysis
	seq       int
}

func (m *memStore) id(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) ListTemplates(_ context.Context, scope template.Scope) ([]template.AgentTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []template.AgentTemplate{}
	for i := len(m.templates) - 1; i >= 0; i-- {
		if scope.Includes(&m.templates[i]) {
			out = append(out, m.templates[i])
		}
	}
	return out, nil
}

func (m *memStore) GetTemplate(_ context.Context, id string) (*template.AgentTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.templates {
		if m.templates[i].ID == id {
			t := m.templates[i]
			return &t, nil
		}
	}
	return nil, domain.NotFound("template %s", id)
}

func (m *memStore) FindTemplateByKey(_ context.Context, name string, orgID *string) (*template.AgentTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.templates {
		t := m.templates[i]
		sameOrg := (t.OrganizationID == nil) == (orgID == nil) && (orgID == nil || *t.OrganizationID == *orgID)
		if t.Name == name && sameOrg {
			return &t, nil
		}
	}
	return nil, domain.NotFound("template %s", name)
}

func (m *memStore) InsertTemplate(_ context.Context, t *template.AgentTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.id("tpl")
	t.CreatedAt = time.Now()
	m.templates = append(m.templates, *t)
	return nil
}

func (m *memStore) InsertAudit(_ context.Context, e *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.id("hist")
	e.CreatedAt = time.Now()
	m.audit = append(m.audit, *e)
	return nil
}

func (m *memStore) ListAudit(_ context.Context, limit int) ([]audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []audit.Entry{}
	for i := len(m.audit) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.audit[i])
	}
	return out, nil
}

func (m *memStore) UpsertProgress(_ context.Context, key progress.Key) (*progress.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := progress.Record{UserID: key.UserID, StageID: key.StageID, ModuleID: key.ModuleID, CompletedTasks: []string{key.TaskID}, UpdatedAt: time.Now()}
	m.progress = append(m.progress, rec)
	return &rec, nil
}

func (m *memStore) LatestProgress(_ context.Context, userID string) (*progress.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.progress) - 1; i >= 0; i-- {
		if m.progress[i].UserID == userID {
			rec := m.progress[i]
			return &rec, nil
		}
	}
	return nil, domain.NotFound("progress for %s", userID)
}

func (m *memStore) ResetProgress(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.progress[:0]
	for _, rec := range m.progress {
		if rec.UserID != userID {
			kept = append(kept, rec)
		}
	}
	m.progress = kept
	return nil
}

func (m *memStore) InsertAssetAnalysis(_ context.Context, a *coach.AssetAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.id("asset")
	m.analyses = append(m.analyses, *a)
	return nil
}

func (m *memStore) ListAssetAnalyses(_ context.Context, userID string, limit int) ([]coach.AssetAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []coach.AssetAnalysis{}
	for i := len(m.analyses) - 1; i >= 0 && len(out) < limit; i-- {
		if m.analyses[i].UserID == userID {
			out = append(out, m.analyses[i])
		}
	}
	return out, nil
}

// memCache is a map-backed cache.Cache without expiry.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string][]byte)
	}
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}
