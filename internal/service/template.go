// Package service implements business logic on top of ports.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	zotel "github.com/zasterix/zasterix/internal/adapter/otel"
	"github.com/zasterix/zasterix/internal/adapter/ws"
	"github.com/zasterix/zasterix/internal/domain"
	"github.com/zasterix/zasterix/internal/domain/audit"
	"github.com/zasterix/zasterix/internal/domain/guard"
	"github.com/zasterix/zasterix/internal/domain/template"
	"github.com/zasterix/zasterix/internal/middleware"
	"github.com/zasterix/zasterix/internal/port/broadcast"
	"github.com/zasterix/zasterix/internal/port/cache"
	"github.com/zasterix/zasterix/internal/port/database"
	"github.com/zasterix/zasterix/internal/port/messagequeue"
)

const (
	templateGenKey  = "templates:gen"
	templateListKey = "templates:%s:scope:%s"
	seedConcurrency = 4
)

// DispatchRecorder appends technical dispatches to the history.
type DispatchRecorder interface {
	RecordDispatch(ctx context.Context, userID string, orgID *string, d audit.TechnicalDispatch) (string, error)
}

// TemplateService implements the agent template registry.
type TemplateService struct {
	store    database.Store
	cache    cache.Cache
	cacheTTL time.Duration
	hub      broadcast.Broadcaster
	queue    messagequeue.Queue
	metrics  *zotel.Metrics
	history  DispatchRecorder
	group    singleflight.Group
	now      func() time.Time
}

// NewTemplateService creates a TemplateService. c may be nil to disable
// list caching.
func NewTemplateService(store database.Store, c cache.Cache, cacheTTL time.Duration) *TemplateService {
	return &TemplateService{
		store:    store,
		cache:    c,
		cacheTTL: cacheTTL,
		hub:      broadcast.Nop{},
		now:      time.Now,
	}
}

// SetBroadcaster sets the realtime event sink.
func (s *TemplateService) SetBroadcaster(b broadcast.Broadcaster) { s.hub = b }

// SetQueue sets the optional message queue for templates.created events.
func (s *TemplateService) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetMetrics sets the metric instruments.
func (s *TemplateService) SetMetrics(m *zotel.Metrics) { s.metrics = m }

// SetHistory sets where answered consultations of resolved users are
// recorded as technical dispatches.
func (s *TemplateService) SetHistory(h DispatchRecorder) { s.history = h }

// List returns the templates selected by scope, newest first. Concurrent
// calls for the same scope share one store query.
func (s *TemplateService) List(ctx context.Context, scope template.Scope) ([]template.AgentTemplate, error) {
	key := fmt.Sprintf(templateListKey, s.generation(ctx), scope)
	if s.cache != nil {
		cached, ok, err := cache.GetJSON[[]template.AgentTemplate](ctx, s.cache, key)
		if err != nil {
			slog.WarnContext(ctx, "template cache read failed", "error", err)
		}
		if ok {
			return cached, nil
		}
	}

	v, err, _ := s.group.Do("list:"+key, func() (any, error) {
		list, err := s.store.ListTemplates(ctx, scope)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := cache.SetJSON(ctx, s.cache, key, list, s.cacheTTL); err != nil {
				slog.WarnContext(ctx, "template cache write failed", "error", err)
			}
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]template.AgentTemplate), nil
}

// Get returns one template if it is visible to orgID.
func (s *TemplateService) Get(ctx context.Context, orgID, id string) (*template.AgentTemplate, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.VisibleTo(orgID) {
		return nil, domain.NotFound("template %s", id)
	}
	return t, nil
}

// Create derives a template from a task description and overrides and stores it.
func (s *TemplateService) Create(ctx context.Context, task string, o template.Overrides) (*template.AgentTemplate, error) {
	t := template.Build(task, o)
	if err := s.store.InsertTemplate(ctx, &t); err != nil {
		return nil, domain.Persistence("create template", err)
	}
	s.invalidate(ctx)
	s.metrics.Inc(ctx, zotel.TemplatesCreated, attribute.String("category", t.Category))

	to := broadcast.Audience{}
	if t.OrganizationID != nil {
		to.OrganizationID = *t.OrganizationID
	}
	s.hub.BroadcastEvent(ctx, to, ws.EventTemplateCreated, ws.TemplateCreatedEvent{
		TemplateID: t.ID, Name: t.Name, Category: t.Category,
	})
	publish(ctx, s.queue, messagequeue.SubjectTemplateCreated, messagequeue.TemplateCreatedPayload{
		TemplateID: t.ID, Name: t.Name, OrganizationID: t.OrganizationID,
	})

	slog.InfoContext(ctx, "template created", "id", t.ID, "name", t.Name)
	return &t, nil
}

// RegisterIfAbsent creates the seed unless a template with the same
// (name, organization) key exists. Concurrent registrations of one key in
// this process share a single lookup and insert, and see the same result.
func (s *TemplateService) RegisterIfAbsent(ctx context.Context, seed template.Seed) (*template.AgentTemplate, bool, error) {
	if err := seed.Validate(); err != nil {
		return nil, false, domain.Validation("%v", err)
	}

	org := ""
	if seed.OrganizationID != nil {
		org = *seed.OrganizationID
	}
	type result struct {
		t       *template.AgentTemplate
		created bool
	}

	v, err, _ := s.group.Do("register:"+seed.Name+"\x00"+strconv.FormatBool(seed.OrganizationID != nil)+org, func() (any, error) {
		existing, err := s.store.FindTemplateByKey(ctx, seed.Name, seed.OrganizationID)
		switch {
		case err == nil:
			return result{t: existing}, nil
		case !errors.Is(err, domain.ErrNotFound):
			return nil, domain.Persistence("lookup template", err)
		}
		created, err := s.Create(ctx, seed.Name, seed.Overrides())
		if err != nil {
			return nil, err
		}
		return result{t: created, created: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	r := v.(result)
	return r.t, r.created, nil
}

// Consult runs a specialist consultation. The template must be visible to
// orgID. A context blocked by the prompt guard yields a blocked consultation
// without response, not an error.
func (s *TemplateService) Consult(ctx context.Context, orgID, templateID, input string) (*template.Consultation, error) {
	ctx, span := zotel.StartConsultSpan(ctx, templateID)
	c, err := s.consult(ctx, orgID, templateID, input)
	zotel.EndSpan(span, err)
	return c, err
}

func (s *TemplateService) consult(ctx context.Context, orgID, templateID, input string) (*template.Consultation, error) {
	t, err := s.Get(ctx, orgID, templateID)
	if err != nil {
		return nil, err
	}

	res := guard.Scan(input)
	c := &template.Consultation{
		TemplateID: t.ID,
		AgentName:  t.Name,
		Context:    input,
		Blocked:    res.Blocked,
		Warning:    res.Warning,
		Reasons:    res.Reasons,
	}
	s.metrics.Inc(ctx, zotel.Consultations, attribute.Bool("blocked", res.Blocked))
	if res.Blocked {
		s.metrics.Inc(ctx, zotel.GuardBlocked, attribute.String("source", "consult"))
		slog.WarnContext(ctx, "consultation blocked", "template_id", t.ID, "score", res.Score)
		return c, nil
	}

	c.Response = guard.ApplyOutputGuard(template.RenderConsultation(t, input))
	s.recordDispatch(ctx, t, input)
	return c, nil
}

// Seed registers the well-known global templates and returns how many were created.
func (s *TemplateService) Seed(ctx context.Context) (int, error) {
	seeds := template.WellKnownSeeds()
	created := make([]bool, len(seeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(seedConcurrency)
	for i, seed := range seeds {
		g.Go(func() error {
			_, ok, err := s.RegisterIfAbsent(gctx, seed)
			if err != nil {
				return fmt.Errorf("seed %q: %w", seed.Name, err)
			}
			created[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	n := 0
	for _, ok := range created {
		if ok {
			n++
		}
	}
	return n, nil
}

// generation returns the list cache generation. A new generation is written
// on every create so stale list entries are never read again.
func (s *TemplateService) generation(ctx context.Context) string {
	if s.cache == nil {
		return "0"
	}
	gen, ok, err := s.cache.Get(ctx, templateGenKey)
	if err != nil || !ok {
		return "0"
	}
	return string(gen)
}

func (s *TemplateService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	gen := strconv.FormatInt(s.now().UnixNano(), 36)
	// No TTL: the generation must outlive every list entry.
	if err := s.cache.Set(ctx, templateGenKey, []byte(gen), 0); err != nil {
		slog.WarnContext(ctx, "template cache invalidation failed", "error", err)
	}
}

// publish sends v on subject when a queue is configured. Failures are logged.
func publish(ctx context.Context, q messagequeue.Queue, subject string, v any) {
	if q == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.ErrorContext(ctx, "marshal event", "subject", subject, "error", err)
		return
	}
	if err := q.Publish(ctx, subject, data); err != nil {
		slog.WarnContext(ctx, "publish event failed", "subject", subject, "error", err)
	}
}

// recordDispatch appends the consultation to the caller's history. Anonymous
// callers and blank tasks are not recorded; a failed write is logged only.
func (s *TemplateService) recordDispatch(ctx context.Context, t *template.AgentTemplate, task string) {
	who := middleware.IdentityFromContext(ctx)
	if s.history == nil || !who.Resolved() || strings.TrimSpace(task) == "" {
		return
	}
	d := audit.TechnicalDispatch{TemplateID: t.ID, AgentName: t.Name, Task: task}
	if _, err := s.history.RecordDispatch(ctx, who.UserID, who.OrgPtr(), d); err != nil {
		slog.WarnContext(ctx, "dispatch not recorded", "template_id", t.ID, "error", err)
	}
}
