package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/zasterix/zasterix/internal/domain"
	"github.com/zasterix/zasterix/internal/domain/template"
)

// maxTasks bounds the in-memory task store; the oldest entries are evicted.
const maxTasks = 1000

// Specialists is the subset of the template service the A2A endpoints need.
type Specialists interface {
	List(ctx context.Context, scope template.Scope) ([]template.AgentTemplate, error)
	Consult(ctx context.Context, orgID, templateID, context string) (*template.Consultation, error)
}

// Handler serves the A2A protocol endpoints.
type Handler struct {
	baseURL     string
	specialists Specialists
	mu          sync.RWMutex
	tasks       map[string]*TaskResponse
	order       []string
}

// NewHandler creates an A2A handler.
func NewHandler(baseURL string, specialists Specialists) *Handler {
	return &Handler{
		baseURL:     baseURL,
		specialists: specialists,
		tasks:       make(map[string]*TaskResponse),
	}
}

// MountRoutes registers A2A routes on the given chi router.
// These are mounted at the root level, not under /api/v1.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/.well-known/agent.json", h.handleAgentCard)
	r.Post("/a2a/tasks", h.handleCreateTask)
	r.Get("/a2a/tasks/{id}", h.handleGetTask)
}

func (h *Handler) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	templates, err := h.specialists.List(r.Context(), template.GlobalScope())
	if err != nil {
		// The card stays discoverable without a store; it lists no skills.
		slog.Warn("a2a agent card without skills", "error", err)
		templates = nil
	}
	writeJSON(w, http.StatusOK, BuildAgentCard(h.baseURL, templates))
}

func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.ID == "" || req.Skill == "" {
		http.Error(w, `{"error":"id and skill are required"}`, http.StatusBadRequest)
		return
	}

	resp := &TaskResponse{ID: req.ID}
	c, err := h.specialists.Consult(r.Context(), "", req.Skill, req.Input.Context)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, `{"error":"skill not found"}`, http.StatusNotFound)
		return
	case err != nil:
		resp.Status = "failed"
		resp.Error = err.Error()
	case c.Blocked:
		resp.Status = "rejected"
		resp.Output = &TaskOutput{AgentName: c.AgentName, Warning: c.Warning, Reasons: c.Reasons}
	default:
		resp.Status = "completed"
		resp.Output = &TaskOutput{AgentName: c.AgentName, Response: c.Response}
	}

	h.store(resp)
	slog.Info("a2a task handled", "id", req.ID, "skill", req.Skill, "status", resp.Status)
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.RLock()
	resp, ok := h.tasks[id]
	h.mu.RUnlock()

	if !ok {
		http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) store(resp *TaskResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.tasks[resp.ID]; !exists {
		h.order = append(h.order, resp.ID)
	}
	h.tasks[resp.ID] = resp
	for len(h.order) > maxTasks {
		delete(h.tasks, h.order[0])
		h.order = h.order[1:]
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
