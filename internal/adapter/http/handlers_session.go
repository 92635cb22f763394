package http

import (
	"net/http"

	"github.com/zasterix/zasterix/internal/middleware"
)

// ListModules handles GET /api/v1/modules
func (h *Handlers) ListModules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Sessions.Modules())
}

// GetModule handles GET /api/v1/modules/{stage}/{module}
func (h *Handlers) GetModule(w http.ResponseWriter, r *http.Request) {
	m, err := h.Sessions.Module(urlParam(r, "stage"), urlParam(r, "module"))
	if err != nil {
		writeDomainError(w, err, "module not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// MountSession handles POST /api/v1/modules/{stage}/{module}/sessions
func (h *Handlers) MountSession(w http.ResponseWriter, r *http.Request) {
	v, err := h.Sessions.Mount(r.Context(), urlParam(r, "stage"), urlParam(r, "module"))
	if err != nil {
		writeDomainError(w, err, "module not found")
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// GetSession handles GET /api/v1/sessions/{id}
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	v, err := h.Sessions.View(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// UnmountSession handles DELETE /api/v1/sessions/{id}
func (h *Handlers) UnmountSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Unmount(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type taskRequest struct {
	TaskID string `json:"task_id"`
}

// CompleteTask handles POST /api/v1/sessions/{id}/complete
func (h *Handlers) CompleteTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[taskRequest](w, r)
	if !ok || !requireField(w, req.TaskID, "task_id") {
		return
	}
	v, err := h.Sessions.Complete(r.Context(), urlParam(r, "id"), req.TaskID)
	if err != nil {
		writeDomainError(w, err, "session or task not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ToggleTask handles POST /api/v1/sessions/{id}/toggle
func (h *Handlers) ToggleTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[taskRequest](w, r)
	if !ok || !requireField(w, req.TaskID, "task_id") {
		return
	}
	v, err := h.Sessions.Toggle(r.Context(), urlParam(r, "id"), req.TaskID)
	if err != nil {
		writeDomainError(w, err, "session or task not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// StepBack handles POST /api/v1/sessions/{id}/back
func (h *Handlers) StepBack(w http.ResponseWriter, r *http.Request) {
	v, err := h.Sessions.Back(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SetInput handles PUT /api/v1/sessions/{id}/inputs/{taskID}
func (h *Handlers) SetInput(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[struct {
		Value string `json:"value"`
	}](w, r)
	if !ok {
		return
	}
	v, err := h.Sessions.SetInput(r.Context(), urlParam(r, "id"), urlParam(r, "taskID"), req.Value)
	if err != nil {
		writeDomainError(w, err, "session or task not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// GetProgress handles GET /api/v1/progress?session=
func (h *Handlers) GetProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Progress.Snapshot(r.Context(), r.URL.Query().Get("session")))
}

// LatestProgress handles GET /api/v1/progress/latest
func (h *Handlers) LatestProgress(w http.ResponseWriter, r *http.Request) {
	who := middleware.IdentityFromContext(r.Context())
	rec, err := h.Progress.Latest(r.Context(), who.UserID)
	if err != nil {
		writeDomainError(w, err, "no progress recorded")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ResetProgress handles DELETE /api/v1/progress
func (h *Handlers) ResetProgress(w http.ResponseWriter, r *http.Request) {
	who := middleware.IdentityFromContext(r.Context())
	if err := h.Progress.Reset(r.Context(), who.UserID); err != nil {
		writeDomainError(w, err, "no progress recorded")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
