package http

import (
	"net/http"

	"github.com/zasterix/zasterix/internal/domain/guard"
	"github.com/zasterix/zasterix/internal/domain/template"
	"github.com/zasterix/zasterix/internal/middleware"
)

// ListTemplates handles GET /api/v1/templates?scope=&category=
// The scope is narrowed to the caller's organization; naming another
// organization is answered like a missing one.
func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	who := middleware.IdentityFromContext(r.Context())
	scope, ok := template.ParseScope(q.Get("scope")).Within(who.OrganizationID)
	if !ok {
		writeError(w, http.StatusNotFound, "organization not found")
		return
	}
	list, err := h.Templates.List(r.Context(), scope)
	if err != nil {
		writeDomainError(w, err, "templates not found")
		return
	}
	if category := q.Get("category"); category != "" {
		filtered := make([]template.AgentTemplate, 0, len(list))
		for i := range list {
			if list[i].InCategory(category) {
				filtered = append(filtered, list[i])
			}
		}
		list = filtered
	}
	writeJSON(w, http.StatusOK, list)
}

type createTemplateRequest struct {
	Task      string             `json:"task"`
	Overrides template.Overrides `json:"overrides"`
}

// CreateTemplate handles POST /api/v1/templates
func (h *Handlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[createTemplateRequest](w, r)
	if !ok {
		return
	}
	org, ok := callerOrganization(w, r, req.Overrides.OrganizationID)
	if !ok {
		return
	}
	req.Overrides.OrganizationID = org
	t, err := h.Templates.Create(r.Context(), req.Task, req.Overrides)
	if err != nil {
		writeDomainError(w, err, "template not found")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// RegisterTemplate handles POST /api/v1/templates/register
func (h *Handlers) RegisterTemplate(w http.ResponseWriter, r *http.Request) {
	seed, ok := readJSON[template.Seed](w, r)
	if !ok {
		return
	}
	// A seed without an organization registers a global template.
	if seed.OrganizationID != nil {
		if seed.OrganizationID, ok = callerOrganization(w, r, seed.OrganizationID); !ok {
			return
		}
	}
	t, created, err := h.Templates.RegisterIfAbsent(r.Context(), seed)
	if err != nil {
		writeDomainError(w, err, "template not found")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, t)
}

// callerOrganization resolves the owner of a template written by the caller.
// A nil requested owner defaults to the caller's organization; any other
// organization is rejected with 400.
func callerOrganization(w http.ResponseWriter, r *http.Request, requested *string) (*string, bool) {
	who := middleware.IdentityFromContext(r.Context())
	if requested == nil {
		return who.OrgPtr(), true
	}
	if *requested == "" || *requested != who.OrganizationID {
		writeError(w, http.StatusBadRequest, "organization_id must match the caller's organization")
		return nil, false
	}
	return requested, true
}

// GetTemplate handles GET /api/v1/templates/{id}
func (h *Handlers) GetTemplate(w http.ResponseWriter, r *http.Request) {
	who := middleware.IdentityFromContext(r.Context())
	t, err := h.Templates.Get(r.Context(), who.OrganizationID, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "template not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ConsultTemplate handles POST /api/v1/templates/{id}/consult
func (h *Handlers) ConsultTemplate(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[struct {
		Context string `json:"context"`
	}](w, r)
	if !ok {
		return
	}
	who := middleware.IdentityFromContext(r.Context())
	c, err := h.Templates.Consult(r.Context(), who.OrganizationID, urlParam(r, "id"), req.Context)
	if err != nil {
		writeDomainError(w, err, "template not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ScanInput handles POST /api/v1/guard/scan
func (h *Handlers) ScanInput(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[struct {
		Input string `json:"input"`
	}](w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, guard.Scan(req.Input))
}
