package http

import (
	"encoding/json"
	"net/http"

	"github.com/zasterix/zasterix/internal/domain/audit"
	"github.com/zasterix/zasterix/internal/middleware"
)

type recordedResponse struct {
	ID string `json:"id"`
}

// ListHistory handles GET /api/v1/history?limit=
func (h *Handlers) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	entries, err := h.Audit.List(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err, "history not found")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// RecordHistory handles POST /api/v1/history
func (h *Handlers) RecordHistory(w http.ResponseWriter, r *http.Request) {
	who, ok := requireUser(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[struct {
		Payload json.RawMessage `json:"payload"`
		Summary json.RawMessage `json:"summary"`
	}](w, r)
	if !ok {
		return
	}
	id, err := h.Audit.Record(r.Context(), who.UserID, who.OrgPtr(), req.Payload, req.Summary)
	if err != nil {
		writeDomainError(w, err, "history not found")
		return
	}
	writeJSON(w, http.StatusCreated, recordedResponse{ID: id})
}

// RecordRegistrarDecision handles POST /api/v1/history/registrar
func (h *Handlers) RecordRegistrarDecision(w http.ResponseWriter, r *http.Request) {
	who, ok := requireUser(w, r)
	if !ok {
		return
	}
	d, ok := readJSON[audit.RegistrarDecision](w, r)
	if !ok {
		return
	}
	id, err := h.Audit.RecordDecision(r.Context(), who.UserID, who.OrgPtr(), d)
	if err != nil {
		writeDomainError(w, err, "history not found")
		return
	}
	writeJSON(w, http.StatusCreated, recordedResponse{ID: id})
}

// RecordSummary handles POST /api/v1/history/summary
func (h *Handlers) RecordSummary(w http.ResponseWriter, r *http.Request) {
	who, ok := requireUser(w, r)
	if !ok {
		return
	}
	sum, ok := readJSON[audit.ConversationSummary](w, r)
	if !ok {
		return
	}
	id, err := h.Audit.RecordSummary(r.Context(), who.UserID, who.OrgPtr(), sum)
	if err != nil {
		writeDomainError(w, err, "history not found")
		return
	}
	writeJSON(w, http.StatusCreated, recordedResponse{ID: id})
}

// requireUser writes a 401 error when the request carries no resolved user.
func requireUser(w http.ResponseWriter, r *http.Request) (middleware.Identity, bool) {
	who := middleware.IdentityFromContext(r.Context())
	if !who.Resolved() {
		writeError(w, http.StatusUnauthorized, "user identity required")
		return who, false
	}
	return who, true
}
