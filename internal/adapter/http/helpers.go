package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zasterix/zasterix/internal/domain"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return v, false
	}
	return v, true
}

// urlParam is a short alias for chi.URLParam.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// requireField writes a 400 error and returns false when value is blank.
func requireField(w http.ResponseWriter, value, fieldName string) bool {
	if strings.TrimSpace(value) == "" {
		writeError(w, http.StatusBadRequest, fieldName+" is required")
		return false
	}
	return true
}

// queryInt parses an optional integer query parameter. Absent values yield 0.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return n, true
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

// Error kinds reported next to the message.
const (
	kindConfiguration = "configuration"
	kindPersistence   = "persistence"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// domainStatus maps sentinel errors to responses, checked in order. An empty
// message means the handler supplies it.
var domainStatus = []struct {
	target  error
	status  int
	message string
	kind    string
}{
	{domain.ErrNotFound, http.StatusNotFound, "", ""},
	{domain.ErrConflict, http.StatusConflict, "resource already exists", ""},
	{domain.ErrValidation, http.StatusBadRequest, "", ""},
	{domain.ErrNotConfigured, http.StatusServiceUnavailable, "store not configured", kindConfiguration},
	{domain.ErrPersistence, http.StatusBadGateway, "store request failed", kindPersistence},
}

// writeDomainError answers err with the status of its sentinel. notFoundMsg
// is the message for domain.ErrNotFound; validation errors carry their own.
func writeDomainError(w http.ResponseWriter, err error, notFoundMsg string) {
	for _, m := range domainStatus {
		if !errors.Is(err, m.target) {
			continue
		}
		msg := m.message
		switch m.target {
		case domain.ErrNotFound:
			msg = notFoundMsg
		case domain.ErrValidation:
			msg = strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
		}
		if m.status >= http.StatusInternalServerError {
			slog.Error("store request failed", "status", m.status, "error", err)
		}
		writeJSON(w, m.status, errorResponse{Error: msg, Kind: m.kind})
		return
	}
	slog.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
