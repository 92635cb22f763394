package http

import (
	"net/http"
	"strconv"

	"github.com/zasterix/zasterix/internal/domain/coach"
	"github.com/zasterix/zasterix/internal/domain/tool"
)

// RunCoach handles POST /api/v1/coach/run
func (h *Handlers) RunCoach(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[coach.Request](w, r)
	if !ok || !requireField(w, req.Input, "input") {
		return
	}
	run, err := h.Coach.Run(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "coach run failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// CoachHistory handles GET /api/v1/coach/history
func (h *Handlers) CoachHistory(w http.ResponseWriter, r *http.Request) {
	who, ok := requireUser(w, r)
	if !ok {
		return
	}
	list, err := h.Coach.History(r.Context(), who.UserID)
	if err != nil {
		writeDomainError(w, err, "no analyses recorded")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type deepLinkResponse struct {
	URL string `json:"url"`
}

// BuildDeepLink handles GET /api/v1/tools/deeplink?action=&amount=&currency=
func (h *Handlers) BuildDeepLink(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := tool.Params{Action: tool.Action(q.Get("action")), Currency: q.Get("currency")}
	if raw := q.Get("amount"); raw != "" {
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "amount must be a number")
			return
		}
		p.Amount = &amount
	}

	connector, ok := h.Tools.Lookup(tool.IDYuhConnector)
	if !ok {
		writeError(w, http.StatusNotFound, "tool not found")
		return
	}
	if err := connector.Validate(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	link := tool.DeepLink{Action: p.Action, Amount: p.Amount, Currency: p.Currency}
	writeJSON(w, http.StatusOK, deepLinkResponse{URL: tool.BuildDeepLink(h.DeepLinkScheme, link)})
}

// CompareFees handles GET /api/v1/tools/fees?amount=
// A missing or unparsable amount falls back to the coach default.
func (h *Handlers) CompareFees(w http.ResponseWriter, r *http.Request) {
	amount := tool.ParseAmount(r.URL.Query().Get("amount"))
	if amount <= 0 {
		amount = float64(coach.DefaultAmountCHF)
	}
	writeJSON(w, http.StatusOK, tool.CompareFees(amount))
}
