package http

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		// Modules and sessions
		r.Get("/modules", h.ListModules)
		r.Get("/modules/{stage}/{module}", h.GetModule)
		r.Post("/modules/{stage}/{module}/sessions", h.MountSession)
		r.Get("/sessions/{id}", h.GetSession)
		r.Delete("/sessions/{id}", h.UnmountSession)
		r.Post("/sessions/{id}/complete", h.CompleteTask)
		r.Post("/sessions/{id}/toggle", h.ToggleTask)
		r.Post("/sessions/{id}/back", h.StepBack)
		r.Put("/sessions/{id}/inputs/{taskID}", h.SetInput)

		// Progress
		r.Get("/progress", h.GetProgress)
		r.Get("/progress/latest", h.LatestProgress)
		r.Delete("/progress", h.ResetProgress)

		// Agent templates
		r.Get("/templates", h.ListTemplates)
		r.Post("/templates", h.CreateTemplate)
		r.Post("/templates/register", h.RegisterTemplate)
		r.Get("/templates/{id}", h.GetTemplate)
		r.Post("/templates/{id}/consult", h.ConsultTemplate)

		// Prompt guard
		r.Post("/guard/scan", h.ScanInput)

		// Coach and tools
		r.Post("/coach/run", h.RunCoach)
		r.Get("/coach/history", h.CoachHistory)
		r.Get("/tools/deeplink", h.BuildDeepLink)
		r.Get("/tools/fees", h.CompareFees)

		// Universal history
		r.Get("/history", h.ListHistory)
		r.Post("/history", h.RecordHistory)
		r.Post("/history/registrar", h.RecordRegistrarDecision)
		r.Post("/history/summary", h.RecordSummary)
	})
}
