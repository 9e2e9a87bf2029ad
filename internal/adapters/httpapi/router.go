package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"troubledesk/internal/usecase/incident"
	"troubledesk/internal/usecase/parameter"
)

const (
	maxJSONBody      = 1 << 20
	multipartMemory  = 8 << 20
	multipartOverrun = 1 << 20
)

type Handler struct {
	incidents *incident.Service
	params    *parameter.Service
	loc       *time.Location
}

func NewRouter(incidents *incident.Service, params *parameter.Service, loc *time.Location) http.Handler {
	if loc == nil {
		loc = time.UTC
	}
	h := &Handler{incidents: incidents, params: params, loc: loc}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Observe)

	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(Actor)

		api.Get("/incidents", h.handleListIncidents)
		api.Post("/incidents", h.handleCreateIncident)
		api.Get("/incidents/{id}", h.handleGetIncident)
		api.Delete("/incidents/{id}", h.handleDeleteIncident)
		api.Patch("/incidents/{id}", h.handlePatchIncident)
		api.Put("/incidents/{id}/first", h.handleUpdateFirst)
		api.Post("/incidents/{id}/second", h.handleCreateSecond)
		api.Put("/incidents/{id}/second", h.handleUpdateSecond)
		api.Post("/incidents/{id}/third", h.handleCreateThird)
		api.Put("/incidents/{id}/third", h.handleUpdateThird)
		api.Get("/incidents/{id}/files", h.handleListFiles)
		api.Post("/incidents/{id}/files", h.handleAddFile)

		api.Get("/files/{fileID}", h.handleGetFile)
		api.Delete("/files/{fileID}", h.handleDeleteFile)

		api.Get("/export", h.handleExport)
		api.Get("/dashboard", h.handleDashboard)
		api.Get("/dashboard/stream", h.handleDashboardStream)

		api.Get("/parameters", h.handleListParameters)
		api.Put("/parameters/{key}", h.handleSetParameter)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
