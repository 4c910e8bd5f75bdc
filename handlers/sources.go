package handlers

import (
	"net/http"

	"youtv/models"
)

// SourceCatalog lists the registered sources.
type SourceCatalog interface {
	ListAll() map[string]models.UpstreamSource
	ListNormal() map[string]models.UpstreamSource
	ListAdult() map[string]models.UpstreamSource
}

// HealthReporter exposes the most recent probe results.
type HealthReporter interface {
	FreshStatuses() []models.HealthStatus
}

type SourcesHandler struct {
	catalog SourceCatalog
	health  HealthReporter
}

func NewSourcesHandler(catalog SourceCatalog, health HealthReporter) *SourcesHandler {
	return &SourcesHandler{catalog: catalog, health: health}
}

// List serves /api/sources. Adult sources are only included with
// includeAdult=true.
func (h *SourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("includeAdult") == "true" {
		h.write(w, h.catalog.ListAll())
		return
	}
	h.write(w, h.catalog.ListNormal())
}

func (h *SourcesHandler) Normal(w http.ResponseWriter, r *http.Request) {
	h.write(w, h.catalog.ListNormal())
}

func (h *SourcesHandler) Adult(w http.ResponseWriter, r *http.Request) {
	h.write(w, h.catalog.ListAdult())
}

// Health serves /api/sources/health. Entries older than the freshness window
// are left out.
func (h *SourcesHandler) Health(w http.ResponseWriter, r *http.Request) {
	statuses := h.health.FreshStatuses()
	healthy := 0
	for _, st := range statuses {
		if st.Status == models.HealthHealthy {
			healthy++
		}
	}
	writeJSON(w, http.StatusOK, models.HealthReport{
		Code:         200,
		Statuses:     statuses,
		HealthyCount: healthy,
		Count:        len(statuses),
	})
}

func (h *SourcesHandler) write(w http.ResponseWriter, list map[string]models.UpstreamSource) {
	if list == nil {
		list = map[string]models.UpstreamSource{}
	}
	writeJSON(w, http.StatusOK, models.SourcesResponse{
		Code:    200,
		Message: "Success",
		Sources: list,
		Count:   len(list),
	})
}
