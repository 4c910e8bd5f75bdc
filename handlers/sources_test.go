package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"youtv/models"
	"youtv/services/sources"
)

type healthStub []models.HealthStatus

func (h healthStub) FreshStatuses() []models.HealthStatus { return h }

func TestSourcesHandler_List(t *testing.T) {
	registry := sources.NewRegistry([]models.UpstreamSource{
		{Code: "a", Name: "A", BaseURL: "https://a.example/api"},
		{Code: "x", Name: "X", BaseURL: "https://x.example/api", IsAdult: true},
	})
	h := NewSourcesHandler(registry, healthStub(nil))

	tests := []struct {
		name   string
		target string
		call   http.HandlerFunc
		want   []string
	}{
		{"default hides adult", "/api/sources", h.List, []string{"a"}},
		{"include adult", "/api/sources?includeAdult=true", h.List, []string{"a", "x"}},
		{"normal", "/api/sources/normal", h.Normal, []string{"a"}},
		{"adult", "/api/sources/adult", h.Adult, []string{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.call(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			var resp models.SourcesResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Count != len(tt.want) || len(resp.Sources) != len(tt.want) {
				t.Fatalf("expected %v, got %+v", tt.want, resp.Sources)
			}
			for _, code := range tt.want {
				if _, ok := resp.Sources[code]; !ok {
					t.Fatalf("missing %s in %+v", code, resp.Sources)
				}
			}
		})
	}
}

func TestSourcesHandler_Health(t *testing.T) {
	now := time.Now()
	h := NewSourcesHandler(sources.NewRegistry(nil), healthStub{
		{Code: "a", Status: models.HealthHealthy, LastCheckedAt: now},
		{Code: "b", Status: models.HealthUnhealthy, LastCheckedAt: now, LastError: "timeout"},
	})
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/api/sources/health", nil))

	var report models.HealthReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if report.Count != 2 || report.HealthyCount != 1 || report.Statuses[1].LastError != "timeout" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestSourcesHandler_EmptyCatalogEncodesObject(t *testing.T) {
	h := NewSourcesHandler(sources.NewRegistry(nil), healthStub(nil))
	rec := httptest.NewRecorder()
	h.Adult(rec, httptest.NewRequest(http.MethodGet, "/api/sources/adult", nil))

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if string(raw["sources"]) != "{}" {
		t.Fatalf("expected empty object, got %s", raw["sources"])
	}
}
