package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const (
	ServiceName    = "YouTV API"
	DefaultVersion = "1.0.0"
)

var versionPaths = []string{"version.txt", "/app/version.txt"}

// ResolveVersion reads the first version.txt it finds on fs, falling back to
// DefaultVersion.
func ResolveVersion(fs afero.Fs) string {
	for _, path := range versionPaths {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			continue
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			return v
		}
	}
	return DefaultVersion
}

type ServiceHandler struct {
	version string
	now     func() time.Time
}

func NewServiceHandler(version string) *ServiceHandler {
	if version == "" {
		version = DefaultVersion
	}
	return &ServiceHandler{version: version, now: time.Now}
}

// Health serves /api/health.
func (h *ServiceHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": h.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		"version":   h.version,
		"service":   ServiceName,
	})
}

// Info serves /api/info.
func (h *ServiceHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        ServiceName,
		"version":     h.version,
		"description": "免费在线视频搜索与观看平台 API",
		"endpoints": map[string]string{
			"search":   "/api/search?q=关键词&sources=源代码&page=页码",
			"detail":   "/api/detail?id=视频ID&source=源代码",
			"sources":  "/api/sources",
			"trending": "/api/trending?type=movie|tv&limit=12",
			"health":   "/api/health",
			"streams":  "/api/streams",
			"proxy":    "/proxy/{encodedUrl}",
		},
		"documentation": "https://github.com/youtv/api-docs",
	})
}
