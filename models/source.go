package models

import "strings"

// CustomSourcePrefix marks request-scoped sources supplied by the caller.
const CustomSourcePrefix = "custom_"

// UpstreamSource describes one registered third-party vod API.
type UpstreamSource struct {
	Code    string `json:"-"`
	Name    string `json:"name"`
	BaseURL string `json:"api"`
	IsAdult bool   `json:"adult"`
}

// CustomSource is a caller-supplied source definition. It lives only for the
// duration of the request that carried it.
type CustomSource struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	DetailURL string `json:"detail,omitempty"`
	IsAdult   bool   `json:"isAdult,omitempty"`
}

// IsCustomSourceCode reports whether code refers to a request-scoped custom source.
func IsCustomSourceCode(code string) bool {
	return strings.HasPrefix(code, CustomSourcePrefix)
}

// SourcesResponse is returned by the catalog listing endpoints.
type SourcesResponse struct {
	Code    int                       `json:"code"`
	Message string                    `json:"message"`
	Sources map[string]UpstreamSource `json:"sources"`
	Count   int                       `json:"count"`
}
