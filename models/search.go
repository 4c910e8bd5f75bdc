package models

// SourceStats summarizes one source's contribution to a fan-out call.
// Error is null when the source succeeded.
type SourceStats struct {
	Count     int     `json:"count"`
	Total     int     `json:"total"`
	PageCount int     `json:"pagecount"`
	Error     *string `json:"error"`
}

// SearchResponse is the merged result of a fan-out search. Cached instances
// are shared between requests and must not be mutated.
type SearchResponse struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Query   string                 `json:"query"`
	Page    int                    `json:"page"`
	Total   int                    `json:"total"`
	Count   int                    `json:"count"`
	Sources map[string]SourceStats `json:"sources"`
	List    []VideoSummary         `json:"list"`
}

// TrendingResponse is returned by the trending endpoint.
type TrendingResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Type    string         `json:"type"`
	Total   int            `json:"total"`
	Count   int            `json:"count"`
	List    []VideoSummary `json:"list"`
}
