package models

// VideoSummary is one normalized search-result row. Missing upstream fields
// are always empty strings so callers can run string operations safely.
type VideoSummary struct {
	ExternalID   string `json:"vod_id"`
	Title        string `json:"vod_name"`
	CoverURL     string `json:"vod_pic"`
	Remarks      string `json:"vod_remarks"`
	CategoryName string `json:"type_name"`
	Year         string `json:"vod_year"`
	SourceCode   string `json:"source_code"`
	SourceName   string `json:"source_name"`
	// APIURL is set only for items coming from a custom source.
	APIURL string `json:"api_url,omitempty"`
}

// VideoDetail is the normalized record for one video on one source.
type VideoDetail struct {
	ExternalID  string `json:"vod_id"`
	Title       string `json:"vod_name"`
	CoverURL    string `json:"vod_pic"`
	Type        string `json:"type"`
	Year        string `json:"year"`
	Area        string `json:"area"`
	Director    string `json:"director"`
	Actor       string `json:"actor"`
	Remarks     string `json:"remarks"`
	Description string `json:"desc"`
	SourceCode  string `json:"source_code"`
	SourceName  string `json:"source_name"`
}

// Episode is one playable entry; Index is its 0-based position in the list.
type Episode struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Index int    `json:"index"`
}

// DetailResponse is returned by the detail endpoint.
type DetailResponse struct {
	Code         int         `json:"code"`
	Message      string      `json:"message"`
	VideoInfo    VideoDetail `json:"videoInfo"`
	Episodes     []Episode   `json:"episodes"`
	EpisodeCount int         `json:"episodeCount"`
}
