package upstream

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString accepts a JSON string, number, bool or null. Upstream APIs are
// inconsistent about quoting ids and years.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		*s = ""
		return nil
	}
	*s = FlexString(data)
	return nil
}

func (s FlexString) String() string { return strings.TrimSpace(string(s)) }

// FlexInt accepts a JSON number or a numeric string. Anything else decodes as 0.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	raw := s.String()
	if raw == "" {
		*n = 0
		return nil
	}
	if v, err := strconv.Atoi(raw); err == nil {
		*n = FlexInt(v)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*n = FlexInt(int(f))
		return nil
	}
	*n = 0
	return nil
}

// ListResponse is the envelope shared by the videolist, detail and list
// actions of the vod API.
type ListResponse struct {
	Code      FlexInt    `json:"code"`
	Msg       FlexString `json:"msg"`
	Page      FlexInt    `json:"page"`
	PageCount FlexInt    `json:"pagecount"`
	Total     FlexInt    `json:"total"`
	List      []RawVideo `json:"list"`
}

// RawVideo carries the upstream fields we read. Unknown fields are dropped.
type RawVideo struct {
	VodID       FlexString `json:"vod_id"`
	VodName     FlexString `json:"vod_name"`
	VodPic      FlexString `json:"vod_pic"`
	VodRemarks  FlexString `json:"vod_remarks"`
	TypeName    FlexString `json:"type_name"`
	VodYear     FlexString `json:"vod_year"`
	VodArea     FlexString `json:"vod_area"`
	VodDirector FlexString `json:"vod_director"`
	VodActor    FlexString `json:"vod_actor"`
	VodContent  FlexString `json:"vod_content"`
	VodPlayFrom FlexString `json:"vod_play_from"`
	VodPlayURL  FlexString `json:"vod_play_url"`
}
