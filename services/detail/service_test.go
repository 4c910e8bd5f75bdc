package detail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"youtv/internal/cache"
	"youtv/internal/upstream"
	"youtv/models"
	"youtv/services/sources"
	"youtv/utils"
)

func TestParseEpisodes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []models.Episode
	}{
		{
			name:  "named episodes",
			input: "第1集$http://x/1.m3u8#第2集$http://x/2.m3u8",
			want: []models.Episode{
				{Name: "第1集", URL: "http://x/1.m3u8", Index: 0},
				{Name: "第2集", URL: "http://x/2.m3u8", Index: 1},
			},
		},
		{
			name:  "entry without separator",
			input: "http://x/movie.m3u8",
			want:  []models.Episode{{Name: "http://x/movie.m3u8", URL: "http://x/movie.m3u8", Index: 0}},
		},
		{
			name:  "empty entries dropped",
			input: "#A$http://x/a##  #B$http://x/b#",
			want: []models.Episode{
				{Name: "A", URL: "http://x/a", Index: 0},
				{Name: "B", URL: "http://x/b", Index: 1},
			},
		},
		{
			name:  "missing name gets a default",
			input: "$http://x/1#$http://x/2",
			want: []models.Episode{
				{Name: "第1集", URL: "http://x/1", Index: 0},
				{Name: "第2集", URL: "http://x/2", Index: 1},
			},
		},
		{
			name:  "mirrors flattened in order",
			input: "HD$http://a/1#HD2$http://a/2$$$SD$http://b/1",
			want: []models.Episode{
				{Name: "HD", URL: "http://a/1", Index: 0},
				{Name: "HD2", URL: "http://a/2", Index: 1},
				{Name: "SD", URL: "http://b/1", Index: 2},
			},
		},
		{
			// Every mirror keeps all of its episodes; the "$$$" boundary never
			// merges the last entry of one mirror into the first of the next.
			name:  "repeated names across mirrors are kept",
			input: "A$u1#B$u2$$$A$m1#B$m2",
			want: []models.Episode{
				{Name: "A", URL: "u1", Index: 0},
				{Name: "B", URL: "u2", Index: 1},
				{Name: "A", URL: "m1", Index: 2},
				{Name: "B", URL: "m2", Index: 3},
			},
		},
		{name: "empty", input: "", want: []models.Episode{}},
		{name: "only separators", input: "$#$", want: []models.Episode{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseEpisodes(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d episodes %+v, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("episode %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	registry := sources.NewRegistry([]models.UpstreamSource{{Code: "bfzy", Name: "暴风影视", BaseURL: srv.URL}})
	client := upstream.NewClient(upstream.Options{Timeout: 100 * time.Millisecond})
	return NewService(registry, client, cache.New[*models.DetailResponse](200), utils.URLPolicy{}), &calls
}

func TestDetailSuccessAndCache(t *testing.T) {
	svc, calls := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ac") != "detail" || r.URL.Query().Get("ids") != "42" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"list":[{"vod_id":42,"vod_name":"片","vod_year":"2023","vod_play_url":"第1集$http://x/1.m3u8#第2集$http://x/2.m3u8"}]}`)
	})

	resp, err := svc.Detail(context.Background(), Request{ID: "42", Source: "bfzy"})
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if resp.EpisodeCount != 2 || len(resp.Episodes) != 2 {
		t.Fatalf("episodes = %d", resp.EpisodeCount)
	}
	info := resp.VideoInfo
	if info.SourceName != "暴风影视" || info.Description != "暂无简介" || info.Type != "未知" || info.Year != "2023" {
		t.Fatalf("videoInfo = %+v", info)
	}

	if _, err := svc.Detail(context.Background(), Request{ID: "42", Source: "bfzy"}); err != nil {
		t.Fatalf("second Detail: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want cached second call", calls.Load())
	}
}

func TestDetailErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{"empty list", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{"list":[]}`) }, models.ErrNotFound},
		{"no list", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{"code":0}`) }, models.ErrNotFound},
		{"upstream 404", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }, models.ErrNotFound},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}, models.ErrTimeout},
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }, models.ErrTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, tt.handler)
			_, err := svc.Detail(context.Background(), Request{ID: "1", Source: "bfzy"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDetailValidation(t *testing.T) {
	svc, calls := newTestService(t, func(w http.ResponseWriter, r *http.Request) {})
	policy := utils.URLPolicy{BlockedHosts: []string{"localhost"}}
	svc.policy = policy

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"bad id", Request{ID: "1;drop", Source: "bfzy"}, ErrInvalidID},
		{"long id", Request{ID: strings.Repeat("a", 51), Source: "bfzy"}, ErrInvalidID},
		{"bad source", Request{ID: "1", Source: "bf zy"}, ErrInvalidSource},
		{"unknown source", Request{ID: "1", Source: "nope"}, ErrUnknownSource},
		{"custom without api", Request{ID: "1", Source: "custom_0"}, ErrInvalidCustomAPI},
		{"custom blocked", Request{ID: "1", Source: "custom_0", CustomAPI: "http://localhost/api"}, ErrInvalidCustomAPI},
		{"custom detail blocked", Request{ID: "1", Source: "custom_0", CustomAPI: "https://ok.example/api", CustomDetail: "ftp://x"}, ErrInvalidCustomAPI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Detail(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, models.ErrValidation) {
				t.Fatalf("err = %v is not a validation error", err)
			}
		})
	}
	if calls.Load() != 0 {
		t.Fatalf("validation failures must not reach upstream, calls = %d", calls.Load())
	}
}

func TestDetailCustomSourcePrefersDetailURL(t *testing.T) {
	var hits atomic.Int32
	detailSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"list":[{"vod_id":"9","vod_name":"custom","vod_play_url":"http://x/only.m3u8"}]}`)
	}))
	defer detailSrv.Close()

	svc, baseCalls := newTestService(t, func(w http.ResponseWriter, r *http.Request) {})
	req := Request{ID: "9", Source: "custom_0", CustomAPI: "https://unused.example/api", CustomDetail: detailSrv.URL}

	for i := 0; i < 2; i++ {
		resp, err := svc.Detail(context.Background(), req)
		if err != nil {
			t.Fatalf("Detail: %v", err)
		}
		if resp.VideoInfo.SourceName != "自定义源" || resp.Episodes[0].Name != "http://x/only.m3u8" {
			t.Fatalf("resp = %+v", resp)
		}
	}
	if hits.Load() != 2 {
		t.Fatalf("custom details must not be cached, hits = %d", hits.Load())
	}
	if baseCalls.Load() != 0 {
		t.Fatalf("registered source should not be called")
	}
}
