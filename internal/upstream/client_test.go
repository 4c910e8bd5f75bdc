package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"youtv/models"
)

func newTestClient(timeout time.Duration) *Client {
	return NewClient(Options{Timeout: timeout, RetryDelay: 0, UserAgent: "youtv-test"})
}

func TestFetchListDecodesFlexibleFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "youtv-test" {
			t.Errorf("User-Agent = %q", got)
		}
		if got := r.URL.Query().Get("ac"); got != "videolist" {
			t.Errorf("ac = %q", got)
		}
		fmt.Fprint(w, `{"code":1,"total":"42","pagecount":3,"list":[{"vod_id":101,"vod_name":"流浪地球","vod_year":2019,"type_name":null}]}`)
	}))
	defer srv.Close()

	resp, err := newTestClient(time.Second).FetchList(context.Background(), SearchURL(srv.URL, "流浪地球", 1))
	if err != nil {
		t.Fatalf("FetchList: %v", err)
	}
	if resp.Total != 42 || resp.PageCount != 3 {
		t.Fatalf("total/pagecount = %d/%d", resp.Total, resp.PageCount)
	}
	if len(resp.List) != 1 {
		t.Fatalf("list len = %d", len(resp.List))
	}
	v := resp.List[0]
	if v.VodID.String() != "101" || v.VodYear.String() != "2019" || v.TypeName.String() != "" {
		t.Fatalf("unexpected row %+v", v)
	}
}

func TestFetchListRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"list":[]}`)
	}))
	defer srv.Close()

	resp, err := newTestClient(time.Second).FetchList(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchList: %v", err)
	}
	if len(resp.List) != 0 {
		t.Fatalf("expected empty list")
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestFetchListTimeoutExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := newTestClient(20*time.Millisecond).FetchList(context.Background(), srv.URL)
	if !errors.Is(err, models.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestFetchListOnceDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(time.Second).FetchListOnce(context.Background(), srv.URL)
	if !errors.Is(err, models.ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected StatusError 502, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestFetchListFormatErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"missing list", http.StatusOK, `{"code":1,"msg":"ok"}`, models.ErrInvalidFormat},
		{"null list", http.StatusOK, `{"list":null}`, models.ErrInvalidFormat},
		{"not json", http.StatusOK, `<html>blocked</html>`, models.ErrInvalidFormat},
		{"404 html", http.StatusNotFound, `not here`, models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestClient(time.Second).FetchList(context.Background(), srv.URL)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if calls.Load() != 1 {
				t.Fatalf("format errors must not be retried, calls = %d", calls.Load())
			}
		})
	}
}

func TestFetchListParsesClientErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"list":[{"vod_id":"7","vod_name":"x"}]}`)
	}))
	defer srv.Close()

	resp, err := newTestClient(time.Second).FetchList(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchList: %v", err)
	}
	if len(resp.List) != 1 {
		t.Fatalf("list len = %d", len(resp.List))
	}
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		healthy bool
	}{
		{"json object", http.StatusOK, `{"code":1}`, true},
		{"plain text", http.StatusOK, `ok`, true},
		{"empty body", http.StatusOK, ``, false},
		{"json null", http.StatusOK, "null\n", false},
		{"broken json", http.StatusOK, `{"code":`, false},
		{"server error", http.StatusInternalServerError, `{}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("ac") != "list" || r.URL.Query().Get("h") != "24" {
					t.Errorf("unexpected probe query %q", r.URL.RawQuery)
				}
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestClient(time.Second).Probe(context.Background(), ProbeURL(srv.URL), time.Second)
			if (err == nil) != tt.healthy {
				t.Fatalf("healthy = %v, err = %v", err == nil, err)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{fmt.Errorf("%w: slow", models.ErrTimeout), true},
		{fmt.Errorf("%w: %w", models.ErrTransport, &StatusError{StatusCode: 503}), true},
		{fmt.Errorf("%w: %w", models.ErrTransport, &StatusError{StatusCode: 404}), false},
		{fmt.Errorf("%w: bad", models.ErrInvalidFormat), false},
		{fmt.Errorf("%w: refused", models.ErrTransport), false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestFetchListFollowsThreeRedirects(t *testing.T) {
	tests := []struct {
		hops    int32
		wantErr bool
	}{
		{3, false},
		{4, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d hops", tt.hops), func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if n := calls.Add(1); n <= tt.hops {
					http.Redirect(w, r, fmt.Sprintf("/hop/%d?ac=videolist", n), http.StatusFound)
					return
				}
				fmt.Fprint(w, `{"code":1,"list":[]}`)
			}))
			defer srv.Close()

			_, err := newTestClient(time.Second).FetchListOnce(context.Background(), SearchURL(srv.URL, "x", 1))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if want := min(tt.hops, MaxRedirects) + 1; calls.Load() != want {
				t.Fatalf("calls = %d, want %d", calls.Load(), want)
			}
		})
	}
}
