// Package upstream talks to the semi-standard vod ("provide/vod") APIs that
// every catalog source exposes.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"youtv/models"
	"youtv/utils"
)

const (
	// DefaultAttempts is one initial try plus two retries.
	DefaultAttempts   = 3
	DefaultTimeout    = 10 * time.Second
	DefaultRetryDelay = time.Second

	// MaxRedirects is how many redirect hops a vod call follows.
	MaxRedirects = 3

	maxBodyBytes = 16 << 20
)

// StatusError carries a non-2xx upstream status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return "upstream returned status " + strconv.Itoa(e.StatusCode)
}

// Options configures a Client. Zero values pick the defaults above.
type Options struct {
	UserAgent  string
	Timeout    time.Duration
	RetryDelay time.Duration
	Attempts   uint
	Transport  http.RoundTripper
}

// Client issues vod API calls. Each attempt gets its own deadline of
// Timeout multiplied by the attempt number.
type Client struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	retryDelay time.Duration
	attempts   uint
}

// NewClient creates a client whose transport is traced with otelhttp.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	if opts.Attempts == 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &Client{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(base),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > MaxRedirects {
					return fmt.Errorf("stopped after %d redirects", MaxRedirects)
				}
				return nil
			},
		},
		userAgent:  opts.UserAgent,
		timeout:    opts.Timeout,
		retryDelay: opts.RetryDelay,
		attempts:   opts.Attempts,
	}
}

// Timeout returns the base per-attempt timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// FetchList fetches and decodes a list envelope, retrying timeouts,
// connection resets and 5xx answers.
func (c *Client) FetchList(ctx context.Context, rawURL string) (*ListResponse, error) {
	return c.fetch(ctx, rawURL, c.attempts)
}

// FetchListOnce is FetchList without retries.
func (c *Client) FetchListOnce(ctx context.Context, rawURL string) (*ListResponse, error) {
	return c.fetch(ctx, rawURL, 1)
}

func (c *Client) fetch(ctx context.Context, rawURL string, attempts uint) (*ListResponse, error) {
	ctx, span := otel.Tracer("youtv/upstream").Start(ctx, "upstream.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("upstream.host", hostOf(rawURL)))

	var (
		result  *ListResponse
		attempt uint
	)
	err := retry.Do(
		func() error {
			attempt++
			resp, err := c.fetchOnce(ctx, rawURL, c.timeout*time.Duration(attempt))
			if err != nil {
				return err
			}
			result = resp
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return c.retryDelay * time.Duration(n+1)
		}),
		retry.RetryIf(IsRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			utils.Debugf("[upstream] %s attempt %d failed, retrying: %v", hostOf(rawURL), n+1, err)
		}),
	)
	span.SetAttributes(attribute.Int("upstream.attempts", int(attempt)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string, timeout time.Duration) (*ListResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", models.ErrValidation, err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %w", models.ErrTransport, &StatusError{StatusCode: resp.StatusCode})
	}

	var out ListResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		if isTimeout(err) {
			return nil, classify(err)
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %w", models.ErrNotFound, &StatusError{StatusCode: resp.StatusCode})
		}
		return nil, fmt.Errorf("%w: decode body: %v", models.ErrInvalidFormat, err)
	}
	if out.List == nil {
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %w", models.ErrNotFound, &StatusError{StatusCode: resp.StatusCode})
		}
		return nil, fmt.Errorf("%w: missing list field", models.ErrInvalidFormat)
	}
	return &out, nil
}

// Probe issues one bounded list request and reports whether the answer was
// a 200 with a usable body. The returned duration covers the whole call.
func (c *Client) Probe(ctx context.Context, rawURL string, timeout time.Duration) (time.Duration, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %v", models.ErrValidation, err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return time.Since(start), classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	if err != nil {
		return elapsed, classify(err)
	}
	if resp.StatusCode != http.StatusOK {
		return elapsed, fmt.Errorf("%w: %w", models.ErrTransport, &StatusError{StatusCode: resp.StatusCode})
	}
	if !usableBody(body) {
		return elapsed, fmt.Errorf("%w: empty or unparseable body", models.ErrInvalidFormat)
	}
	return elapsed, nil
}

// usableBody accepts a JSON object or array, or any other non-empty text.
// A JSON null is not usable.
func usableBody(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return false
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return json.Valid([]byte(trimmed))
	}
	return true
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
}

// IsRetryable reports whether err is a timeout, a connection reset or an
// upstream 5xx.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, models.ErrTimeout) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode >= http.StatusInternalServerError
}

func classify(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %v", models.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", models.ErrTransport, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func hostOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return u.Host
	}
	return ""
}
