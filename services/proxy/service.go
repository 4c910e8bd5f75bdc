// Package proxy re-issues a player's target URL upstream and hands back the
// live response for relaying.
package proxy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"youtv/models"
	"youtv/utils"
)

const (
	MaxRedirects      = 5
	DefaultTimeout    = 10 * time.Second
	DefaultRetryDelay = time.Second

	sniffBytes = 3072
)

// Options configures the proxy. MaxRetries counts extra attempts after the
// first one.
type Options struct {
	Policy          utils.URLPolicy
	Timeout         time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
	UserAgent       string
	FilteredHeaders []string
	Transport       http.RoundTripper
}

// Response is an open upstream answer. Callers must Close it.
type Response struct {
	Status        int
	Header        http.Header
	ContentLength int64
	Body          io.ReadCloser
}

// Close releases the upstream connection.
func (r *Response) Close() error {
	if r == nil || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// Service validates targets and opens them upstream.
type Service struct {
	client     *http.Client
	policy     utils.URLPolicy
	timeout    time.Duration
	retries    int
	retryDelay time.Duration
	userAgent  string
	filtered   []string
}

func NewService(opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	base := opts.Transport
	if base == nil {
		// Upstream bytes are relayed untouched, so never ask for gzip.
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.DisableCompression = true
		base = t
	}
	s := &Service{
		policy:     opts.Policy,
		timeout:    opts.Timeout,
		retries:    opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		userAgent:  opts.UserAgent,
		filtered:   opts.FilteredHeaders,
	}
	s.client = &http.Client{
		Transport:     otelhttp.NewTransport(base),
		CheckRedirect: s.checkRedirect,
	}
	return s
}

// checkRedirect caps the hop count and re-applies the URL policy to every hop.
func (s *Service) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) > MaxRedirects {
		return errTooManyRedirects
	}
	if _, err := s.policy.Check(req.URL.String()); err != nil {
		log.Printf("[proxy] blocked redirect to %s: %v", req.URL.Redacted(), err)
		return err
	}
	return nil
}

// Decode turns the path parameter into a policy-checked target URL.
func (s *Service) Decode(encoded string) (string, error) {
	if strings.TrimSpace(encoded) == "" {
		return "", fmt.Errorf("%w: missing url", models.ErrValidation)
	}
	raw, err := url.PathUnescape(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: undecodable url: %v", models.ErrValidation, err)
	}
	target, err := s.policy.Check(raw)
	if err != nil {
		if errors.Is(err, models.ErrBlockedURL) {
			log.Printf("[proxy] blocked target %s: %v", raw, err)
		}
		return "", err
	}
	return utils.EncodeURLWithSpaces(target), nil
}

// Open validates encoded and fetches it, retrying transport failures and
// 5xx answers with a growing delay. rangeHeader is forwarded when set. A
// non-2xx answer that survives the retries is returned, not reported as an
// error, so its status and body can be relayed.
func (s *Service) Open(ctx context.Context, encoded, rangeHeader string) (*Response, error) {
	target, err := s.Decode(encoded)
	if err != nil {
		return nil, err
	}
	utils.Debugf("[proxy] open %s", target)

	attempts := uint(s.retries + 1)
	var (
		result  *Response
		attempt uint
	)
	err = retry.Do(
		func() error {
			attempt++
			resp, err := s.fetch(ctx, target, rangeHeader)
			if err != nil {
				return err
			}
			if resp.Status >= http.StatusInternalServerError && attempt < attempts {
				resp.Close()
				return fmt.Errorf("%w: upstream status %d", errRetryableStatus, resp.Status)
			}
			result = resp
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return s.retryDelay * time.Duration(n+1)
		}),
		retry.RetryIf(retryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			utils.Debugf("[proxy] retry %d/%d for %s: %v", n+1, s.retries, target, err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}

var (
	errRetryableStatus  = errors.New("retryable upstream status")
	errTooManyRedirects = fmt.Errorf("stopped after %d redirects", MaxRedirects)
)

func retryable(err error) bool {
	if errors.Is(err, models.ErrBlockedURL) || errors.Is(err, models.ErrValidation) || errors.Is(err, errTooManyRedirects) {
		return false
	}
	return errors.Is(err, errRetryableStatus) || errors.Is(err, models.ErrTimeout) || errors.Is(err, models.ErrTransport)
}

// fetch runs one attempt. The timeout covers connecting, receiving headers
// and, when the content type has to be sniffed, the first body read. The rest
// of the body stream is unbounded.
func (s *Service) fetch(parent context.Context, target, rangeHeader string) (*Response, error) {
	ctx, cancel := context.WithCancel(parent)
	timer := time.AfterFunc(s.timeout, cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		timer.Stop()
		cancel()
		return nil, fmt.Errorf("%w: build request: %v", models.ErrValidation, err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		fired := !timer.Stop()
		cancel()
		return nil, classify(err, fired)
	}

	header := utils.FilterSensitiveHeaders(resp.Header, s.filtered)
	utils.SetPermissiveCORS(header)

	body := io.ReadCloser(&cancelOnClose{ReadCloser: resp.Body, cancel: cancel})
	if header.Get("Content-Type") == "" {
		// Sniff only what the first read delivers. The header timer still
		// bounds that read.
		br := bufio.NewReaderSize(body, sniffBytes)
		if _, err := br.Peek(1); err == nil {
			head, _ := br.Peek(br.Buffered())
			header.Set("Content-Type", mimetype.Detect(head).String())
		}
		body = struct {
			io.Reader
			io.Closer
		}{br, body}
	}
	if !timer.Stop() {
		body.Close()
		return nil, classify(fmt.Errorf("waiting for first bytes: %w", context.DeadlineExceeded), true)
	}

	return &Response{
		Status:        resp.StatusCode,
		Header:        header,
		ContentLength: resp.ContentLength,
		Body:          body,
	}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func classify(err error, timedOut bool) error {
	if errors.Is(err, models.ErrBlockedURL) {
		return err
	}
	var ne net.Error
	if timedOut || errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %w", models.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", models.ErrTransport, err)
}
