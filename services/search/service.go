// Package search fans a query out to many upstream sources and merges the
// answers.
package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"youtv/internal/cache"
	"youtv/internal/upstream"
	"youtv/models"
	"youtv/services/sources"
	"youtv/utils"
)

// CacheTTL is how long a non-empty merged result is served from cache.
const CacheTTL = 300 * time.Second

// CustomSourceName is shown for custom sources without a name.
const CustomSourceName = "自定义源"

var (
	ErrMissingQuery   = fmt.Errorf("%w: missing search query", models.ErrValidation)
	ErrMissingSources = fmt.Errorf("%w: no sources selected", models.ErrValidation)
)

//go:generate mockgen -destination=mock_health_test.go -package=search youtv/services/search HealthReader

// HealthReader exposes the currently healthy source codes.
type HealthReader interface {
	HealthySources() []string
}

// Catalog resolves registered sources.
type Catalog interface {
	Resolve(code string) (models.UpstreamSource, bool)
}

// Fetcher performs one retried list call.
type Fetcher interface {
	FetchList(ctx context.Context, rawURL string) (*upstream.ListResponse, error)
}

// Request is one search call. CustomSources backs custom_<i> codes.
type Request struct {
	Query         string
	Sources       []string
	Page          int
	CustomSources []models.CustomSource
}

// Service is the search aggregator.
type Service struct {
	catalog Catalog
	health  HealthReader
	fetcher Fetcher
	cache   *cache.Cache[*models.SearchResponse]
	policy  utils.URLPolicy
	group   singleflight.Group
}

// NewService wires an aggregator. policy is applied to custom source URLs.
func NewService(catalog Catalog, health HealthReader, fetcher Fetcher, store *cache.Cache[*models.SearchResponse], policy utils.URLPolicy) *Service {
	return &Service{
		catalog: catalog,
		health:  health,
		fetcher: fetcher,
		cache:   store,
		policy:  policy,
	}
}

type sourceResult struct {
	code  string
	items []models.VideoSummary
	total int
	pages int
	err   error
}

// Search validates req, serves it from cache when possible and otherwise
// queries every candidate source concurrently. Per-source failures end up in
// the stats map and never fail the call. The returned response may be shared
// and must not be modified.
func (s *Service) Search(ctx context.Context, req Request) (*models.SearchResponse, error) {
	query := utils.SanitizeInput(req.Query)
	if query == "" {
		return nil, ErrMissingQuery
	}
	candidates := cleanCodes(req.Sources)
	if len(candidates) == 0 {
		return nil, ErrMissingSources
	}
	page := req.Page
	if page < 1 {
		page = 1
	}

	candidates = OrderByHealth(candidates, s.health.HealthySources())
	key := CacheKey(query, candidates, page, req.CustomSources)
	utils.Debugf("[search] query=%q sources=%s page=%d", query, strings.Join(candidates, ","), page)

	if cached, ok := s.cache.Get(key); ok {
		utils.Debugf("[search] cache hit: %s", key)
		return cached, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}
		resp := s.fanOut(context.WithoutCancel(ctx), query, candidates, page, req.CustomSources)
		if len(resp.List) > 0 {
			s.cache.Set(key, resp, CacheTTL)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.SearchResponse), nil
}

func (s *Service) fanOut(ctx context.Context, query string, candidates []string, page int, customs []models.CustomSource) *models.SearchResponse {
	results := make([]sourceResult, len(candidates))

	p := pool.New()
	for i, code := range candidates {
		p.Go(func() {
			results[i] = s.searchSource(ctx, code, query, page, customs)
		})
	}
	p.Wait()

	resp := &models.SearchResponse{
		Code:    200,
		Message: "Success",
		Query:   query,
		Page:    page,
		Sources: make(map[string]models.SourceStats, len(results)),
		List:    []models.VideoSummary{},
	}
	for _, r := range results {
		stats := models.SourceStats{Count: len(r.items), Total: r.total, PageCount: r.pages}
		if r.err != nil {
			msg := r.err.Error()
			stats.Error = &msg
		}
		resp.Sources[r.code] = stats

		if len(r.items) > 0 {
			resp.List = append(resp.List, r.items...)
			resp.Total += r.total
		}
	}
	resp.Count = len(resp.List)
	return resp
}

func (s *Service) searchSource(ctx context.Context, code, query string, page int, customs []models.CustomSource) sourceResult {
	ctx, span := otel.Tracer("youtv/search").Start(ctx, "search.source")
	defer span.End()
	span.SetAttributes(attribute.String("source.code", code))

	res := sourceResult{code: code}
	attr, base, err := s.resolve(code, customs)
	if err != nil {
		res.err = err
		span.SetStatus(codes.Error, err.Error())
		return res
	}

	list, err := s.fetcher.FetchList(ctx, upstream.SearchURL(base, query, page))
	if err != nil {
		log.Printf("[search] source %s failed: %v", code, err)
		res.err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res
	}

	res.items = upstream.Summaries(list.List, attr)
	res.total = int(list.Total)
	if res.total == 0 {
		res.total = len(res.items)
	}
	res.pages = int(list.PageCount)
	if res.pages == 0 {
		res.pages = 1
	}
	span.SetAttributes(attribute.Int("source.count", len(res.items)))
	return res
}

// resolve maps a code to its attribution and base URL. Custom sources are
// checked against the URL policy here, per request.
func (s *Service) resolve(code string, customs []models.CustomSource) (upstream.Attribution, string, error) {
	if models.IsCustomSourceCode(code) {
		custom, err := sources.CustomAt(code, customs)
		if err != nil {
			return upstream.Attribution{}, "", errors.New("invalid custom API")
		}
		if _, err := s.policy.Check(custom.URL); err != nil {
			log.Printf("[search] custom source %s rejected: %v", code, err)
			return upstream.Attribution{}, "", errors.New("invalid custom API")
		}
		name := strings.TrimSpace(custom.Name)
		if name == "" {
			name = CustomSourceName
		}
		return upstream.Attribution{Code: code, Name: name, APIURL: custom.URL}, custom.URL, nil
	}

	src, ok := s.catalog.Resolve(code)
	if !ok {
		return upstream.Attribution{}, "", errors.New("unknown API source")
	}
	return upstream.Attribution{Code: code, Name: src.Name}, src.BaseURL, nil
}

// OrderByHealth moves healthy codes ahead of the rest. Relative order within
// each group is unchanged.
func OrderByHealth(codes, healthy []string) []string {
	out := slices.Clone(codes)
	if len(healthy) == 0 {
		return out
	}
	set := make(map[string]struct{}, len(healthy))
	for _, c := range healthy {
		set[c] = struct{}{}
	}
	slices.SortStableFunc(out, func(a, b string) int {
		_, ah := set[a]
		_, bh := set[b]
		switch {
		case ah && !bh:
			return -1
		case !ah && bh:
			return 1
		}
		return 0
	})
	return out
}

// CacheKey builds search:<query>:<sorted codes>:<page>. When a custom source
// takes part, a digest of the custom definitions is appended so different
// definitions never share an entry.
func CacheKey(query string, codes []string, page int, customs []models.CustomSource) string {
	sorted := slices.Clone(codes)
	slices.Sort(sorted)
	key := "search:" + query + ":" + strings.Join(sorted, ",") + ":" + strconv.Itoa(page)

	if slices.ContainsFunc(sorted, models.IsCustomSourceCode) {
		raw, _ := json.Marshal(customs)
		sum := sha256.Sum256(raw)
		key += ":c" + hex.EncodeToString(sum[:])[:12]
	}
	return key
}

// ParseCustomSources decodes the customApis query value.
func ParseCustomSources(raw string) ([]models.CustomSource, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []models.CustomSource
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: customApis: %v", models.ErrValidation, err)
	}
	return out, nil
}

func cleanCodes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
