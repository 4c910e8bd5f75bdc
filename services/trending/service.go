// Package trending builds the "popular now" rows from a few recent-year
// queries against the healthiest sources.
package trending

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/width"

	"youtv/internal/cache"
	"youtv/internal/upstream"
	"youtv/models"
	"youtv/utils"
)

const (
	TypeMovie = "movie"
	TypeTV    = "tv"

	DefaultLimit = 12
	CacheTTL     = 900 * time.Second

	sourceCount  = 3
	itemsPerCall = 10
)

// ErrInvalidType is returned for anything but movie or tv.
var ErrInvalidType = fmt.Errorf("%w: type must be movie or tv", models.ErrValidation)

// fallbackSources are used while no health data is available.
var fallbackSources = []string{"bfzy", "ffzy", "lzzy"}

var queries = map[string][]string{
	TypeMovie: {"2024", "2023"},
	TypeTV:    {"2024", "2023"},
}

var typeKeywords = map[string][]string{
	TypeMovie: {"电影", "影片"},
	TypeTV:    {"电视剧", "连续剧", "剧集"},
}

type HealthReader interface {
	HealthySources() []string
}

type Catalog interface {
	Resolve(code string) (models.UpstreamSource, bool)
}

type Fetcher interface {
	FetchListOnce(ctx context.Context, rawURL string) (*upstream.ListResponse, error)
}

type Service struct {
	catalog Catalog
	health  HealthReader
	fetcher Fetcher
	cache   *cache.Cache[*models.TrendingResponse]
}

func NewService(catalog Catalog, health HealthReader, fetcher Fetcher, store *cache.Cache[*models.TrendingResponse]) *Service {
	return &Service{catalog: catalog, health: health, fetcher: fetcher, cache: store}
}

// Trending returns up to limit deduplicated items of the given kind, newest
// year first.
func (s *Service) Trending(ctx context.Context, kind string, limit int) (*models.TrendingResponse, error) {
	kind = utils.SanitizeInput(kind)
	if kind == "" {
		kind = TypeMovie
	}
	if kind != TypeMovie && kind != TypeTV {
		return nil, ErrInvalidType
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	key := "trending_" + kind + "_" + strconv.Itoa(limit)
	if cached, ok := s.cache.Get(key); ok {
		utils.Debugf("[trending] cache hit: %s", key)
		return cached, nil
	}

	codes := s.pickSources()
	utils.Debugf("[trending] type=%s limit=%d sources=%s", kind, limit, strings.Join(codes, ","))

	items := dedupe(s.collect(ctx, codes, queries[kind]))
	items = slices.DeleteFunc(items, func(v models.VideoSummary) bool {
		return !matchesType(v.CategoryName, kind)
	})
	sortItems(items)
	if len(items) > limit {
		items = items[:limit]
	}

	resp := &models.TrendingResponse{
		Code:    200,
		Message: "Success",
		Type:    kind,
		Total:   len(items),
		Count:   len(items),
		List:    items,
	}
	if len(items) > 0 {
		s.cache.Set(key, resp, CacheTTL)
	}
	return resp, nil
}

func (s *Service) pickSources() []string {
	healthy := s.health.HealthySources()
	if len(healthy) == 0 {
		return slices.Clone(fallbackSources)
	}
	if len(healthy) > sourceCount {
		healthy = healthy[:sourceCount]
	}
	return slices.Clone(healthy)
}

// collect runs one single-attempt search per source and query and returns
// the rows in dispatch order.
func (s *Service) collect(ctx context.Context, codes, terms []string) []models.VideoSummary {
	batches := make([][]models.VideoSummary, len(codes)*len(terms))

	p := pool.New()
	for i, code := range codes {
		for j, term := range terms {
			slot := i*len(terms) + j
			p.Go(func() {
				batches[slot] = s.fetch(ctx, code, term)
			})
		}
	}
	p.Wait()

	var out []models.VideoSummary
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}

func (s *Service) fetch(ctx context.Context, code, term string) []models.VideoSummary {
	src, ok := s.catalog.Resolve(code)
	if !ok {
		return nil
	}
	list, err := s.fetcher.FetchListOnce(ctx, upstream.SearchURL(src.BaseURL, term, 1))
	if err != nil {
		log.Printf("[trending] source %s query %q failed: %v", code, term, err)
		return nil
	}
	rows := list.List
	if len(rows) > itemsPerCall {
		rows = rows[:itemsPerCall]
	}
	return upstream.Summaries(rows, upstream.Attribution{Code: code, Name: src.Name})
}

// normalizeTitle folds full-width forms, lowercases and drops whitespace.
func normalizeTitle(title string) string {
	folded := strings.ToLower(width.Fold.String(title))
	return strings.Join(strings.Fields(folded), "")
}

// dedupe keeps the first item per normalized title. Untitled rows are dropped.
func dedupe(items []models.VideoSummary) []models.VideoSummary {
	seen := make(map[string]struct{}, len(items))
	out := make([]models.VideoSummary, 0, len(items))
	for _, item := range items {
		key := normalizeTitle(item.Title)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

func matchesType(category, kind string) bool {
	for _, kw := range typeKeywords[kind] {
		if strings.Contains(category, kw) {
			return true
		}
	}
	return false
}

// sortItems orders by year descending, then by title in Chinese collation.
func sortItems(items []models.VideoSummary) {
	col := collate.New(language.Chinese)
	slices.SortStableFunc(items, func(a, b models.VideoSummary) int {
		ya, yb := leadingInt(a.Year), leadingInt(b.Year)
		if ya != yb {
			return yb - ya
		}
		return col.CompareString(a.Title, b.Title)
	})
}

// leadingInt parses the leading digits of s, 0 if there are none.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}
