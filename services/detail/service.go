// Package detail resolves one video on one source into its record and
// episode list.
package detail

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"youtv/internal/cache"
	"youtv/internal/upstream"
	"youtv/models"
	"youtv/utils"
)

const (
	CacheTTL = 600 * time.Second

	customSourceName = "自定义源"
)

var (
	ErrInvalidID        = fmt.Errorf("%w: invalid video id", models.ErrValidation)
	ErrInvalidSource    = fmt.Errorf("%w: invalid source code", models.ErrValidation)
	ErrInvalidCustomAPI = fmt.Errorf("%w: invalid custom api", models.ErrValidation)
	ErrUnknownSource    = fmt.Errorf("%w: unknown source", models.ErrValidation)
)

// Catalog resolves registered sources.
type Catalog interface {
	Resolve(code string) (models.UpstreamSource, bool)
}

// Fetcher performs one list call without retries.
type Fetcher interface {
	FetchListOnce(ctx context.Context, rawURL string) (*upstream.ListResponse, error)
}

// Request identifies the video. CustomAPI and CustomDetail are only read
// for custom_ sources.
type Request struct {
	ID           string
	Source       string
	CustomAPI    string
	CustomDetail string
}

type Service struct {
	catalog Catalog
	fetcher Fetcher
	cache   *cache.Cache[*models.DetailResponse]
	policy  utils.URLPolicy
}

func NewService(catalog Catalog, fetcher Fetcher, store *cache.Cache[*models.DetailResponse], policy utils.URLPolicy) *Service {
	return &Service{catalog: catalog, fetcher: fetcher, cache: store, policy: policy}
}

// Detail validates req and fetches the first list entry for its id.
// Results for registered sources are cached; custom ones never are.
func (s *Service) Detail(ctx context.Context, req Request) (*models.DetailResponse, error) {
	if !utils.IsValidVideoID(req.ID) {
		return nil, ErrInvalidID
	}
	if !utils.IsValidSourceCode(req.Source) {
		return nil, ErrInvalidSource
	}

	attr, base, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	custom := models.IsCustomSourceCode(req.Source)
	key := "detail:" + req.Source + ":" + req.ID
	if !custom {
		if cached, ok := s.cache.Get(key); ok {
			utils.Debugf("[detail] cache hit: %s", key)
			return cached, nil
		}
	}

	ctx, span := otel.Tracer("youtv/detail").Start(ctx, "detail.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("source.code", req.Source), attribute.String("video.id", req.ID))

	utils.Debugf("[detail] id=%s source=%s", req.ID, req.Source)
	list, err := s.fetcher.FetchListOnce(ctx, upstream.DetailURL(base, req.ID))
	if err != nil {
		if errors.Is(err, models.ErrInvalidFormat) {
			// A body without a list means the id is unknown to the source.
			err = fmt.Errorf("%w: %v", models.ErrNotFound, err)
		}
		log.Printf("[detail] %s/%s failed: %v", req.Source, req.ID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(list.List) == 0 {
		return nil, fmt.Errorf("%w: video %s on %s", models.ErrNotFound, req.ID, req.Source)
	}

	raw := list.List[0]
	episodes := ParseEpisodes(raw.VodPlayURL.String())
	resp := &models.DetailResponse{
		Code:         200,
		Message:      "Success",
		VideoInfo:    upstream.Detail(raw, attr),
		Episodes:     episodes,
		EpisodeCount: len(episodes),
	}
	span.SetAttributes(attribute.Int("video.episodes", len(episodes)))

	if !custom {
		s.cache.Set(key, resp, CacheTTL)
	}
	return resp, nil
}

func (s *Service) resolve(req Request) (upstream.Attribution, string, error) {
	if models.IsCustomSourceCode(req.Source) {
		if _, err := s.policy.Check(req.CustomAPI); err != nil {
			return upstream.Attribution{}, "", fmt.Errorf("%w: %v", ErrInvalidCustomAPI, err)
		}
		base := req.CustomAPI
		if req.CustomDetail != "" {
			if _, err := s.policy.Check(req.CustomDetail); err != nil {
				return upstream.Attribution{}, "", fmt.Errorf("%w: %v", ErrInvalidCustomAPI, err)
			}
			base = req.CustomDetail
		}
		return upstream.Attribution{Code: req.Source, Name: customSourceName}, base, nil
	}

	src, ok := s.catalog.Resolve(req.Source)
	if !ok {
		return upstream.Attribution{}, "", ErrUnknownSource
	}
	return upstream.Attribution{Code: req.Source, Name: src.Name}, src.BaseURL, nil
}

// mirrorSeparator joins the playlists of different playback mirrors.
const mirrorSeparator = "$$$"

// ParseEpisodes splits a vod_play_url value. Entries are separated by "#"
// and hold "name$url"; an entry without "$" is used as both. Mirrors joined
// by "$$$" are flattened in order. Empty entries are dropped and Index is
// the position in the returned slice.
func ParseEpisodes(playURL string) []models.Episode {
	episodes := []models.Episode{}
	for _, mirror := range strings.Split(playURL, mirrorSeparator) {
		for _, entry := range strings.Split(mirror, "#") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}

			name, url := entry, entry
			if parts := strings.Split(entry, "$"); len(parts) > 1 {
				name = strings.TrimSpace(parts[0])
				url = strings.TrimSpace(parts[1])
				if url == "" {
					url = name
				}
			}
			if url == "" {
				continue
			}
			if name == "" {
				name = "第" + strconv.Itoa(len(episodes)+1) + "集"
			}
			episodes = append(episodes, models.Episode{Name: name, URL: url, Index: len(episodes)})
		}
	}
	return episodes
}
