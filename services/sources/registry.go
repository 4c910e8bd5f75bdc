// Package sources holds the catalog of upstream vod APIs.
package sources

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/ini.v1"

	"youtv/models"
)

// Registry is an immutable catalog of registered sources. Custom sources are
// never stored here; they are resolved per request with CustomAt.
type Registry struct {
	byCode map[string]models.UpstreamSource
	order  []string
}

// NewRegistry builds a registry from sources. A later entry with the same
// code replaces the earlier one but keeps its position.
func NewRegistry(list []models.UpstreamSource) *Registry {
	r := &Registry{byCode: make(map[string]models.UpstreamSource, len(list))}
	for _, src := range list {
		src.Code = strings.TrimSpace(src.Code)
		if src.Code == "" || models.IsCustomSourceCode(src.Code) {
			continue
		}
		if _, exists := r.byCode[src.Code]; !exists {
			r.order = append(r.order, src.Code)
		}
		r.byCode[src.Code] = src
	}
	return r
}

// Resolve looks up a registered source.
func (r *Registry) Resolve(code string) (models.UpstreamSource, bool) {
	src, ok := r.byCode[code]
	return src, ok
}

// Codes returns every registered code in catalog order.
func (r *Registry) Codes() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns every registered source in catalog order.
func (r *Registry) All() []models.UpstreamSource {
	return r.filter(func(models.UpstreamSource) bool { return true })
}

// ListAll returns a snapshot keyed by code.
func (r *Registry) ListAll() map[string]models.UpstreamSource {
	return toMap(r.All())
}

// ListNormal returns the non-adult sources keyed by code.
func (r *Registry) ListNormal() map[string]models.UpstreamSource {
	return toMap(r.filter(func(s models.UpstreamSource) bool { return !s.IsAdult }))
}

// ListAdult returns the adult sources keyed by code.
func (r *Registry) ListAdult() map[string]models.UpstreamSource {
	return toMap(r.filter(func(s models.UpstreamSource) bool { return s.IsAdult }))
}

func (r *Registry) filter(keep func(models.UpstreamSource) bool) []models.UpstreamSource {
	out := make([]models.UpstreamSource, 0, len(r.order))
	for _, code := range r.order {
		if src := r.byCode[code]; keep(src) {
			out = append(out, src)
		}
	}
	return out
}

func toMap(list []models.UpstreamSource) map[string]models.UpstreamSource {
	out := make(map[string]models.UpstreamSource, len(list))
	for _, src := range list {
		out[src.Code] = src
	}
	return out
}

// CustomAt returns the custom source addressed by a custom_<index> code.
// The caller is responsible for validating its URLs.
func CustomAt(code string, customs []models.CustomSource) (models.CustomSource, error) {
	raw, ok := strings.CutPrefix(code, models.CustomSourcePrefix)
	if !ok {
		return models.CustomSource{}, fmt.Errorf("%w: %q is not a custom source code", models.ErrValidation, code)
	}
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 || idx >= len(customs) {
		return models.CustomSource{}, fmt.Errorf("%w: no custom source for %q", models.ErrValidation, code)
	}
	return customs[idx], nil
}

// LoadFile reads extra sources from an INI file, one section per code:
//
//	[mysrc]
//	name  = My Source
//	api   = https://example.com/api.php/provide/vod
//	adult = false
func LoadFile(fs afero.Fs, path string) ([]models.UpstreamSource, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	file, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}

	var out []models.UpstreamSource
	for _, sec := range file.Sections() {
		code := strings.TrimSpace(sec.Name())
		if code == ini.DefaultSection {
			continue
		}
		api := strings.TrimSpace(sec.Key("api").String())
		if api == "" {
			return nil, fmt.Errorf("sources file: section %q has no api", code)
		}
		name := strings.TrimSpace(sec.Key("name").String())
		if name == "" {
			name = code
		}
		out = append(out, models.UpstreamSource{
			Code:    code,
			Name:    name,
			BaseURL: api,
			IsAdult: sec.Key("adult").MustBool(false),
		})
	}
	return out, nil
}
