package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"youtv/models"
	"youtv/services/search"
)

type Searcher interface {
	Search(ctx context.Context, req search.Request) (*models.SearchResponse, error)
}

type SearchHandler struct {
	searcher Searcher
}

func NewSearchHandler(searcher Searcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// Search serves /api/search?q=&sources=&page=&customApis=.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := q.Get("q")
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, "Missing search query", "请输入搜索关键词")
		return
	}
	rawSources := q.Get("sources")
	if rawSources == "" {
		writeError(w, http.StatusBadRequest, "Missing sources", "请选择至少一个数据源")
		return
	}
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	customs, err := search.ParseCustomSources(q.Get("customApis"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid custom APIs", "自定义API格式错误")
		return
	}

	resp, err := h.searcher.Search(r.Context(), search.Request{
		Query:         query,
		Sources:       strings.Split(rawSources, ","),
		Page:          page,
		CustomSources: customs,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, search.ErrMissingQuery):
		writeError(w, http.StatusBadRequest, "Missing search query", "请输入搜索关键词")
	case errors.Is(err, search.ErrMissingSources):
		writeError(w, http.StatusBadRequest, "No valid sources", "没有有效的数据源")
	case errors.Is(err, models.ErrValidation):
		writeError(w, http.StatusBadRequest, "Invalid request", "请求参数无效")
	default:
		log.Printf("[search] request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Search failed", "搜索请求失败，请稍后重试")
	}
}
