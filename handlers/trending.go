package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"youtv/models"
	"youtv/services/trending"
)

type TrendingProvider interface {
	Trending(ctx context.Context, kind string, limit int) (*models.TrendingResponse, error)
}

type TrendingHandler struct {
	provider TrendingProvider
}

func NewTrendingHandler(provider TrendingProvider) *TrendingHandler {
	return &TrendingHandler{provider: provider}
}

// Trending serves /api/trending?type=movie|tv&limit=.
func (h *TrendingHandler) Trending(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		limit = trending.DefaultLimit
	}

	resp, err := h.provider.Trending(r.Context(), q.Get("type"), limit)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, trending.ErrInvalidType):
		writeError(w, http.StatusBadRequest, "Invalid type", "类型参数必须是 movie 或 tv")
	default:
		log.Printf("[trending] request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Trending content failed", "获取热门内容失败，请稍后重试")
	}
}
