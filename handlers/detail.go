package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"youtv/models"
	"youtv/services/detail"
)

type DetailFetcher interface {
	Detail(ctx context.Context, req detail.Request) (*models.DetailResponse, error)
}

type DetailHandler struct {
	fetcher DetailFetcher
}

func NewDetailHandler(fetcher DetailFetcher) *DetailHandler {
	return &DetailHandler{fetcher: fetcher}
}

// Detail serves /api/detail?id=&source=&customApi=&customDetail=.
func (h *DetailHandler) Detail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.fetcher.Detail(r.Context(), detail.Request{
		ID:           q.Get("id"),
		Source:       q.Get("source"),
		CustomAPI:    q.Get("customApi"),
		CustomDetail: q.Get("customDetail"),
	})
	if err == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	switch {
	case errors.Is(err, detail.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "Invalid video ID", "无效的视频ID")
	case errors.Is(err, detail.ErrInvalidSource):
		writeError(w, http.StatusBadRequest, "Invalid source code", "无效的数据源代码")
	case errors.Is(err, detail.ErrInvalidCustomAPI):
		writeError(w, http.StatusBadRequest, "Invalid custom API", "无效的自定义API")
	case errors.Is(err, detail.ErrUnknownSource):
		writeError(w, http.StatusBadRequest, "Unknown API source", "未知的API源")
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "Video not found", "未找到视频信息")
	case errors.Is(err, models.ErrTimeout):
		writeError(w, http.StatusRequestTimeout, "Request timeout", "请求超时，请稍后重试")
	default:
		log.Printf("[detail] request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Detail fetch failed", "获取详情失败，请稍后重试")
	}
}
