package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"youtv/models"
	"youtv/services/proxy"
	"youtv/utils"
)

type Opener interface {
	Open(ctx context.Context, encoded, rangeHeader string) (*proxy.Response, error)
}

type ProxyHandler struct {
	opener  Opener
	tracker *StreamTracker
}

func NewProxyHandler(opener Opener, tracker *StreamTracker) *ProxyHandler {
	if tracker == nil {
		tracker = NewStreamTracker()
	}
	return &ProxyHandler{opener: opener, tracker: tracker}
}

// Proxy serves /proxy/{encodedUrl}. The upstream status and body are relayed
// as-is, so a dead link reaches the player as the upstream 404.
func (h *ProxyHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	encoded := mux.Vars(r)["encodedUrl"]
	if encoded == "" {
		writeError(w, http.StatusBadRequest, "Missing URL parameter", "")
		return
	}

	resp, err := h.opener.Open(r.Context(), encoded, r.Header.Get("Range"))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBlockedURL), errors.Is(err, models.ErrValidation):
			writeError(w, http.StatusBadRequest, "Invalid URL", "")
		case errors.Is(err, models.ErrTimeout):
			writeError(w, http.StatusRequestTimeout, "Request timeout", "请求超时，请稍后重试")
		default:
			log.Printf("[proxy] relay failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Proxy request failed", "请求失败: "+err.Error())
		}
		return
	}
	defer resp.Close()

	// Upstream headers win over anything the router middleware already set.
	for key, values := range resp.Header {
		w.Header().Del(key)
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	if resp.ContentLength >= 0 && w.Header().Get("Content-Length") == "" {
		w.Header().Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if resp.Body == nil {
		return
	}
	target, _ := url.PathUnescape(encoded)
	id, tw := h.tracker.Start(w, r, target, resp.ContentLength)
	defer h.tracker.End(id)

	if n, err := io.Copy(tw, resp.Body); err != nil && r.Context().Err() == nil {
		log.Printf("[proxy] relay of %s interrupted after %d bytes: %v", target, n, err)
	}
}

// Options answers the CORS preflight for proxied resources.
func (h *ProxyHandler) Options(w http.ResponseWriter, r *http.Request) {
	utils.SetPermissiveCORS(w.Header())
	w.Header().Set("Access-Control-Max-Age", "86400")
	w.WriteHeader(http.StatusOK)
}

// Tracker returns the stream tracker fed by this handler.
func (h *ProxyHandler) Tracker() *StreamTracker {
	return h.tracker
}
