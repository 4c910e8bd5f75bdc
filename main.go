package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"youtv/api"
	"youtv/config"
	"youtv/handlers"
	"youtv/internal/cache"
	"youtv/internal/upstream"
	"youtv/models"
	"youtv/services/detail"
	"youtv/services/health"
	"youtv/services/proxy"
	"youtv/services/search"
	"youtv/services/sources"
	"youtv/services/trending"
	"youtv/utils"
)

const (
	searchCacheSize   = 500
	detailCacheSize   = 200
	trendingCacheSize = 100
)

func main() {
	cfg := config.Load()
	setupLogging(cfg)
	utils.SetDebug(cfg.Debug)

	if err := run(cfg); err != nil {
		log.Fatalf("[main] %v", err)
	}
}

func setupLogging(cfg config.Config) {
	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		})
	}
	log.SetOutput(out)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	osFs := afero.NewOsFs()
	catalog := sources.DefaultSources()
	if cfg.SourcesFile != "" {
		extra, err := sources.LoadFile(osFs, cfg.SourcesFile)
		if err != nil {
			return fmt.Errorf("load sources file: %w", err)
		}
		log.Printf("[main] loaded %d sources from %s", len(extra), cfg.SourcesFile)
		catalog = append(catalog, extra...)
	}
	registry := sources.NewRegistry(catalog)

	policy := utils.URLPolicy{
		BlockedHosts:      cfg.BlockedHosts,
		BlockedIPPrefixes: cfg.BlockedIPPrefixes,
	}
	client := upstream.NewClient(clientOptions(cfg))

	searchCache := cache.New[*models.SearchResponse](searchCacheSize)
	detailCache := cache.New[*models.DetailResponse](detailCacheSize)
	trendingCache := cache.New[*models.TrendingResponse](trendingCacheSize)
	cache.StartCleanup(ctx, cfg.CacheCleanupInterval, map[string]cache.Sweeper{
		"search":   searchCache,
		"detail":   detailCache,
		"trending": trendingCache,
	})

	monitor := health.NewService(registry, client, cfg.HealthCheckInterval)
	if err := monitor.Start(ctx); err != nil {
		return fmt.Errorf("start health monitor: %w", err)
	}

	searchSvc := search.NewService(registry, monitor, client, searchCache, policy)
	detailSvc := detail.NewService(registry, client, detailCache, policy)
	trendingSvc := trending.NewService(registry, monitor, client, trendingCache)
	proxySvc := proxy.NewService(proxyOptions(cfg, policy))

	router := newRouter(ctx, cfg, routes{
		sources:  handlers.NewSourcesHandler(registry, monitor),
		search:   handlers.NewSearchHandler(searchSvc),
		detail:   handlers.NewDetailHandler(detailSvc),
		trending: handlers.NewTrendingHandler(trendingSvc),
		proxy:    handlers.NewProxyHandler(proxySvc, nil),
		service:  handlers.NewServiceHandler(handlers.ResolveVersion(osFs)),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.Tracing(router, "youtv"),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[main] listening on %s (%d sources, debug=%v)", srv.Addr, len(registry.Codes()), cfg.Debug)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
	case <-ctx.Done():
		log.Println("[main] shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := monitor.Stop(shutCtx); err != nil {
		log.Printf("[main] stop health monitor: %v", err)
	}
	return srv.Shutdown(shutCtx)
}

// clientOptions configures the vod API client. Its attempt bound is fixed at
// upstream.DefaultAttempts; MAX_RETRIES only governs the proxy.
func clientOptions(cfg config.Config) upstream.Options {
	return upstream.Options{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.RequestTimeout,
		Attempts:  upstream.DefaultAttempts,
	}
}

// proxyOptions configures the streaming proxy. MAX_RETRIES counts retries
// after the first attempt.
func proxyOptions(cfg config.Config, policy utils.URLPolicy) proxy.Options {
	return proxy.Options{
		Policy:          policy,
		Timeout:         cfg.RequestTimeout,
		MaxRetries:      cfg.MaxRetries,
		UserAgent:       cfg.UserAgent,
		FilteredHeaders: cfg.FilteredHeaders,
	}
}

type routes struct {
	sources  *handlers.SourcesHandler
	search   *handlers.SearchHandler
	detail   *handlers.DetailHandler
	trending *handlers.TrendingHandler
	proxy    *handlers.ProxyHandler
	service  *handlers.ServiceHandler
}

func newRouter(ctx context.Context, cfg config.Config, h routes) *mux.Router {
	r := utils.NewRouter(cfg.CORSOrigin)
	r.Use(api.Recover(cfg.Debug), api.RequestID(), api.Logging(), api.SecurityHeaders())

	limiter := api.NewIPRateLimiter(ctx, cfg.RateLimitWindow, cfg.RateLimitMaxRequests)
	tracker := h.proxy.Tracker()

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(limiter.Middleware())
	apiRouter.HandleFunc("/health", h.service.Health).Methods(http.MethodGet)
	apiRouter.HandleFunc("/info", h.service.Info).Methods(http.MethodGet)
	apiRouter.HandleFunc("/sources", h.sources.List).Methods(http.MethodGet)
	apiRouter.HandleFunc("/sources/normal", h.sources.Normal).Methods(http.MethodGet)
	apiRouter.HandleFunc("/sources/adult", h.sources.Adult).Methods(http.MethodGet)
	apiRouter.HandleFunc("/sources/health", h.sources.Health).Methods(http.MethodGet)
	apiRouter.HandleFunc("/search", h.search.Search).Methods(http.MethodGet)
	apiRouter.HandleFunc("/detail", h.detail.Detail).Methods(http.MethodGet)
	apiRouter.HandleFunc("/trending", h.trending.Trending).Methods(http.MethodGet)
	apiRouter.HandleFunc("/streams", tracker.List).Methods(http.MethodGet)
	apiRouter.PathPrefix("/").HandlerFunc(preflight).Methods(http.MethodOptions)

	proxyRouter := r.PathPrefix("/proxy").Subrouter()
	proxyRouter.HandleFunc("/{encodedUrl:.+}", h.proxy.Options).Methods(http.MethodOptions)
	proxyRouter.Handle("/{encodedUrl:.+}", limiter.Middleware()(http.HandlerFunc(h.proxy.Proxy))).Methods(http.MethodGet)

	return r
}

// preflight answers CORS preflights on /api; the router middleware has
// already set the allow headers.
func preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
