// Package health probes upstream sources and tracks which ones answered
// recently.
package health

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"youtv/internal/upstream"
	"youtv/models"
	"youtv/utils"
)

const (
	DefaultProbeTimeout = 10 * time.Second
	DefaultInterval     = 10 * time.Minute
	// FreshnessWindow bounds how long a probe result is trusted.
	FreshnessWindow = 5 * time.Minute
)

// Prober issues a single health request.
type Prober interface {
	Probe(ctx context.Context, rawURL string, timeout time.Duration) (time.Duration, error)
}

// Catalog lists the sources to probe, in display order.
type Catalog interface {
	All() []models.UpstreamSource
}

// Service owns the per-source HealthStatus map. Readers never block on a
// running sweep.
type Service struct {
	catalog      Catalog
	prober       Prober
	interval     time.Duration
	probeTimeout time.Duration
	now          func() time.Time

	statusMu sync.RWMutex
	statuses map[string]models.HealthStatus

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates a monitor with every catalog source marked unknown.
func NewService(catalog Catalog, prober Prober, interval time.Duration) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Service{
		catalog:      catalog,
		prober:       prober,
		interval:     interval,
		probeTimeout: DefaultProbeTimeout,
		now:          time.Now,
		statuses:     make(map[string]models.HealthStatus),
	}
	for _, src := range catalog.All() {
		s.statuses[src.Code] = models.HealthStatus{Code: src.Code, Name: src.Name, Status: models.HealthUnknown}
	}
	return s
}

// Probe checks one source and records the outcome.
func (s *Service) Probe(ctx context.Context, src models.UpstreamSource) models.HealthStatus {
	latency, err := s.prober.Probe(ctx, upstream.ProbeURL(src.BaseURL), s.probeTimeout)

	status := models.HealthStatus{
		Code:          src.Code,
		Name:          src.Name,
		Status:        models.HealthHealthy,
		LastLatencyMs: latency.Milliseconds(),
		LastCheckedAt: s.now(),
	}
	if err != nil {
		status.Status = models.HealthUnhealthy
		status.LastError = err.Error()
		utils.Debugf("[health] %s unhealthy after %dms: %v", src.Code, status.LastLatencyMs, err)
	}

	s.statusMu.Lock()
	s.statuses[src.Code] = status
	s.statusMu.Unlock()
	return status
}

// CheckAll probes every catalog source concurrently and returns the results
// in catalog order. One slow source never holds back the others' updates.
func (s *Service) CheckAll(ctx context.Context) []models.HealthStatus {
	sources := s.catalog.All()
	results := make([]models.HealthStatus, len(sources))

	p := pool.New()
	for i, src := range sources {
		p.Go(func() {
			results[i] = s.Probe(ctx, src)
		})
	}
	p.Wait()
	return results
}

// HealthySources returns the codes whose last probe was healthy and is
// still fresh, in catalog order. An empty result means "no preference".
func (s *Service) HealthySources() []string {
	var out []string
	for _, st := range s.FreshStatuses() {
		if st.Status == models.HealthHealthy {
			out = append(out, st.Code)
		}
	}
	return out
}

// FreshStatuses returns every status probed within the freshness window.
func (s *Service) FreshStatuses() []models.HealthStatus {
	now := s.now()
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	var out []models.HealthStatus
	for _, src := range s.catalog.All() {
		st, ok := s.statuses[src.Code]
		if !ok || st.Status == models.HealthUnknown {
			continue
		}
		if now.Sub(st.LastCheckedAt) < FreshnessWindow {
			out = append(out, st)
		}
	}
	return out
}

// Status returns the recorded status of one source, stale or not.
func (s *Service) Status(code string) (models.HealthStatus, bool) {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	st, ok := s.statuses[code]
	return st, ok
}

// Start runs a sweep immediately and then on every interval.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(1)
	go s.loop()

	log.Printf("[health] monitor started, interval=%s", s.interval)
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep, bounded by ctx.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[health] monitor stopped")
	case <-ctx.Done():
		log.Println("[health] monitor stopped (timeout)")
	}

	s.running = false
	return nil
}

func (s *Service) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Service) sweep() {
	log.Println("[health] starting sweep")
	results := s.CheckAll(s.ctx)
	healthy := 0
	for _, r := range results {
		if r.Status == models.HealthHealthy {
			healthy++
		}
	}
	log.Printf("[health] sweep done: %d/%d sources healthy", healthy, len(results))
}
