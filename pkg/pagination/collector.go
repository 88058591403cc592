package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/inpost-airmap/pkg/metrics"
)

const (
	// ConcurrencyCeiling bounds outbound fan-out regardless of configuration.
	ConcurrencyCeiling = 32

	// DefaultProgressInterval is how many completions pass between progress logs.
	DefaultProgressInterval = 10
)

var (
	// ErrInvalidConcurrency is returned when the worker pool cannot be sized.
	ErrInvalidConcurrency = errors.New("invalid concurrency bound")

	// ErrInvalidPageCount is returned for a negative total page count.
	ErrInvalidPageCount = errors.New("invalid total page count")
)

// Prometheus metrics for page collection.
var (
	collectorPagesTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "airmap_collector_pages_total",
		Help: "Pages accounted by the collector by result",
	}, []string{"result"})

	collectorDuration = promauto.With(metrics.Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "airmap_collector_duration_seconds",
		Help:    "Wall-clock time from first dispatch to last completion",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	collectorWorkers = promauto.With(metrics.Registry).NewGauge(prometheus.GaugeOpts{
		Name: "airmap_collector_workers",
		Help: "Worker pool size of the most recent collection",
	})
)

// Config holds collector configuration
type Config struct {
	// MaxConcurrency is the configured worker cap; the effective pool size is
	// min(MaxConcurrency, ConcurrencyCeiling, totalPages).
	MaxConcurrency int
	// ProgressInterval controls progress logging frequency.
	ProgressInterval int
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency:   ConcurrencyCeiling,
		ProgressInterval: DefaultProgressInterval,
	}
}

// FetchFunc fetches a single page. It must not return until the page reached
// a terminal outcome.
type FetchFunc func(ctx context.Context, page int) PageResult

// Collector fans page fetches out over a bounded worker pool.
// A Collector holds no per-run state and may be reused, but each Collect call
// builds a fresh pool and report.
type Collector struct {
	config Config
}

// NewCollector creates a new collector. A zero MaxConcurrency selects the
// ceiling; negative values are kept so Collect can reject them.
func NewCollector(config Config) *Collector {
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = ConcurrencyCeiling
	}
	if config.ProgressInterval <= 0 {
		config.ProgressInterval = DefaultProgressInterval
	}

	return &Collector{
		config: config,
	}
}

// MaxWorkers returns the pool size for a run: min(limit, ConcurrencyCeiling, totalPages).
func MaxWorkers(limit, totalPages int) int {
	return min(limit, ConcurrencyCeiling, totalPages)
}

// Collect fetches pages 1..totalPages and merges their items.
// Per-page failures are counted, never returned. The only error conditions are
// a negative page count and a pool that cannot be sized.
func (c *Collector) Collect(ctx context.Context, totalPages int, fetch FetchFunc) (*Report, error) {
	if totalPages < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPageCount, totalPages)
	}
	if c.config.MaxConcurrency <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidConcurrency, c.config.MaxConcurrency)
	}
	if fetch == nil {
		return nil, errors.New("fetch function is required")
	}

	report := &Report{
		TotalPages: totalPages,
		Items:      make([]RawItem, 0),
	}

	if totalPages == 0 {
		log.Info().Msg("No pages to collect")
		return report, nil
	}

	report.Workers = MaxWorkers(c.config.MaxConcurrency, totalPages)
	collectorWorkers.Set(float64(report.Workers))

	log.Info().
		Int("total_pages", totalPages).
		Int("workers", report.Workers).
		Msg("Starting parallel page collection")

	start := time.Now()

	// The page count comes from upstream, so pages are produced lazily.
	pageQueue := make(chan int, report.Workers)
	go func() {
		defer close(pageQueue)
		for page := 1; page <= totalPages; page++ {
			pageQueue <- page
		}
	}()

	pageResults := make(chan PageResult, report.Workers)

	var wg sync.WaitGroup
	for i := 0; i < report.Workers; i++ {
		wg.Add(1)
		go c.worker(ctx, fetch, pageQueue, pageResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
	}()

	// Single consumer: the report is only touched from this goroutine.
	for result := range pageResults {
		report.record(result)

		if result.Outcome.Failed() {
			collectorPagesTotal.WithLabelValues("failed").Inc()
			log.Warn().
				Int("page", result.Page).
				Str("outcome", string(result.Outcome)).
				Msg("Page counted as failed")
		} else {
			collectorPagesTotal.WithLabelValues("completed").Inc()
		}

		done := report.Accounted()
		if done%c.config.ProgressInterval == 0 || done == totalPages {
			log.Info().
				Int("completed", done).
				Int("total", totalPages).
				Float64("progress_pct", float64(done)/float64(totalPages)*100).
				Msg("Collection progress")
		}
	}

	report.Elapsed = time.Since(start)
	collectorDuration.Observe(report.Elapsed.Seconds())

	log.Info().
		Int("pages_completed", report.PagesCompleted).
		Int("pages_failed", report.PagesFailed).
		Int("items", len(report.Items)).
		Dur("duration", report.Elapsed).
		Msg("Collection complete")

	return report, nil
}

// worker processes pages from the queue until it is drained.
func (c *Collector) worker(ctx context.Context, fetch FetchFunc, pageQueue <-chan int, results chan<- PageResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for page := range pageQueue {
		results <- fetchSafely(ctx, fetch, page)
		pagesProcessed++
	}

	log.Debug().
		Int("worker_id", workerID).
		Int("pages_processed", pagesProcessed).
		Msg("Worker completed")
}

// fetchSafely runs fetch and turns a panic into a failed page result.
func fetchSafely(ctx context.Context, fetch FetchFunc, page int) (result PageResult) {
	defer func() {
		if r := recover(); r != nil {
			result = PageResult{
				Page:    page,
				Outcome: OutcomeTransportError,
				Err:     fmt.Errorf("fetch panicked: %v", r),
			}
		}
	}()

	result = fetch(ctx, page)
	result.Page = page
	return result
}
