// Package job runs one map generation: probe the page count, collect every
// page, keep the renderable points, render the map and publish it.
//
// Each Run builds its own API client, collector and report, so a Job can be
// triggered repeatedly without carrying fetch state between runs.
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/inpost-airmap/pkg/client"
	"github.com/Sternrassler/inpost-airmap/pkg/metrics"
	"github.com/Sternrassler/inpost-airmap/pkg/pagination"
	"github.com/Sternrassler/inpost-airmap/pkg/points"
	"github.com/Sternrassler/inpost-airmap/pkg/publish"
	"github.com/Sternrassler/inpost-airmap/pkg/render"
	"github.com/Sternrassler/inpost-airmap/pkg/status"
)

const statusWriteTimeout = 5 * time.Second

var (
	jobRunsTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "airmap_job_runs_total",
		Help: "Map generation runs by result (success, failed, publish_failed)",
	}, []string{"result"})

	jobDuration = promauto.With(metrics.Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "airmap_job_duration_seconds",
		Help:    "End-to-end map generation duration in seconds",
		Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
	})
)

// StatusRecorder persists run summaries. *status.Store implements it.
type StatusRecorder interface {
	Record(ctx context.Context, summary status.Summary) error
}

// Options configures a Job.
type Options struct {
	API       client.Config
	Collector pagination.Config
	Palette   points.Palette
	Renderer  render.Renderer
	Publisher publish.Publisher

	Bucket string
	Key    string

	// CompletionAlert embeds a load-time notice when the renderer supports it.
	CompletionAlert bool
	// Location is the timezone of the map title.
	Location *time.Location

	// Status is optional.
	Status StatusRecorder
	Logger *zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result describes a successful run.
type Result struct {
	StartedAt      time.Time
	TotalPages     int
	Workers        int
	PagesCompleted int
	PagesFailed    int
	Items          int
	PointsAdded    int
	// Elapsed covers collection and point filtering.
	Elapsed   time.Duration
	Document  []byte
	Storage   string
	Reference *publish.Reference
}

// Job generates and publishes the map.
type Job struct {
	opts   Options
	logger zerolog.Logger
}

// New validates options and fills defaults.
func New(opts Options) (*Job, error) {
	if opts.Publisher == nil {
		return nil, ErrNoPublisher
	}
	if opts.Renderer == nil {
		r, err := render.NewLeafletRenderer(render.DefaultConfig())
		if err != nil {
			return nil, err
		}
		opts.Renderer = r
	}
	if opts.Palette == nil {
		opts.Palette = points.DefaultPalette()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Bucket == "" || opts.Key == "" {
		return nil, publish.ErrEmptyDestination
	}

	logger := log.With().Str("component", "job").Logger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Job{opts: opts, logger: logger}, nil
}

// Run performs one map generation. The bearer token is checked before any
// network call. Per-page failures are absorbed into the result counters; only
// a missing token, a failed page-count probe, a rendering failure or a
// publish failure (as *PublishError) end the run with an error.
func (j *Job) Run(ctx context.Context) (*Result, error) {
	result := &Result{StartedAt: j.opts.Now()}
	runStart := time.Now()

	err := j.run(ctx, result)

	jobDuration.Observe(time.Since(runStart).Seconds())
	jobRunsTotal.WithLabelValues(runResult(err)).Inc()
	if err != nil {
		j.logger.Error().Err(err).Bool("publish_failure", IsPublishError(err)).Msg("Map generation failed")
	}

	j.recordStatus(ctx, result, err)

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (j *Job) run(ctx context.Context, result *Result) error {
	api, err := client.New(j.opts.API)
	if err != nil {
		return err
	}

	totalPages, err := api.FetchTotalPages(ctx)
	if err != nil {
		return err
	}
	result.TotalPages = totalPages

	collectStart := time.Now()
	report, err := pagination.NewCollector(j.opts.Collector).Collect(ctx, totalPages, api.FetchPage)
	if err != nil {
		return fmt.Errorf("collect pages: %w", err)
	}

	pts, stats := points.NormalizeWithStats(report.Items, j.opts.Palette)
	result.Elapsed = time.Since(collectStart)

	result.Workers = report.Workers
	result.PagesCompleted = report.PagesCompleted
	result.PagesFailed = report.PagesFailed
	result.Items = len(report.Items)
	result.PointsAdded = len(pts)

	j.logger.Info().
		Int("items", result.Items).
		Int("points", result.PointsAdded).
		Interface("dropped", stats.Dropped).
		Dur("duration", result.Elapsed).
		Msg("Points processed")

	doc, err := j.render(pts, result)
	if err != nil {
		return err
	}
	result.Document = doc
	result.Storage = j.opts.Publisher.Name()

	ref, err := j.opts.Publisher.Publish(ctx, doc, j.opts.Bucket, j.opts.Key, render.ContentType)
	if err != nil {
		return &PublishError{
			Backend: j.opts.Publisher.Name(),
			Bucket:  j.opts.Bucket,
			Key:     j.opts.Key,
			Err:     err,
		}
	}
	result.Reference = ref

	j.logger.Info().
		Str("location", ref.Location).
		Int("points", result.PointsAdded).
		Msg("Map published")

	return nil
}

func (j *Job) render(pts []points.Point, result *Result) ([]byte, error) {
	title := render.Title(j.opts.Now().In(j.opts.Location))

	if j.opts.CompletionAlert {
		if nr, ok := j.opts.Renderer.(render.NoticeRenderer); ok {
			notice := render.CompletionNotice(result.PointsAdded, result.Elapsed)
			doc, err := nr.RenderWithNotice(pts, title, notice)
			if err != nil {
				return nil, fmt.Errorf("render map: %w", err)
			}
			return doc, nil
		}
		j.logger.Warn().Msg("Renderer does not support completion notices")
	}

	doc, err := j.opts.Renderer.Render(pts, title)
	if err != nil {
		return nil, fmt.Errorf("render map: %w", err)
	}
	return doc, nil
}

// recordStatus stores the run summary. Failures are logged and never change
// the run outcome.
func (j *Job) recordStatus(ctx context.Context, result *Result, runErr error) {
	if j.opts.Status == nil {
		return
	}

	summary := status.Summary{
		State:          status.StateSuccess,
		StartedAt:      result.StartedAt,
		FinishedAt:     j.opts.Now(),
		TotalPages:     result.TotalPages,
		PagesCompleted: result.PagesCompleted,
		PagesFailed:    result.PagesFailed,
		Items:          result.Items,
		PointsAdded:    result.PointsAdded,
		ElapsedSeconds: result.Elapsed.Seconds(),
	}
	if result.Reference != nil {
		summary.Location = result.Reference.Location
	}
	if runErr != nil {
		summary.State = status.StateFailed
		summary.Error = runErr.Error()
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()

	if err := j.opts.Status.Record(writeCtx, summary); err != nil {
		j.logger.Warn().Err(err).Msg("Failed to record run status")
	}
}

// runResult labels a finished run for airmap_job_runs_total.
func runResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsPublishError(err):
		return "publish_failed"
	default:
		return "failed"
	}
}
