package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/inpost-airmap/pkg/metrics"
)

// ErrNoRuns is returned when no summary has been recorded yet.
var ErrNoRuns = errors.New("no runs recorded")

// Prometheus metrics for recorded runs.
var (
	lastRunPoints = promauto.With(metrics.Registry).NewGauge(prometheus.GaugeOpts{
		Name: "airmap_last_run_points",
		Help: "Points placed on the map by the most recent run",
	})

	lastRunTimestamp = promauto.With(metrics.Registry).NewGauge(prometheus.GaugeOpts{
		Name: "airmap_last_run_timestamp_seconds",
		Help: "Unix time the most recent run finished",
	})

	runsRecordedTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "airmap_runs_recorded_total",
		Help: "Run summaries recorded by state",
	}, []string{"state"})
)

// Store keeps run summaries in Redis.
type Store struct {
	redis         *redis.Client
	historyLength int64
	logger        zerolog.Logger
}

// NewStore creates a new summary store.
func NewStore(redisClient *redis.Client, logger zerolog.Logger) *Store {
	return &Store{
		redis:         redisClient,
		historyLength: DefaultHistoryLength,
		logger:        logger,
	}
}

// Record stores the summary as the latest run and prepends it to the history.
func (s *Store) Record(ctx context.Context, summary Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	// Store atomically
	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, RedisKeyLast, data, 0)
	pipe.LPush(ctx, RedisKeyHistory, data)
	pipe.LTrim(ctx, RedisKeyHistory, 0, s.historyLength-1)
	pipe.Incr(ctx, RedisKeyRunsTotal)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store summary in redis: %w", err)
	}

	runsRecordedTotal.WithLabelValues(summary.State).Inc()
	if summary.Succeeded() {
		lastRunPoints.Set(float64(summary.PointsAdded))
	}
	lastRunTimestamp.Set(float64(summary.FinishedAt.Unix()))

	s.logger.Debug().
		Str("state", summary.State).
		Int("points_added", summary.PointsAdded).
		Msg("Run summary recorded")

	return nil
}

// Last returns the most recent summary, or ErrNoRuns.
func (s *Store) Last(ctx context.Context) (*Summary, error) {
	data, err := s.redis.Get(ctx, RedisKeyLast).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNoRuns
		}
		return nil, fmt.Errorf("get last summary: %w", err)
	}

	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("parse last summary: %w", err)
	}
	return &summary, nil
}

// History returns up to n summaries, newest first. Unparseable entries are skipped.
func (s *Store) History(ctx context.Context, n int) ([]Summary, error) {
	if n <= 0 {
		return []Summary{}, nil
	}

	entries, err := s.redis.LRange(ctx, RedisKeyHistory, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("get summary history: %w", err)
	}

	history := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		var summary Summary
		if err := json.Unmarshal([]byte(entry), &summary); err != nil {
			s.logger.Warn().Err(err).Msg("Skipping unparseable history entry")
			continue
		}
		history = append(history, summary)
	}
	return history, nil
}

// RunsTotal returns how many runs have been recorded.
func (s *Store) RunsTotal(ctx context.Context) (int64, error) {
	total, err := s.redis.Get(ctx, RedisKeyRunsTotal).Int64()
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("get runs total: %w", err)
	}
	return total, nil
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}
