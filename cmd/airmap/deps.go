package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/inpost-airmap/internal/config"
	"github.com/Sternrassler/inpost-airmap/pkg/client"
	"github.com/Sternrassler/inpost-airmap/pkg/job"
	"github.com/Sternrassler/inpost-airmap/pkg/logging"
	"github.com/Sternrassler/inpost-airmap/pkg/pagination"
	"github.com/Sternrassler/inpost-airmap/pkg/publish"
	"github.com/Sternrassler/inpost-airmap/pkg/render"
	"github.com/Sternrassler/inpost-airmap/pkg/status"
)

// deps holds everything a command needs to run jobs.
type deps struct {
	job    *job.Job
	status *status.Store
	redis  *redis.Client
}

// Close releases the Redis connection, if any.
func (d *deps) Close() {
	if d.redis != nil {
		d.redis.Close()
	}
}

// buildDeps wires the job from configuration. Redis is only connected when
// redis.addr is set.
func buildDeps(cfg *config.Config) (*deps, error) {
	palette, err := cfg.Palette()
	if err != nil {
		return nil, err
	}
	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	renderer, err := render.NewLeafletRenderer(render.Config{
		CenterLat:   cfg.Render.CenterLat,
		CenterLon:   cfg.Render.CenterLon,
		Zoom:        cfg.Render.Zoom,
		Radius:      cfg.Render.Radius,
		FillOpacity: cfg.Render.FillOpacity,
	})
	if err != nil {
		return nil, err
	}

	publisher, err := publish.New(publish.Config{
		Backend:   cfg.Publisher.Backend,
		Endpoint:  cfg.Publisher.Endpoint,
		Region:    cfg.Publisher.Region,
		AccessKey: cfg.Publisher.AccessKey,
		SecretKey: cfg.Publisher.SecretKey,
		UseSSL:    cfg.Publisher.UseSSL,
		Directory: cfg.Publisher.Directory,
	})
	if err != nil {
		return nil, fmt.Errorf("create publisher: %w", err)
	}

	d := &deps{}
	jobLogger := logging.NewLogger("job")
	opts := job.Options{
		API: client.Config{
			BaseURL:   cfg.API.BaseURL,
			Token:     cfg.API.Token,
			Timeout:   cfg.API.Timeout,
			UserAgent: cfg.API.UserAgent,
		},
		Collector: pagination.Config{
			MaxConcurrency:   cfg.Collector.MaxConcurrency,
			ProgressInterval: cfg.Collector.ProgressInterval,
		},
		Palette:         palette,
		Renderer:        renderer,
		Publisher:       publisher,
		Bucket:          cfg.Publisher.Bucket,
		Key:             cfg.Publisher.Key,
		CompletionAlert: cfg.Render.CompletionAlert,
		Location:        location,
		Logger:          &jobLogger,
	}

	if cfg.Redis.Addr != "" {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.status = status.NewStore(d.redis, logging.NewLogger("status"))
		opts.Status = d.status
	}

	d.job, err = job.New(opts)
	if err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// envelopeFor picks the envelope body configured by response.body.
func envelopeFor(cfg *config.Config, result *job.Result, err error) job.Envelope {
	if cfg.Response.Body == config.BodyHTML {
		return job.NewDocumentEnvelope(result, err)
	}
	return job.NewEnvelope(result, err)
}
