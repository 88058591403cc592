// Package publish stores rendered map documents in a bucket.
//
// One pipeline serves every deployment; only the Publisher differs:
//
//   - s3:    AWS S3 through the S3 API
//   - gcs:   Google Cloud Storage through its S3-compatible XML API (HMAC keys)
//   - minio: any other S3-compatible endpoint
//   - file:  a local directory, one sub-directory per bucket
package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sternrassler/inpost-airmap/pkg/metrics"
)

// Backend names.
const (
	BackendS3    = "s3"
	BackendGCS   = "gcs"
	BackendMinio = "minio"
	BackendFile  = "file"
)

var (
	// ErrUnknownBackend is returned for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown publisher backend")

	// ErrEmptyDestination is returned when bucket or key is empty.
	ErrEmptyDestination = errors.New("destination bucket and key are required")
)

var (
	publishTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "airmap_publish_total",
		Help: "Document publish attempts by backend and result",
	}, []string{"backend", "result"})

	publishDuration = promauto.With(metrics.Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "airmap_publish_duration_seconds",
		Help:    "Document publish duration in seconds by backend",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"backend"})
)

// Reference identifies a published document.
type Reference struct {
	Backend  string `json:"backend"`
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	Location string `json:"location"`
	ETag     string `json:"etag,omitempty"`
	Size     int64  `json:"size"`
}

// Publisher stores a document under bucket/key.
type Publisher interface {
	Publish(ctx context.Context, doc []byte, bucket, key, contentType string) (*Reference, error)
	// Name returns the human-readable storage name used in status messages.
	Name() string
}

// Config selects and configures a Publisher.
type Config struct {
	Backend string

	// Object storage
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	SessionToken string
	UseSSL       bool

	// File backend
	Directory string
}

// New builds the Publisher named by cfg.Backend.
func New(cfg Config) (Publisher, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendS3, BackendGCS, BackendMinio:
		return NewObjectStore(cfg)
	case BackendFile:
		return NewFileStore(cfg.Directory)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

func validateDestination(bucket, key string) error {
	if bucket == "" || key == "" {
		return ErrEmptyDestination
	}
	return nil
}
