package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Default endpoints per backend.
const (
	endpointS3  = "s3.amazonaws.com"
	endpointGCS = "storage.googleapis.com"
)

var displayNames = map[string]string{
	BackendS3:    "S3",
	BackendGCS:   "Google Cloud Storage",
	BackendMinio: "MinIO",
}

// ObjectStore publishes documents to an S3-compatible bucket.
type ObjectStore struct {
	client  *miniogo.Client
	backend string
	logger  zerolog.Logger
}

// NewObjectStore creates an S3-compatible publisher.
// Without static keys the AWS/MinIO environment variables and the IAM role
// of the runtime are tried in order.
func NewObjectStore(cfg Config) (*ObjectStore, error) {
	backend := strings.ToLower(cfg.Backend)
	if backend == "" {
		backend = BackendS3
	}

	endpoint := cfg.Endpoint
	secure := cfg.UseSSL
	switch {
	case endpoint != "":
	case backend == BackendS3:
		endpoint, secure = endpointS3, true
	case backend == BackendGCS:
		endpoint, secure = endpointGCS, true
	default:
		return nil, errors.New("minio backend requires an endpoint")
	}

	var creds *credentials.Credentials
	if cfg.AccessKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken)
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
			&credentials.IAM{Client: &http.Client{Transport: http.DefaultTransport}},
		})
	}

	client, err := miniogo.New(endpoint, &miniogo.Options{
		Creds:  creds,
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	return &ObjectStore{
		client:  client,
		backend: backend,
		logger:  log.With().Str("component", "publisher").Str("backend", backend).Logger(),
	}, nil
}

// Name implements Publisher.
func (s *ObjectStore) Name() string {
	if name, ok := displayNames[s.backend]; ok {
		return name
	}
	return s.backend
}

// Publish uploads the document with the given content type.
func (s *ObjectStore) Publish(ctx context.Context, doc []byte, bucket, key, contentType string) (*Reference, error) {
	if err := validateDestination(bucket, key); err != nil {
		return nil, err
	}

	start := time.Now()
	info, err := s.client.PutObject(
		ctx,
		bucket,
		key,
		bytes.NewReader(doc),
		int64(len(doc)),
		miniogo.PutObjectOptions{
			ContentType:  contentType,
			CacheControl: "no-cache",
			UserMetadata: map[string]string{
				"generated-at": start.UTC().Format(time.RFC3339),
			},
		},
	)
	publishDuration.WithLabelValues(s.backend).Observe(time.Since(start).Seconds())
	if err != nil {
		publishTotal.WithLabelValues(s.backend, "error").Inc()
		return nil, fmt.Errorf("failed to upload %s/%s: %w", bucket, key, err)
	}
	publishTotal.WithLabelValues(s.backend, "ok").Inc()

	ref := &Reference{
		Backend:  s.backend,
		Bucket:   bucket,
		Key:      key,
		Location: s.location(bucket, key),
		ETag:     info.ETag,
		Size:     info.Size,
	}

	s.logger.Info().
		Str("bucket", bucket).
		Str("key", key).
		Int64("size", info.Size).
		Msg("Uploaded document")

	return ref, nil
}

// location returns the path-style URL of an object.
func (s *ObjectStore) location(bucket, key string) string {
	endpoint := s.client.EndpointURL()
	return fmt.Sprintf("%s://%s/%s/%s", endpoint.Scheme, endpoint.Host, bucket, key)
}
