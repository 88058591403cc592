package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// FileStore publishes documents to a local directory, mainly for dry runs.
type FileStore struct {
	root string
}

// NewFileStore creates a file publisher rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file backend requires a directory")
	}
	return &FileStore{root: dir}, nil
}

// Name implements Publisher.
func (s *FileStore) Name() string {
	return "local"
}

// Publish writes the document to root/bucket/key. The content type is not stored.
func (s *FileStore) Publish(ctx context.Context, doc []byte, bucket, key, contentType string) (*Reference, error) {
	if err := validateDestination(bucket, key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target := filepath.Join(s.root, bucket, filepath.FromSlash(key))
	base := filepath.Join(s.root, bucket) + string(filepath.Separator)
	if !strings.HasPrefix(target, base) {
		return nil, fmt.Errorf("key %q escapes bucket directory", key)
	}

	start := time.Now()
	err := writeFile(target, doc)
	publishDuration.WithLabelValues(BackendFile).Observe(time.Since(start).Seconds())
	if err != nil {
		publishTotal.WithLabelValues(BackendFile, "error").Inc()
		return nil, err
	}
	publishTotal.WithLabelValues(BackendFile, "ok").Inc()

	log.Info().Str("component", "publisher").Str("path", target).Msg("Wrote document")

	return &Reference{
		Backend:  BackendFile,
		Bucket:   bucket,
		Key:      key,
		Location: "file://" + filepath.ToSlash(target),
		Size:     int64(len(doc)),
	}, nil
}

// writeFile replaces target atomically via a temporary file in the same directory.
func writeFile(target string, doc []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		return fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close document: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod document: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("rename document: %w", err)
	}
	return nil
}
