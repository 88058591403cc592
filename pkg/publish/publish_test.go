package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNew_Backends(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantName string
		wantHost string
		wantErr  bool
	}{
		{
			name:     "s3 default endpoint",
			config:   Config{Backend: "s3", AccessKey: "AKIA", SecretKey: "secret"},
			wantName: "S3",
			wantHost: "s3.amazonaws.com",
		},
		{
			name:     "gcs interop endpoint",
			config:   Config{Backend: "GCS", AccessKey: "GOOG", SecretKey: "secret"},
			wantName: "Google Cloud Storage",
			wantHost: "storage.googleapis.com",
		},
		{
			name:     "minio custom endpoint",
			config:   Config{Backend: "minio", Endpoint: "localhost:9000", AccessKey: "minio", SecretKey: "minio123"},
			wantName: "MinIO",
			wantHost: "localhost:9000",
		},
		{
			name:    "minio without endpoint",
			config:  Config{Backend: "minio"},
			wantErr: true,
		},
		{
			name:     "file",
			config:   Config{Backend: "file", Directory: t.TempDir()},
			wantName: "local",
		},
		{
			name:    "file without directory",
			config:  Config{Backend: "file"},
			wantErr: true,
		},
		{
			name:    "unknown",
			config:  Config{Backend: "ftp"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.wantName)
			}
			if tt.wantHost != "" {
				store := p.(*ObjectStore)
				if host := store.client.EndpointURL().Host; host != tt.wantHost {
					t.Errorf("endpoint host = %q, want %q", host, tt.wantHost)
				}
			}
		})
	}
}

func TestNew_UnknownBackendError(t *testing.T) {
	_, err := New(Config{Backend: "tape"})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("error = %v, want ErrUnknownBackend", err)
	}
}

func TestObjectStore_Location(t *testing.T) {
	store, err := NewObjectStore(Config{Backend: "s3", AccessKey: "a", SecretKey: "b"})
	if err != nil {
		t.Fatalf("NewObjectStore() error = %v", err)
	}

	got := store.location("inpost-map-data", "index.html")
	want := "https://s3.amazonaws.com/inpost-map-data/index.html"
	if got != want {
		t.Errorf("location() = %q, want %q", got, want)
	}
}

func TestObjectStore_EmptyDestination(t *testing.T) {
	store, err := NewObjectStore(Config{Backend: "s3", AccessKey: "a", SecretKey: "b"})
	if err != nil {
		t.Fatalf("NewObjectStore() error = %v", err)
	}

	_, err = store.Publish(context.Background(), []byte("x"), "", "index.html", "text/html")
	if !errors.Is(err, ErrEmptyDestination) {
		t.Errorf("error = %v, want ErrEmptyDestination", err)
	}
}

func TestFileStore_Publish(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	doc := []byte("<html>map</html>")
	ref, err := store.Publish(context.Background(), doc, "inpost-map-data", "maps/index.html", "text/html")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	written, err := os.ReadFile(filepath.Join(dir, "inpost-map-data", "maps", "index.html"))
	if err != nil {
		t.Fatalf("read published file: %v", err)
	}
	if string(written) != string(doc) {
		t.Errorf("file content = %q, want %q", written, doc)
	}

	if ref.Backend != BackendFile || ref.Bucket != "inpost-map-data" || ref.Key != "maps/index.html" {
		t.Errorf("unexpected reference %+v", ref)
	}
	if ref.Size != int64(len(doc)) {
		t.Errorf("Size = %d, want %d", ref.Size, len(doc))
	}
}

func TestFileStore_Overwrites(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStore(dir)
	ctx := context.Background()

	if _, err := store.Publish(ctx, []byte("first"), "b", "index.html", "text/html"); err != nil {
		t.Fatalf("first Publish() error = %v", err)
	}
	if _, err := store.Publish(ctx, []byte("second"), "b", "index.html", "text/html"); err != nil {
		t.Fatalf("second Publish() error = %v", err)
	}

	got, _ := os.ReadFile(filepath.Join(dir, "b", "index.html"))
	if string(got) != "second" {
		t.Errorf("content = %q, want %q", got, "second")
	}
}

func TestFileStore_RejectsEscapingKey(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())

	if _, err := store.Publish(context.Background(), []byte("x"), "b", "../../etc/passwd", "text/html"); err == nil {
		t.Error("expected error for key escaping the bucket directory")
	}
}

func TestFileStore_CancelledContext(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Publish(ctx, []byte("x"), "b", "index.html", "text/html"); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
