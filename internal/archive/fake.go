package archive

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
)

// InMemory is an S3Store backed by an in-process gofakes3 server.
type InMemory struct {
	*S3Store
	server *http.Server
}

// NewInMemory starts a gofakes3 server on a loopback port and returns a store
// pointing at a freshly created bucket.
func NewInMemory(ctx context.Context, bucketName string) (*InMemory, error) {
	faker := gofakes3.New(s3mem.New())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("archive: listen for fake s3: %w", err)
	}
	srv := &http.Server{
		Handler:           faker.Server(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("fake s3 server stopped", "error", err)
		}
	}()

	store, err := NewS3Store(ctx, S3Config{
		Endpoint:        "http://" + ln.Addr().String(),
		Region:          "us-east-1",
		AccessKeyID:     "fake-key",
		SecretAccessKey: "fake-secret",
		BucketName:      bucketName,
		UsePathStyle:    true,
	})
	if err != nil {
		_ = srv.Close()
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		_ = srv.Close()
		return nil, err
	}
	return &InMemory{S3Store: store, server: srv}, nil
}

// Close stops the fake S3 server.
func (m *InMemory) Close() error {
	return m.server.Close()
}

// TestStore returns an in-memory store that is closed when the test completes.
func TestStore(t testing.TB, bucketName string) *InMemory {
	t.Helper()

	store, err := NewInMemory(context.Background(), bucketName)
	if err != nil {
		t.Fatalf("failed to start in-memory archive: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
