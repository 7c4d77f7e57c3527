package gcsloc

import (
	"context"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/dennwc/fileref/location"
	"github.com/dennwc/fileref/location/loctest"
)

func newOffline(t testing.TB) *Strategy {
	s, err := New(context.Background(), "bucket", "blobs/",
		option.WithoutAuthentication(),
		option.WithEndpoint("http://127.0.0.1:1/storage/v1/"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestResolve(t *testing.T) {
	s := newOffline(t)
	h, err := s.Resolve(context.Background(), "ignored", "photo.jpg")
	require.NoError(t, err)
	require.Equal(t, "gs://bucket/blobs/photo.jpg", h.Provenance())
	require.Equal(t, "photo.jpg", h.Name())

	_, err = s.Resolve(context.Background(), "", "a/b")
	require.True(t, errors.Is(err, location.ErrInvalidName))
}

func TestOpenConfig(t *testing.T) {
	_, err := location.Open(context.Background(), location.Config{Type: TypeGCS}, nil)
	require.Error(t, err)
}

// TestGCS runs against a bucket in a storage emulator, for example fake-gcs-server.
func TestGCS(t *testing.T) {
	if os.Getenv("STORAGE_EMULATOR_HOST") == "" {
		t.Skip("STORAGE_EMULATOR_HOST is not set")
	}
	bucket := os.Getenv("FILEREF_TEST_BUCKET")
	if bucket == "" {
		bucket = "fileref-test"
	}
	loctest.RunTests(t, func(t testing.TB) (location.Strategy, string) {
		ctx := context.Background()
		s, err := New(ctx, bucket, t.Name()+"/")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s, ""
	})
}
