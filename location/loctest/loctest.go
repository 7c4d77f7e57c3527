// Package loctest contains a common test suite for location strategies.
package loctest

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dennwc/fileref/location"
	"github.com/dennwc/fileref/stream"
	"github.com/dennwc/fileref/transfer"
	"github.com/dennwc/fileref/types"
)

// StrategyFunc creates a new empty strategy and returns the location key to test it with.
type StrategyFunc func(t testing.TB) (location.Strategy, string)

// RunTests runs the test suite for a strategy.
func RunTests(t *testing.T, fnc StrategyFunc) {
	t.Run("materialize", func(t *testing.T) {
		testMaterialize(t, fnc)
	})
	t.Run("empty", func(t *testing.T) {
		testEmpty(t, fnc)
	})
	t.Run("list", func(t *testing.T) {
		testList(t, fnc)
	})
}

func readHandle(t testing.TB, h stream.Handle) []byte {
	rc, err := h.Reader()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func testMaterialize(t *testing.T, fnc StrategyFunc) {
	s, key := fnc(t)
	ctx := context.Background()

	data := bytes.Repeat([]byte("useful data "), 1000)
	d := types.DigestOf(data)

	h1, need, err := s.ResolveWithDigest(ctx, key, "x", d)
	require.NoError(t, err)
	require.True(t, need)
	require.Equal(t, "x", h1.Name())

	h2, need, err := s.ResolveWithDigest(ctx, key, "x", d)
	require.NoError(t, err)
	require.True(t, need)
	require.Equal(t, h1.Provenance(), h2.Provenance())

	n, err := transfer.Materialize(bytes.NewReader(data), h1)
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), n)
	if r, ok := s.(location.Recorder); ok {
		require.NoError(t, r.Record(h1, d))
	}

	h3, need, err := s.ResolveWithDigest(ctx, key, "x", d)
	require.NoError(t, err)
	require.False(t, need)
	require.Equal(t, h1.Provenance(), h3.Provenance())

	got := readHandle(t, h3)
	require.Equal(t, data, got)

	h4, err := s.Resolve(ctx, key, "x")
	require.NoError(t, err)
	require.Equal(t, h1.Provenance(), h4.Provenance())

	_, gd, err := transfer.Digest(h4)
	require.NoError(t, err)
	require.Equal(t, d, gd)
}

func testEmpty(t *testing.T, fnc StrategyFunc) {
	s, key := fnc(t)
	ctx := context.Background()

	d := types.DigestOf(nil)
	h, need, err := s.ResolveWithDigest(ctx, key, "empty", d)
	require.NoError(t, err)
	require.True(t, need)

	n, err := transfer.Materialize(bytes.NewReader(nil), h)
	require.NoError(t, err)
	require.Equal(t, int64(0), n)

	_, need, err = s.ResolveWithDigest(ctx, key, "empty", d)
	require.NoError(t, err)
	require.False(t, need)

	got := readHandle(t, h)
	require.Len(t, got, 0)
}

func testList(t *testing.T, fnc StrategyFunc) {
	s, key := fnc(t)
	l, ok := s.(location.Lister)
	if !ok {
		t.Skip("strategy cannot list blobs")
	}
	ctx := context.Background()

	names, err := l.List(ctx, key)
	require.NoError(t, err)
	require.Empty(t, names)

	for _, name := range []string{"b", "a", "c"} {
		h, err := s.Resolve(ctx, key, name)
		require.NoError(t, err)
		_, err = transfer.Materialize(bytes.NewReader([]byte(name)), h)
		require.NoError(t, err)
	}
	names, err = l.List(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, names)
}
