package fileref

import (
	"bytes"
	"context"
	"crypto/sha1"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/dennwc/fileref/location"
	"github.com/dennwc/fileref/location/httploc"
	"github.com/dennwc/fileref/stream"
	"github.com/dennwc/fileref/transfer"
	"github.com/dennwc/fileref/types"
)

func newRegistry(t testing.TB) (*location.Registry, string) {
	root := t.TempDir()
	return location.NewRegistry(location.NewKeyDir(root)), root
}

func readAll(t testing.TB, h stream.Handle) []byte {
	rc, err := h.Reader()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func sixteen() []byte {
	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(i + 1)
	}
	return data
}

func TestDumpLoad(t *testing.T) {
	ctx := context.Background()
	data := sixteen()

	col := NewColumn(nil, nil)
	rec, err := col.Dump(stream.NewMemory("sixteen.bin", data))
	require.NoError(t, err)
	require.Equal(t, data, rec.Blob)
	d := sha1.Sum(data)
	require.Equal(t, "sixteen.bin;"+types.Digest(d).String(), rec.Info)

	reg, root := newRegistry(t)
	col = NewColumn(reg, &Options{})
	h, err := col.LoadRecord(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "sixteen.bin"), h.Provenance())
	require.Equal(t, data, readAll(t, h))

	// second load reuses the materialized file and does not read the raw content
	h2, err := col.Load(ctx, nil, rec.Info)
	require.NoError(t, err)
	require.Equal(t, h.Provenance(), h2.Provenance())
	require.Equal(t, data, readAll(t, h2))
}

func TestDumpFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.dat")
	data := bytes.Repeat([]byte{0xAB}, 3*transfer.ChunkSize+7)
	require.NoError(t, os.WriteFile(path, data, 0644))

	f, err := stream.OpenFile(path)
	require.NoError(t, err)
	rec, err := NewColumn(nil, nil).Dump(f)
	require.NoError(t, err)
	require.Equal(t, data, rec.Blob)

	ref, err := rec.Ref()
	require.NoError(t, err)
	require.Equal(t, "input.dat", ref.Name)
	require.Equal(t, types.DigestOf(data), ref.Digest)
}

func TestLoadLocation(t *testing.T) {
	ctx := context.Background()
	reg, root := newRegistry(t)
	photos := t.TempDir()
	reg.Register("photos", location.NewDir(photos))

	rec, err := NewColumn(nil, nil).Dump(stream.NewMemory("x", []byte("data")))
	require.NoError(t, err)

	h, err := NewColumn(reg, &Options{Location: "photos"}).LoadRecord(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(photos, "x"), h.Provenance())

	// unregistered keys name a directory for the default strategy
	other := t.TempDir()
	h, err = NewColumn(reg, &Options{Location: other}).LoadRecord(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(other, "x"), h.Provenance())

	_, err = os.Stat(filepath.Join(root, "x"))
	require.True(t, os.IsNotExist(err))
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t)
	col := NewColumn(reg, nil)

	_, err := col.Load(ctx, bytes.NewReader(nil), "no separator")
	var ferr *types.FormatError
	require.True(t, errors.As(err, &ferr))

	_, err = col.Load(ctx, nil, "x;"+types.DigestOf(nil).String())
	require.Error(t, err)
}

func TestLoadStale(t *testing.T) {
	ctx := context.Background()
	reg, root := newRegistry(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "x"), []byte("stale"), 0644))

	rec, err := NewColumn(nil, nil).Dump(stream.NewMemory("x", []byte("fresh data")))
	require.NoError(t, err)

	// the default strategy reuses files by name
	h, err := NewColumn(reg, nil).LoadRecord(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, []byte("stale"), readAll(t, h))

	// the checked strategy compares digests
	reg.Register("checked", location.NewChecked(location.NewDir(root), nil))
	h, err = NewColumn(reg, &Options{Location: "checked"}).LoadRecord(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, []byte("fresh data"), readAll(t, h))

	_, need, err := NewColumn(reg, &Options{Location: "checked"}).Resolve(ctx, types.MustParseRef(rec.Info))
	require.NoError(t, err)
	require.False(t, need)
}

func TestLoadVerify(t *testing.T) {
	ctx := context.Background()
	reg, root := newRegistry(t)
	rec, err := NewColumn(nil, nil).Dump(stream.NewMemory("x", []byte("content")))
	require.NoError(t, err)

	rec.Blob = []byte("corrupted")
	col := NewColumn(reg, &Options{Verify: true})
	for i := 0; i < 2; i++ {
		_, err = col.LoadRecord(ctx, rec)
		var mm *transfer.ErrDigestMismatch
		require.True(t, errors.As(err, &mm), "unexpected error: %v", err)

		_, need, err := col.Resolve(ctx, types.MustParseRef(rec.Info))
		require.NoError(t, err)
		require.True(t, need)
	}
	_, err = os.Stat(filepath.Join(root, "x"))
	require.True(t, os.IsNotExist(err))

	// without verification the content is materialized as is
	h, err := NewColumn(reg, nil).LoadRecord(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "x"), h.Provenance())
	require.Equal(t, []byte("corrupted"), readAll(t, h))
}

func TestLoadRemote(t *testing.T) {
	ctx := context.Background()
	remote := location.NewDir(t.TempDir())
	hs := httptest.NewServer(httploc.NewServer(remote, "", ""))
	defer hs.Close()

	cli := httploc.New(hs.URL)
	cli.SetHTTPClient(hs.Client())

	reg, _ := newRegistry(t)
	reg.Register("remote", cli)

	data := sixteen()
	rec, err := NewColumn(nil, nil).Dump(stream.NewMemory("remote.bin", data))
	require.NoError(t, err)

	col := NewColumn(reg, &Options{Location: "remote"})
	h, err := col.LoadRecord(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, hs.URL+"/blobs/remote.bin", h.Provenance())
	require.Equal(t, data, readAll(t, h))

	_, need, err := col.Resolve(ctx, types.MustParseRef(rec.Info))
	require.NoError(t, err)
	require.False(t, need)
}
