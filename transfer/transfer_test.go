package transfer

import (
	"bytes"
	"crypto/sha1"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"testing/iotest"

	"github.com/hlubek/readercomp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/dennwc/fileref/stream"
	"github.com/dennwc/fileref/types"
)

var sizes = []int{
	0, 1, 100,
	ChunkSize - 1, ChunkSize, ChunkSize + 1,
	3 * ChunkSize, 3*ChunkSize + 17,
	100 * 1024,
}

func testData(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i*31 + i/7)
	}
	return p
}

var readers = []struct {
	name string
	wrap func(io.Reader) io.Reader
}{
	{"plain", func(r io.Reader) io.Reader { return r }},
	{"one byte", iotest.OneByteReader},
	{"half", iotest.HalfReader},
	{"data err", iotest.DataErrReader},
}

func TestCopy(t *testing.T) {
	for _, sz := range sizes {
		data := testData(sz)
		for _, rd := range readers {
			rd := rd
			t.Run(strconv.Itoa(sz)+"/"+rd.name, func(t *testing.T) {
				var buf bytes.Buffer
				n, err := Copy(&buf, rd.wrap(bytes.NewReader(data)))
				require.NoError(t, err)
				require.Equal(t, int64(sz), n)
				ok, err := readercomp.Equal(bytes.NewReader(data), &buf, 4096)
				require.NoError(t, err)
				require.True(t, ok)
			})
		}
	}
}

type chunkRecorder struct {
	chunks []int
}

func (w *chunkRecorder) Write(p []byte) (int, error) {
	w.chunks = append(w.chunks, len(p))
	return len(p), nil
}

func TestCopyChunks(t *testing.T) {
	var w chunkRecorder
	n, err := Copy(&w, iotest.OneByteReader(bytes.NewReader(testData(2*ChunkSize+10))))
	require.NoError(t, err)
	require.Equal(t, int64(2*ChunkSize+10), n)
	require.Equal(t, []int{ChunkSize, ChunkSize, 10}, w.chunks)
}

func TestCopyError(t *testing.T) {
	exp := errors.New("broken source")
	r := io.MultiReader(bytes.NewReader(testData(ChunkSize+5)), iotest.ErrReader(exp))
	var buf bytes.Buffer
	n, err := Copy(&buf, r)
	require.Equal(t, exp, err)
	// the last partial chunk is still written
	require.Equal(t, int64(ChunkSize+5), n)
	require.Equal(t, testData(ChunkSize+5), buf.Bytes())
}

func TestMaterializeFile(t *testing.T) {
	dir := t.TempDir()
	for _, sz := range sizes {
		data := testData(sz)
		h, err := stream.NewFile(filepath.Join(dir, "blob"+strconv.Itoa(sz)))
		require.NoError(t, err)

		n, err := Materialize(iotest.HalfReader(bytes.NewReader(data)), h)
		require.NoError(t, err)
		require.Equal(t, int64(sz), n)

		got, err := os.ReadFile(h.Path())
		require.NoError(t, err)
		require.Equal(t, data, got)
	}
}

func TestMaterializeFromFile(t *testing.T) {
	dir := t.TempDir()
	data := testData(5*ChunkSize + 3)
	src := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(src, data, 0644))

	for _, atomic := range []bool{false, true} {
		var opts []stream.FileOption
		if atomic {
			opts = append(opts, stream.Atomic())
		}
		h, err := stream.NewFile(filepath.Join(dir, "dst"+strconv.FormatBool(atomic)), opts...)
		require.NoError(t, err)

		f, err := os.Open(src)
		require.NoError(t, err)
		n, err := Materialize(f, h)
		f.Close()
		require.NoError(t, err)
		require.Equal(t, int64(len(data)), n)

		got, err := os.ReadFile(h.Path())
		require.NoError(t, err)
		require.Equal(t, data, got)
	}
}

func TestMaterializeMemory(t *testing.T) {
	data := testData(ChunkSize + 1)
	h := stream.NewMemory("m", make([]byte, len(data)))
	n, err := Materialize(bytes.NewReader(data), h)
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), n)
	require.Equal(t, data, h.Bytes())

	// does not fit
	_, err = Materialize(bytes.NewReader(testData(len(data)+1)), h)
	require.True(t, errors.Is(err, io.ErrShortBuffer), "unexpected error: %v", err)
	var ioerr *stream.IOError
	require.True(t, errors.As(err, &ioerr))
}

func TestMaterializeError(t *testing.T) {
	h, err := stream.NewFile(filepath.Join(t.TempDir(), "partial"), stream.Atomic())
	require.NoError(t, err)
	exp := errors.New("broken source")
	r := io.MultiReader(bytes.NewReader(testData(10)), iotest.ErrReader(exp))
	_, err = Materialize(r, h)
	var ioerr *stream.IOError
	require.True(t, errors.As(err, &ioerr))
	require.Equal(t, h.Provenance(), ioerr.Path)
	require.True(t, errors.Is(err, exp))

	// atomic writer leaves no partial output
	ok, err := h.Exists()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReadAndDigest(t *testing.T) {
	for _, sz := range sizes {
		data := testData(sz)
		exp := types.Digest(sha1.Sum(data))
		for _, rd := range readers {
			for _, hint := range []int64{-1, 0, int64(sz)} {
				got, d, err := ReadAndDigest(rd.wrap(bytes.NewReader(data)), hint)
				require.NoError(t, err)
				require.Equal(t, exp, d, "size: %d, reader: %s", sz, rd.name)
				require.Equal(t, len(data), len(got))
				require.True(t, bytes.Equal(data, got))
			}
		}
	}
}

func TestDigestHandle(t *testing.T) {
	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(i + 1)
	}
	h := stream.NewMemory("sixteen", data)
	got, ref, err := DigestRef(h)
	require.NoError(t, err)
	require.Equal(t, data, got)
	require.Equal(t, "sixteen", ref.Name)
	require.Equal(t, types.Digest(sha1.Sum(data)), ref.Digest)

	f, err := stream.NewFile(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	_, _, err = Digest(f)
	require.True(t, errors.Is(err, stream.ErrNotFound), "unexpected error: %v", err)
}

func TestHashWriter(t *testing.T) {
	w := NewHashWriter()
	data := testData(3*ChunkSize + 1)
	for i := 0; i < len(data); i += 1000 {
		end := i + 1000
		if end > len(data) {
			end = len(data)
		}
		_, err := w.Write(data[i:end])
		require.NoError(t, err)
	}
	require.Equal(t, types.SizedDigest{Digest: types.DigestOf(data), Size: uint64(len(data))}, w.Sum())
}

func TestVerifyReader(t *testing.T) {
	data := testData(ChunkSize * 2)
	var buf bytes.Buffer
	_, err := Copy(&buf, VerifyReader(bytes.NewReader(data), types.DigestOf(data)))
	require.NoError(t, err)
	require.Equal(t, data, buf.Bytes())

	buf.Reset()
	_, err = Copy(&buf, VerifyReader(bytes.NewReader(data), types.DigestOf(nil)))
	var mm *ErrDigestMismatch
	require.True(t, errors.As(err, &mm))
	require.Equal(t, types.DigestOf(data), mm.Got)
}
