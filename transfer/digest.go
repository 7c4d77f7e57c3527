package transfer

import (
	"hash"
	"io"

	"github.com/dennwc/fileref/stream"
	"github.com/dennwc/fileref/types"
)

// HashWriter computes a digest of all data written to it.
type HashWriter struct {
	h    hash.Hash
	size uint64
}

// NewHashWriter creates a writer that computes a running digest of the written data.
func NewHashWriter() *HashWriter {
	return &HashWriter{h: types.NewHash()}
}

func (w *HashWriter) Write(p []byte) (int, error) {
	n, err := w.h.Write(p)
	w.size += uint64(n)
	return n, err
}

// Size returns the number of bytes written so far.
func (w *HashWriter) Size() uint64 {
	return w.size
}

// Sum returns the digest of the data written so far.
func (w *HashWriter) Sum() types.SizedDigest {
	return types.SizedDigest{Digest: types.SumDigest(w.h), Size: w.size}
}

// ReadAndDigest reads src until EOF, returning the content and its digest.
// The buffer is preallocated for size bytes; a negative size means it is unknown.
//
// The digest is updated with every chunk as it is read.
func ReadAndDigest(src io.Reader, size int64) ([]byte, types.Digest, error) {
	if size < 0 {
		size = 0
	}
	hw := NewHashWriter()
	buf := make([]byte, 0, size)
	chunk := make([]byte, ChunkSize)
	for {
		n, err := src.Read(chunk)
		if n > 0 {
			hw.Write(chunk[:n])
			buf = append(buf, chunk[:n]...)
		}
		if err == io.EOF {
			break
		} else if err != nil {
			return buf, types.Digest{}, err
		}
	}
	return buf, hw.Sum().Digest, nil
}

// Digest reads the whole content of the handle and computes its digest.
func Digest(h stream.Handle) ([]byte, types.Digest, error) {
	size, err := stream.Size(h)
	if err != nil {
		return nil, types.Digest{}, err
	}
	rc, err := h.Reader()
	if err != nil {
		return nil, types.Digest{}, err
	}
	defer rc.Close()
	data, d, err := ReadAndDigest(rc, size)
	if err != nil {
		return nil, types.Digest{}, wrapIO("read", h, err)
	}
	return data, d, nil
}

// DigestRef reads the whole content of the handle and returns it with a reference to it.
func DigestRef(h stream.Handle) ([]byte, types.Ref, error) {
	data, d, err := Digest(h)
	if err != nil {
		return nil, types.Ref{}, err
	}
	ref, err := types.NewRef(h.Name(), d)
	if err != nil {
		return nil, types.Ref{}, err
	}
	return data, ref, nil
}
