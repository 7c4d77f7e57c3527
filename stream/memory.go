package stream

import (
	"bytes"
	"io"

	"github.com/google/uuid"
)

var (
	_ Handle  = (*Memory)(nil)
	_ Sizer   = (*Memory)(nil)
	_ Exister = (*Memory)(nil)
)

// NewMemory creates a handle over a fixed-size buffer.
// Readers and writers share the buffer; it is never resized.
func NewMemory(name string, buf []byte) *Memory {
	return &Memory{
		id:   "mem:" + uuid.NewString(),
		name: name,
		buf:  buf,
	}
}

// Memory is a handle backed by an in-process byte buffer.
type Memory struct {
	id   string
	name string
	buf  []byte
}

func (m *Memory) Provenance() string { return m.id }
func (m *Memory) Name() string       { return m.name }

// Bytes returns the underlying buffer.
func (m *Memory) Bytes() []byte { return m.buf }

func (m *Memory) Size() (int64, error) {
	return int64(len(m.buf)), nil
}

func (m *Memory) Exists() (bool, error) {
	return true, nil
}

func (m *Memory) Reader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.buf)), nil
}

func (m *Memory) Writer() (io.WriteCloser, error) {
	return &memWriter{m: m}, nil
}

type memWriter struct {
	m   *Memory
	off int
}

func (w *memWriter) Write(p []byte) (int, error) {
	if w.m == nil {
		return 0, io.ErrClosedPipe
	}
	n := copy(w.m.buf[w.off:], p)
	w.off += n
	if n < len(p) {
		return n, &IOError{Op: "write", Path: w.m.id, Err: io.ErrShortBuffer}
	}
	return n, nil
}

func (w *memWriter) Close() error {
	w.m = nil
	return nil
}
