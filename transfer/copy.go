// Package transfer moves blob content between streams.
package transfer

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/dennwc/fileref/stream"
)

// ChunkSize is the size of a single read during the transfer.
const ChunkSize = 4096

// Copy reads src in chunks of ChunkSize and writes each chunk to dst.
// It returns the number of bytes copied.
//
// Chunks are filled completely before being written, thus a short or empty
// chunk always marks the end of the stream, even for readers that return
// partial reads.
func Copy(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)
	var total int64
	for {
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			total += int64(wn)
			if werr != nil {
				return total, werr
			} else if wn != n {
				return total, io.ErrShortWrite
			}
		}
		switch err {
		case nil:
		case io.EOF, io.ErrUnexpectedEOF:
			// short chunk
			return total, nil
		default:
			return total, err
		}
	}
}

// Materialize copies the content of src into the resource of the handle.
//
// The writer of the handle is always released. If the transfer fails, writers
// that support it are discarded; others are closed and leave partial content.
func Materialize(src io.Reader, h stream.Handle) (int64, error) {
	w, err := h.Writer()
	if err != nil {
		return 0, err
	}
	n, err := materialize(w, src)
	if err != nil {
		if d, ok := w.(stream.Discarder); ok {
			d.Discard()
		} else {
			w.Close()
		}
		return n, wrapIO("materialize", h, err)
	}
	if err = w.Close(); err != nil {
		return n, wrapIO("close", h, err)
	}
	return n, nil
}

type osFile interface {
	File() *os.File
}

func asFile(v interface{}) *os.File {
	switch v := v.(type) {
	case *os.File:
		return v
	case osFile:
		return v.File()
	}
	return nil
}

func materialize(w io.Writer, src io.Reader) (int64, error) {
	if n, ok := cloneStream(w, src); ok {
		return n, nil
	}
	return Copy(w, src)
}

// cloneStream shares filesystem blocks of the source file with the destination, if possible.
// It only applies to a source that was not read yet and an empty destination.
func cloneStream(w io.Writer, src io.Reader) (int64, bool) {
	if !cloneSupported {
		return 0, false
	}
	sf, df := asFile(src), asFile(w)
	if sf == nil || df == nil {
		return 0, false
	}
	if off, err := sf.Seek(0, io.SeekCurrent); err != nil || off != 0 {
		return 0, false
	}
	if off, err := df.Seek(0, io.SeekCurrent); err != nil || off != 0 {
		return 0, false
	}
	st, err := sf.Stat()
	if err != nil || !st.Mode().IsRegular() {
		return 0, false
	}
	if err := cloneFile(df, sf); err != nil {
		return 0, false
	}
	// keep both offsets consistent with a regular copy
	if _, err := sf.Seek(0, io.SeekEnd); err != nil {
		return 0, false
	}
	if _, err := df.Seek(0, io.SeekEnd); err != nil {
		return 0, false
	}
	return st.Size(), true
}

func wrapIO(op string, h stream.Handle, err error) error {
	var ioerr *stream.IOError
	if errors.As(err, &ioerr) || errors.Is(err, stream.ErrNotFound) {
		return err
	}
	var mm *ErrDigestMismatch
	if errors.As(err, &mm) {
		return err
	}
	return &stream.IOError{Op: op, Path: h.Provenance(), Err: err}
}
