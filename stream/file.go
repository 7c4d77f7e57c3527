package stream

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"github.com/pkg/errors"
)

const filePerm = 0644

var (
	_ Handle  = (*File)(nil)
	_ Sizer   = (*File)(nil)
	_ Exister = (*File)(nil)
	_ Stager  = (*File)(nil)
)

// FileOption configures a file handle.
type FileOption func(*File)

// Atomic makes writers of the file handle write to a temporary file first.
// The file is replaced with the new content only when the writer is closed.
func Atomic() FileOption {
	return func(f *File) {
		f.atomic = true
	}
}

// WithName sets a logical name of the file handle. Defaults to the base name of the path.
func WithName(name string) FileOption {
	return func(f *File) {
		f.name = name
	}
}

// NewFile creates a handle for a file at a given path. The file may not exist yet.
func NewFile(path string, opts ...FileOption) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &IOError{Op: "abs", Path: path, Err: err}
	}
	f := &File{path: abs, name: filepath.Base(abs)}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// OpenFile is like NewFile, but requires the file to exist.
func OpenFile(path string, opts ...FileOption) (*File, error) {
	f, err := NewFile(path, opts...)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(f.path)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNotFound, "open %s", f.path)
	} else if err != nil {
		return nil, &IOError{Op: "stat", Path: f.path, Err: err}
	} else if st.IsDir() {
		return nil, &IOError{Op: "open", Path: f.path, Err: errors.New("is a directory")}
	}
	return f, nil
}

// File is a handle of a file in the local filesystem.
type File struct {
	path   string
	name   string
	atomic bool
}

// Provenance returns an absolute path of the file.
func (f *File) Provenance() string { return f.path }
func (f *File) Name() string       { return f.name }

// Staged returns a copy of the handle with atomic writes enabled.
func (f *File) Staged() Handle {
	if f.atomic {
		return f
	}
	f2 := *f
	f2.atomic = true
	return &f2
}

// Path returns an absolute path of the file.
func (f *File) Path() string { return f.path }

func (f *File) Exists() (bool, error) {
	_, err := os.Stat(f.path)
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, &IOError{Op: "stat", Path: f.path, Err: err}
	}
	return true, nil
}

func (f *File) Size() (int64, error) {
	st, err := os.Stat(f.path)
	if os.IsNotExist(err) {
		return 0, errors.Wrapf(ErrNotFound, "stat %s", f.path)
	} else if err != nil {
		return 0, &IOError{Op: "stat", Path: f.path, Err: err}
	}
	return st.Size(), nil
}

func (f *File) Reader() (io.ReadCloser, error) {
	fd, err := os.Open(f.path)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNotFound, "open %s", f.path)
	} else if err != nil {
		return nil, &IOError{Op: "open", Path: f.path, Err: err}
	}
	adviseSequential(fd)
	return fd, nil
}

func (f *File) Writer() (io.WriteCloser, error) {
	if f.atomic {
		pf, err := renameio.TempFile("", f.path)
		if err != nil {
			return nil, &IOError{Op: "create", Path: f.path, Err: err}
		}
		return &atomicWriter{pf: pf, path: f.path}, nil
	}
	fd, err := os.OpenFile(f.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return nil, &IOError{Op: "create", Path: f.path, Err: err}
	}
	return fd, nil
}

// atomicWriter writes to a temporary file and renames it over the destination on Close.
type atomicWriter struct {
	pf   *renameio.PendingFile
	path string
}

func (w *atomicWriter) File() *os.File {
	return w.pf.File
}

func (w *atomicWriter) Write(p []byte) (int, error) {
	return w.pf.Write(p)
}

func (w *atomicWriter) Close() error {
	if err := w.pf.Chmod(filePerm); err != nil {
		w.pf.Cleanup()
		return &IOError{Op: "chmod", Path: w.path, Err: err}
	}
	if err := w.pf.CloseAtomicallyReplace(); err != nil {
		w.pf.Cleanup()
		return &IOError{Op: "rename", Path: w.path, Err: err}
	}
	return nil
}

func (w *atomicWriter) Discard() error {
	return w.pf.Cleanup()
}
