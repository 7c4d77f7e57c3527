// Package stream defines handles over resources that can be read and written as byte streams.
package stream

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a resource is required to exist, but it doesn't.
	ErrNotFound = errors.New("stream: not found")
)

// IOError is returned when the underlying resource fails to read or write.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("stream: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Handle is a named resource with independently obtainable read and write streams.
//
// Callers must close every stream they acquire, including on error paths.
// Only one transfer is expected to be active on a handle at a time.
type Handle interface {
	// Provenance uniquely identifies the underlying resource instance.
	Provenance() string
	// Name is a logical name of the resource, matching the name in its reference.
	Name() string
	// Reader opens the resource for reading.
	Reader() (io.ReadCloser, error)
	// Writer opens the resource for writing, replacing its content.
	Writer() (io.WriteCloser, error)
}

// Sizer is implemented by handles that know the size of their content.
type Sizer interface {
	Size() (int64, error)
}

// Exister is implemented by handles that can check if the resource exists.
type Exister interface {
	Exists() (bool, error)
}

// Discarder is implemented by writers that can drop the data written so far.
// Discard releases the writer; Close should not be called after it.
type Discarder interface {
	Discard() error
}

// Stager is implemented by handles that can write through a staging area.
// Writers of the staged handle replace the resource only on a successful Close
// and drop all the written data on Discard.
type Stager interface {
	Staged() Handle
}

// Staged returns a staged version of the handle, if it supports one.
func Staged(h Handle) Handle {
	if s, ok := h.(Stager); ok {
		return s.Staged()
	}
	return h
}

// Exists checks if the resource behind the handle exists.
// Handles that cannot tell are probed by opening a reader.
func Exists(h Handle) (bool, error) {
	if e, ok := h.(Exister); ok {
		return e.Exists()
	}
	rc, err := h.Reader()
	if errors.Is(err, ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	rc.Close()
	return true, nil
}

// Size returns the size of the handle content, or -1 if it's unknown.
func Size(h Handle) (int64, error) {
	if s, ok := h.(Sizer); ok {
		return s.Size()
	}
	return -1, nil
}
