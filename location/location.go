// Package location resolves blob names to stream handles.
//
// A Strategy decides where a blob with a given name lives for a location key,
// and a Registry selects the strategy by the key.
package location

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/dennwc/fileref/stream"
	"github.com/dennwc/fileref/types"
)

// ErrInvalidName is returned when the blob name cannot be used by a strategy.
var ErrInvalidName = errors.New("location: invalid blob name")

// Strategy resolves blob names to handles.
//
// Resolution does not lock anything: two concurrent resolutions of the same
// name may both report that materialization is needed, and the last writer wins.
type Strategy interface {
	// Resolve returns a handle for the blob name at a location key.
	// An empty key selects the default location of the strategy.
	Resolve(ctx context.Context, key, name string) (stream.Handle, error)
	// ResolveWithDigest is like Resolve, but also reports whether the content
	// has to be materialized into the handle before it can be read.
	ResolveWithDigest(ctx context.Context, key, name string, d types.Digest) (stream.Handle, bool, error)
}

// Lister is implemented by strategies that can enumerate blob names.
type Lister interface {
	List(ctx context.Context, key string) ([]string, error)
}

// Recorder is implemented by strategies that track the content of materialized blobs.
type Recorder interface {
	// Record is called after the content with a given digest was written to the handle.
	Record(h stream.Handle, d types.Digest) error
}

// CheckName verifies that the name is a single path element.
// Names starting with a dot are reserved for temporary files.
func CheckName(name string) error {
	switch {
	case name == "", strings.HasPrefix(name, "."),
		strings.ContainsAny(name, `/\`),
		strings.ContainsRune(name, filepath.Separator):
		return errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return nil
}

// NeedsMaterialize reports whether the resource of the handle does not exist yet.
func NeedsMaterialize(h stream.Handle) (bool, error) {
	ok, err := stream.Exists(h)
	if err != nil {
		return false, err
	}
	return !ok, nil
}
