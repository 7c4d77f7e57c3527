package location

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"

	"github.com/dennwc/fileref/stream"
	"github.com/dennwc/fileref/types"
)

const (
	// AppName is the name of the directory for blobs in the user data directory.
	AppName = "fileref"

	dirPerm = 0755
)

var (
	_ Strategy = (*Dir)(nil)
	_ Lister   = (*Dir)(nil)
)

// DefaultRoot returns a directory for blobs in the user data directory.
func DefaultRoot() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// DirOption configures a directory strategy.
type DirOption func(*Dir)

// AtomicWrites makes all handles of the strategy replace files atomically.
func AtomicWrites() DirOption {
	return func(d *Dir) {
		d.fopts = append(d.fopts, stream.Atomic())
	}
}

// NewDir creates a strategy that keeps all blobs in one directory, regardless of the location key.
func NewDir(root string, opts ...DirOption) *Dir {
	d := &Dir{root: root}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewKeyDir creates a strategy that treats the location key as a directory path.
// An empty key selects the default root; if it is empty as well, DefaultRoot is used.
func NewKeyDir(defRoot string, opts ...DirOption) *Dir {
	d := NewDir(defRoot, opts...)
	d.byKey = true
	return d
}

// Dir is a strategy that stores blobs as files in a local directory.
// The digest is not used: an existing file with the same name is always reused.
type Dir struct {
	root  string
	byKey bool
	fopts []stream.FileOption

	once    sync.Once
	rootErr error
}

func (d *Dir) defaultRoot() (string, error) {
	d.once.Do(func() {
		if d.root == "" {
			d.root = DefaultRoot()
		}
		if err := os.MkdirAll(d.root, dirPerm); err != nil {
			d.rootErr = &stream.IOError{Op: "mkdir", Path: d.root, Err: err}
		}
	})
	return d.root, d.rootErr
}

// Root returns the directory used for a location key.
func (d *Dir) Root(key string) (string, error) {
	if d.byKey && key != "" {
		return key, nil
	}
	return d.defaultRoot()
}

func (d *Dir) resolve(key, name string) (*stream.File, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	root, err := d.Root(key)
	if err != nil {
		return nil, err
	}
	opts := append([]stream.FileOption{stream.WithName(name)}, d.fopts...)
	return stream.NewFile(filepath.Join(root, name), opts...)
}

func (d *Dir) Resolve(ctx context.Context, key, name string) (stream.Handle, error) {
	return d.resolve(key, name)
}

func (d *Dir) ResolveWithDigest(ctx context.Context, key, name string, _ types.Digest) (stream.Handle, bool, error) {
	f, err := d.resolve(key, name)
	if err != nil {
		return nil, false, err
	}
	need, err := NeedsMaterialize(f)
	if err != nil {
		return nil, false, err
	}
	return f, need, nil
}

// List returns names of all blobs in the directory of the location key.
func (d *Dir) List(ctx context.Context, key string) ([]string, error) {
	root, err := d.Root(key)
	if err != nil {
		return nil, err
	}
	ents, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, &stream.IOError{Op: "readdir", Path: root, Err: err}
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		// skip temporary files of atomic writes
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
