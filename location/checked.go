package location

import (
	"context"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/dennwc/fileref/stream"
	"github.com/dennwc/fileref/types"
	"github.com/dennwc/fileref/xattr"
)

const (
	xattrNS     = "fileref."
	xattrDigest = xattrNS + "digest"
	xattrSize   = xattrNS + "size"
	xattrMtime  = xattrNS + "mtime"
)

var (
	_ Strategy = (*Checked)(nil)
	_ Recorder = (*Checked)(nil)
)

// NewChecked wraps a directory strategy to reuse existing files only if their content matches the digest.
//
// Digests of files are cached in extended attributes together with the size
// and the modification time of the file. If the filesystem has no support for
// them, the file is hashed on each resolution.
func NewChecked(d *Dir, log *slog.Logger) *Checked {
	if log == nil {
		log = slog.Default()
	}
	return &Checked{Dir: d, log: log}
}

// Checked is a directory strategy that compares the digest of existing files.
type Checked struct {
	*Dir
	log *slog.Logger
}

func (c *Checked) ResolveWithDigest(ctx context.Context, key, name string, d types.Digest) (stream.Handle, bool, error) {
	f, err := c.resolve(key, name)
	if err != nil {
		return nil, false, err
	}
	got, err := c.fileDigest(f.Path())
	if errors.Is(err, stream.ErrNotFound) {
		return f, true, nil
	} else if err != nil {
		return nil, false, err
	}
	if got != d {
		c.log.Debug("stale local copy", "path", f.Path(), "exp", d, "got", got)
		return f, true, nil
	}
	return f, false, nil
}

// Record stores the digest of a materialized file in its metadata.
func (c *Checked) Record(h stream.Handle, d types.Digest) error {
	sf, ok := h.(*stream.File)
	if !ok {
		return nil
	}
	f, err := os.Open(sf.Path())
	if err != nil {
		return &stream.IOError{Op: "open", Path: sf.Path(), Err: err}
	}
	defer f.Close()
	return saveDigest(f, nil, d)
}

// fileDigest returns a digest of the file, either from the metadata or by hashing the content.
func (c *Checked) fileDigest(path string) (types.Digest, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return types.Digest{}, errors.Wrapf(stream.ErrNotFound, "open %s", path)
	} else if err != nil {
		return types.Digest{}, &stream.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return types.Digest{}, &stream.IOError{Op: "stat", Path: path, Err: err}
	}
	if d, ok := cachedDigest(f, st); ok {
		return d, nil
	}
	sd, err := types.Hash(f)
	if err != nil {
		return types.Digest{}, &stream.IOError{Op: "read", Path: path, Err: err}
	}
	if err = saveDigest(f, st, sd.Digest); err != nil && !xattr.Unsupported(err) {
		c.log.Warn("cannot cache digest", "path", path, "err", err)
	}
	return sd.Digest, nil
}

// cachedDigest returns the digest stored in the file metadata, if it's still valid.
func cachedDigest(f *os.File, st os.FileInfo) (types.Digest, bool) {
	s, err := xattr.GetString(f, xattrDigest)
	if err != nil || s == "" {
		return types.Digest{}, false
	}
	d, err := types.ParseDigest(s)
	if err != nil {
		return types.Digest{}, false
	}
	// the digest is only valid for the same size and mtime
	size, err := xattr.GetUint(f, xattrSize)
	if err != nil || size != uint64(st.Size()) {
		return types.Digest{}, false
	}
	mtime, err := xattr.GetTime(f, xattrMtime)
	if err != nil || !mtime.Equal(st.ModTime()) {
		return types.Digest{}, false
	}
	return d, true
}

// saveDigest stores the digest into file's metadata, together with the size and mtime.
// If fi is set, the digest is not saved when the file was modified since.
func saveDigest(f *os.File, fi os.FileInfo, d types.Digest) error {
	st, err := f.Stat()
	if err != nil {
		return err
	}
	if fi != nil {
		if st.Size() != fi.Size() || !st.ModTime().Equal(fi.ModTime()) {
			// file was already modified
			return nil
		}
	}
	if err = xattr.SetUint(f, xattrSize, uint64(st.Size())); err != nil {
		return err
	}
	if err = xattr.SetTime(f, xattrMtime, st.ModTime()); err != nil {
		return err
	}
	return xattr.SetString(f, xattrDigest, d.String())
}
