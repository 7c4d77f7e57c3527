// Package gcsloc implements a location strategy that keeps blobs in a Google Cloud Storage bucket.
package gcsloc

import (
	"context"
	"io"
	"log/slog"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/dennwc/fileref/location"
	"github.com/dennwc/fileref/stream"
	"github.com/dennwc/fileref/types"
)

// TypeGCS is a type name of the strategy in configuration files.
const TypeGCS = "gcs"

// metaDigest is a metadata key for the digest of the object content.
const metaDigest = "fileref-digest"

var (
	_ location.Strategy = (*Strategy)(nil)
	_ location.Lister   = (*Strategy)(nil)
	_ location.Recorder = (*Strategy)(nil)

	_ stream.Handle  = (*Handle)(nil)
	_ stream.Sizer   = (*Handle)(nil)
	_ stream.Exister = (*Handle)(nil)
)

func init() {
	location.RegisterType(TypeGCS, func(ctx context.Context, c location.Config, _ *slog.Logger) (location.Strategy, error) {
		if c.Bucket == "" {
			return nil, errors.New("gcsloc: bucket is not set")
		}
		return New(ctx, c.Bucket, c.Prefix)
	})
}

// New creates a strategy that stores blobs as objects with a given prefix in the bucket.
// The location key is ignored.
func New(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*Strategy, error) {
	cli, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Strategy{cli: cli, bucket: bucket, b: cli.Bucket(bucket), prefix: prefix}, nil
}

// Strategy resolves blobs to objects in a GCS bucket.
type Strategy struct {
	cli    *gcs.Client
	bucket string
	b      *gcs.BucketHandle
	prefix string
}

func (s *Strategy) Close() error {
	return s.cli.Close()
}

func (s *Strategy) resolve(ctx context.Context, name string) (*Handle, error) {
	if err := location.CheckName(name); err != nil {
		return nil, err
	}
	obj := s.prefix + name
	return &Handle{
		ctx:  ctx,
		name: name,
		prov: "gs://" + s.bucket + "/" + obj,
		o:    s.b.Object(obj),
	}, nil
}

func (s *Strategy) Resolve(ctx context.Context, key, name string) (stream.Handle, error) {
	return s.resolve(ctx, name)
}

// ResolveWithDigest reports that the object has to be written if it does not exist,
// or if the digest recorded in its metadata differs from the expected one.
func (s *Strategy) ResolveWithDigest(ctx context.Context, key, name string, d types.Digest) (stream.Handle, bool, error) {
	h, err := s.resolve(ctx, name)
	if err != nil {
		return nil, false, err
	}
	attrs, err := h.attrs()
	if errors.Is(err, stream.ErrNotFound) {
		return h, true, nil
	} else if err != nil {
		return nil, false, err
	}
	if v, ok := attrs.Metadata[metaDigest]; ok && v != d.String() {
		return h, true, nil
	}
	return h, false, nil
}

// Record stores the digest in the object metadata.
func (s *Strategy) Record(sh stream.Handle, d types.Digest) error {
	h, ok := sh.(*Handle)
	if !ok {
		return nil
	}
	_, err := h.o.Update(h.ctx, gcs.ObjectAttrsToUpdate{
		Metadata: map[string]string{metaDigest: d.String()},
	})
	return err
}

func (s *Strategy) List(ctx context.Context, key string) ([]string, error) {
	it := s.b.Objects(ctx, &gcs.Query{Delimiter: "/", Prefix: s.prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		} else if err != nil {
			return nil, err
		}
		if attrs.Name == "" {
			// sub-prefix
			continue
		}
		names = append(names, strings.TrimPrefix(attrs.Name, s.prefix))
	}
	return names, nil
}

// Handle is an object in a GCS bucket.
type Handle struct {
	ctx  context.Context
	name string
	prov string
	o    *gcs.ObjectHandle
}

// Provenance returns a gs:// URL of the object.
func (h *Handle) Provenance() string { return h.prov }
func (h *Handle) Name() string       { return h.name }

func (h *Handle) attrs() (*gcs.ObjectAttrs, error) {
	attrs, err := h.o.Attrs(h.ctx)
	if err == gcs.ErrObjectNotExist {
		return nil, errors.Wrapf(stream.ErrNotFound, "stat %s", h.prov)
	} else if err != nil {
		return nil, &stream.IOError{Op: "stat", Path: h.prov, Err: err}
	}
	return attrs, nil
}

func (h *Handle) Exists() (bool, error) {
	_, err := h.attrs()
	if errors.Is(err, stream.ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (h *Handle) Size() (int64, error) {
	attrs, err := h.attrs()
	if err != nil {
		return 0, err
	}
	return attrs.Size, nil
}

func (h *Handle) Reader() (io.ReadCloser, error) {
	r, err := h.o.NewReader(h.ctx)
	if err == gcs.ErrObjectNotExist {
		return nil, errors.Wrapf(stream.ErrNotFound, "open %s", h.prov)
	} else if err != nil {
		return nil, &stream.IOError{Op: "open", Path: h.prov, Err: err}
	}
	return r, nil
}

// Writer uploads a new version of the object. The object is replaced when the writer is closed.
func (h *Handle) Writer() (io.WriteCloser, error) {
	ctx, discard := context.WithCancel(h.ctx)
	w := h.o.NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	return &objWriter{w: w, discard: discard}, nil
}

type objWriter struct {
	w       *gcs.Writer
	discard func()
}

func (w *objWriter) Write(p []byte) (int, error) {
	return w.w.Write(p)
}

func (w *objWriter) Close() error {
	defer w.discard()
	return w.w.Close()
}

// Discard cancels the upload; the object is left unchanged.
func (w *objWriter) Discard() error {
	w.discard()
	w.w.Close()
	return nil
}
