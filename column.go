// Package fileref stores large blobs as lightweight references.
//
// A record keeps the raw content of a blob and a short "name;digest" descriptor.
// When the record is loaded, the blob is resolved to a stream handle through a
// location strategy, and materialized from the raw content only if the strategy
// has no copy of it yet.
package fileref

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/dennwc/fileref/location"
	"github.com/dennwc/fileref/stream"
	"github.com/dennwc/fileref/transfer"
	"github.com/dennwc/fileref/types"
)

// Options configures a blob column.
type Options struct {
	// Location selects a location strategy from the registry.
	// An empty location selects the default strategy and its default root.
	Location string
	// Verify checks the content against the digest while it is materialized.
	Verify bool
	// Logger is used for diagnostics. Defaults to slog.Default.
	Logger *slog.Logger
}

// Record is a persisted form of a blob: raw content and its reference in text form.
type Record struct {
	Blob []byte `json:"blob"`
	Info string `json:"info"`
}

// Ref decodes the reference stored in the record.
func (r Record) Ref() (types.Ref, error) {
	return types.ParseRef(r.Info)
}

// NewColumn creates a column that resolves blobs with strategies from the registry.
func NewColumn(reg *location.Registry, opts *Options) *Column {
	c := &Column{reg: reg}
	if opts != nil {
		c.opts = *opts
	}
	c.log = c.opts.Logger
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// Column converts between stream handles and records.
type Column struct {
	reg  *location.Registry
	opts Options
	log  *slog.Logger
}

// Location returns the location key used by the column.
func (c *Column) Location() string {
	return c.opts.Location
}

// Resolve finds a handle for the reference and reports if it must be materialized first.
func (c *Column) Resolve(ctx context.Context, ref types.Ref) (stream.Handle, bool, error) {
	s := c.reg.Get(c.opts.Location)
	return s.ResolveWithDigest(ctx, c.opts.Location, ref.Name, ref.Digest)
}

// Load resolves a blob from the info text of a record.
// The raw content is read only if the blob must be materialized.
func (c *Column) Load(ctx context.Context, raw io.Reader, info string) (stream.Handle, error) {
	ref, err := types.ParseRef(info)
	if err != nil {
		return nil, err
	}
	h, need, err := c.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !need {
		c.log.Debug("blob resolved", "name", ref.Name, "path", h.Provenance())
		return h, nil
	}
	if raw == nil {
		return nil, errors.Errorf("no content to materialize blob %q", ref.Name)
	}
	dst := h
	if c.opts.Verify {
		// content that fails the check must not stay under the blob name
		raw = transfer.VerifyReader(raw, ref.Digest)
		dst = stream.Staged(h)
	}
	n, err := transfer.Materialize(raw, dst)
	if err != nil {
		return nil, err
	}
	c.log.Debug("blob materialized", "name", ref.Name, "path", h.Provenance(), "size", humanize.Bytes(uint64(n)))
	if r, ok := c.reg.Get(c.opts.Location).(location.Recorder); ok {
		if err := r.Record(h, ref.Digest); err != nil {
			c.log.Warn("cannot record blob digest", "path", h.Provenance(), "err", err)
		}
	}
	return h, nil
}

// LoadRecord is like Load, but takes both columns from a record.
func (c *Column) LoadRecord(ctx context.Context, rec Record) (stream.Handle, error) {
	return c.Load(ctx, bytes.NewReader(rec.Blob), rec.Info)
}

// Dump reads the whole content of the handle and returns a record for it.
func (c *Column) Dump(h stream.Handle) (Record, error) {
	data, ref, err := transfer.DigestRef(h)
	if err != nil {
		return Record{}, err
	}
	c.log.Debug("blob stored", "ref", ref.String(), "size", humanize.Bytes(uint64(len(data))))
	return Record{Blob: data, Info: ref.String()}, nil
}
