// Package httploc implements a location strategy that keeps blobs on a remote HTTP server.
package httploc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/dennwc/fileref/location"
	"github.com/dennwc/fileref/stream"
	"github.com/dennwc/fileref/types"
)

// TypeHTTP is a type name of the strategy in configuration files.
const TypeHTTP = "http"

var (
	_ location.Strategy = (*Strategy)(nil)
	_ location.Lister   = (*Strategy)(nil)

	_ stream.Handle  = (*Handle)(nil)
	_ stream.Sizer   = (*Handle)(nil)
	_ stream.Exister = (*Handle)(nil)
)

var errDiscarded = errors.New("httploc: write discarded")

func init() {
	location.RegisterType(TypeHTTP, func(ctx context.Context, c location.Config, _ *slog.Logger) (location.Strategy, error) {
		if _, err := url.Parse(c.URL); err != nil {
			return nil, err
		} else if c.URL == "" {
			return nil, errors.New("httploc: url is not set")
		}
		return New(c.URL), nil
	})
}

// New creates a strategy for a server with a given base address.
// The location key is ignored; the server serves a single location.
//
// Example:
//
//	New("https://domain.com/blobs/photos")
func New(addr string) *Strategy {
	addr = strings.TrimSuffix(addr, "/")
	return &Strategy{
		base: addr,
		cli:  http.DefaultClient,
	}
}

// Strategy resolves blobs to URLs on a remote server.
type Strategy struct {
	cli  *http.Client
	base string
}

// SetHTTPClient allows to set a custom HTTP client that will be used to send requests.
func (s *Strategy) SetHTTPClient(cli *http.Client) {
	s.cli = cli
}

func (s *Strategy) blobsURL() string {
	return s.base + "/blobs/"
}

func (s *Strategy) blobURL(name string) string {
	return s.blobsURL() + url.PathEscape(name)
}

func (s *Strategy) Resolve(ctx context.Context, key, name string) (stream.Handle, error) {
	return s.resolve(ctx, name)
}

func (s *Strategy) resolve(ctx context.Context, name string) (*Handle, error) {
	if err := location.CheckName(name); err != nil {
		return nil, err
	}
	return &Handle{s: s, ctx: ctx, name: name, url: s.blobURL(name)}, nil
}

func (s *Strategy) ResolveWithDigest(ctx context.Context, key, name string, _ types.Digest) (stream.Handle, bool, error) {
	h, err := s.resolve(ctx, name)
	if err != nil {
		return nil, false, err
	}
	need, err := location.NeedsMaterialize(h)
	if err != nil {
		return nil, false, err
	}
	return h, need, nil
}

func (s *Strategy) List(ctx context.Context, key string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.blobsURL(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.cli.Do(req)
	if err != nil {
		return nil, &stream.IOError{Op: "list", Path: s.blobsURL(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code on list: %v", resp.Status)
	}
	var names []string
	dec := json.NewDecoder(resp.Body)
	for {
		var name string
		err := dec.Decode(&name)
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, &stream.IOError{Op: "list", Path: s.blobsURL(), Err: err}
		}
		names = append(names, name)
	}
	return names, nil
}

// Handle is a blob on a remote HTTP server.
type Handle struct {
	s    *Strategy
	ctx  context.Context
	name string
	url  string
}

// Provenance returns the URL of the blob.
func (h *Handle) Provenance() string { return h.url }
func (h *Handle) Name() string       { return h.name }

func (h *Handle) do(method string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(h.ctx, method, h.url, body)
	if err != nil {
		return nil, err
	}
	resp, err := h.s.cli.Do(req)
	if err != nil {
		return nil, &stream.IOError{Op: strings.ToLower(method), Path: h.url, Err: err}
	}
	return resp, nil
}

func (h *Handle) head() (int64, error) {
	resp, err := h.do(http.MethodHead, nil)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return resp.ContentLength, nil
	case http.StatusNotFound:
		return 0, errors.Wrapf(stream.ErrNotFound, "head %s", h.url)
	default:
		return 0, fmt.Errorf("unexpected status code on stat: %v", resp.Status)
	}
}

func (h *Handle) Exists() (bool, error) {
	_, err := h.head()
	if errors.Is(err, stream.ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (h *Handle) Size() (int64, error) {
	return h.head()
}

func (h *Handle) Reader() (io.ReadCloser, error) {
	resp, err := h.do(http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, errors.Wrapf(stream.ErrNotFound, "get %s", h.url)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code on get: %v", resp.Status)
	}
}

// Writer starts an upload of the blob. The content is sent while it's written,
// and the upload completes when the writer is closed.
func (h *Handle) Writer() (io.WriteCloser, error) {
	pr, pw := io.Pipe()
	req, err := http.NewRequestWithContext(h.ctx, http.MethodPut, h.url, pr)
	if err != nil {
		return nil, err
	}
	w := &putWriter{pw: pw, done: make(chan error, 1)}
	go func() {
		resp, err := h.s.cli.Do(req)
		if err != nil {
			err = &stream.IOError{Op: "put", Path: h.url, Err: err}
		} else {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode/100 != 2 {
				err = fmt.Errorf("unexpected status code on put: %v", resp.Status)
			}
		}
		// unblock writes if the request ended early
		pr.CloseWithError(err)
		w.done <- err
	}()
	return w, nil
}

type putWriter struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *putWriter) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *putWriter) Close() error {
	w.pw.Close()
	return <-w.done
}

func (w *putWriter) Discard() error {
	w.pw.CloseWithError(errDiscarded)
	<-w.done
	return nil
}
