package httploc

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/dennwc/fileref/location"
	"github.com/dennwc/fileref/stream"
	"github.com/dennwc/fileref/transfer"
)

// NewServer creates an HTTP handler that serves blobs of a location key for a given URL path.
func NewServer(s location.Strategy, key, urlPref string) http.Handler {
	urlPref = strings.TrimSuffix(urlPref, "/")
	return &server{s: s, key: key, pref: urlPref, log: slog.Default()}
}

type server struct {
	s    location.Strategy
	key  string
	pref string
	log  *slog.Logger
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.EscapedPath(), s.pref)
	path = strings.TrimPrefix(path, "/")
	sub := strings.SplitN(path, "/", 2)
	if sub[0] != "blobs" {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if len(sub) == 1 || sub[1] == "" {
		s.serveList(w, r)
		return
	}
	name, err := url.PathUnescape(sub[1])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.serveBlob(w, r, name)
	case http.MethodPut:
		s.storeBlob(w, r, name)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stream.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, location.ErrInvalidName):
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(err.Error()))
	default:
		s.log.Error("http: request failed", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (s *server) serveList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	l, ok := s.s.(location.Lister)
	if !ok {
		w.WriteHeader(http.StatusNotImplemented)
		return
	}
	names, err := l.List(r.Context(), s.key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, name := range names {
		if err := enc.Encode(name); err != nil {
			return // write error, client is probably gone; ok to ignore
		}
	}
}

func (s *server) serveBlob(w http.ResponseWriter, r *http.Request, name string) {
	h, err := s.s.Resolve(r.Context(), s.key, name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	size, err := stream.Size(h)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if r.Method == http.MethodHead {
		if size < 0 {
			ok, err := stream.Exists(h)
			if err != nil {
				s.writeError(w, err)
				return
			} else if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
		} else {
			w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		}
		w.WriteHeader(http.StatusOK)
		return
	}
	rc, err := h.Reader()
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", "application/octet-stream")
	if size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err = transfer.Copy(w, rc); err != nil {
		// status code was already sent, so we can't report it
		s.log.Warn("http: error when sending blob", "name", name, "err", err)
	}
}

func (s *server) storeBlob(w http.ResponseWriter, r *http.Request, name string) {
	h, err := s.s.Resolve(r.Context(), s.key, name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// partial uploads are dropped
	n, err := transfer.Materialize(r.Body, stream.Staged(h))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Debug("http: stored blob", "name", name, "size", n)
	w.WriteHeader(http.StatusNoContent)
}
