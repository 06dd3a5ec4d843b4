// Package server exposes the artifact cache as a read-only Maven
// repository. Files missing from the cache are fetched from the
// configured repositories on first request, so build tools pointed at
// the server share one verified cache.
package server

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/repository"
)

// Options configure a [Server].
type Options struct {
	Client *repository.Client // required
	Logger *log.Logger
}

// Server serves one repository client's cache over HTTP.
type Server struct {
	client *repository.Client
	logger *log.Logger
}

// New creates a Server.
func New(opts Options) (*Server, error) {
	if opts.Client == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "server needs a repository client")
	}
	s := &Server{client: opts.Client, logger: opts.Logger}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s, nil
}

// Handler returns the router:
//
//	GET  /healthz   liveness
//	GET  /stats     cache statistics and breaker states as JSON
//	GET  /*         repository files, HEAD supported
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok\n")
	})
	r.Get("/stats", s.stats)
	r.Get("/*", s.serveFile)
	r.Head("/*", s.serveFile)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "bytes", ww.BytesWritten(), "elapsed", time.Since(start),
			"id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	st, err := s.client.Cache().Stats()
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"artifacts": st.Artifacts,
		"bytes":     st.Bytes,
		"origins":   st.Origins,
		"breakers":  s.client.BreakerState(),
		"offline":   s.client.Offline(),
	})
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	req, err := parsePath(chi.URLParam(r, "*"))
	if err != nil {
		s.fail(w, err)
		return
	}

	var (
		body    []byte
		modTime time.Time
	)
	if req.metadata {
		md, err := s.client.FetchMetadata(r.Context(), req.dep)
		if err != nil {
			s.fail(w, err)
			return
		}
		if body, err = md.Bytes(); err != nil {
			s.fail(w, err)
			return
		}
		modTime = md.LastUpdated
		w.Header().Set("Content-Type", "application/xml")
	} else {
		path, err := s.client.Fetch(r.Context(), req.dep, req.ext)
		if err != nil {
			s.fail(w, err)
			return
		}
		if !req.checksum {
			http.ServeFile(w, r, path)
			return
		}
		if body, err = os.ReadFile(path); err != nil {
			s.fail(w, errors.Wrap(errors.ErrCodeInternal, err, "read %s", path))
			return
		}
	}

	if req.checksum {
		sum := sha1.Sum(body)
		body = []byte(hex.EncodeToString(sum[:]))
		w.Header().Set("Content-Type", "text/plain")
	}
	if !modTime.IsZero() {
		w.Header().Set("Last-Modified", modTime.UTC().Format(http.TimeFormat))
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
}

// fail maps resolver error codes onto HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidCoordinate:
		status = http.StatusBadRequest
	case errors.ErrCodeArtifactNotFound, errors.ErrCodeOffline:
		status = http.StatusNotFound
	case errors.ErrCodeNetwork, errors.ErrCodeCircuitOpen, errors.ErrCodeChecksumMismatch:
		status = http.StatusBadGateway
	}
	if status >= 500 {
		s.logger.Warn("request failed", "status", status, "err", err)
	}
	http.Error(w, errors.UserMessage(err), status)
}
