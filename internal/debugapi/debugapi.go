// Package debugapi exposes a router over HTTP for inspection.
//
//	GET  /match?href=/posts/1[&explain=1]  match without loading
//	GET  /state                            committed state
//	POST /navigate {"href": "...", "replace": false}
//	POST /preload  {"href": "..."}
//	POST /back
//	POST /invalidate[?route=/posts]        invalidate and reload
//	GET  /dehydrate                        encoded snapshot
//	GET  /metrics                          Prometheus
package debugapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	rkerrors "github.com/vango-dev/routekit/internal/errors"
	"github.com/vango-dev/routekit/pkg/codec"
	"github.com/vango-dev/routekit/pkg/router"
)

// Server serves the debug API for one router.
type Server struct {
	router   *router.Router
	gatherer prometheus.Gatherer
	format   codec.Format
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer serves /metrics from g. Without it /metrics is not mounted.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithFormat sets the /dehydrate encoding.
func WithFormat(f codec.Format) Option {
	return func(s *Server) {
		s.format = f
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Server for r.
func New(r *router.Router, opts ...Option) *Server {
	s := &Server{
		router: r,
		format: codec.MsgPack,
		logger: slog.Default().With("component", "debugapi"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(s.logRequests)

	mux.Get("/match", s.handleMatch)
	mux.Get("/state", s.handleState)
	mux.Post("/navigate", s.handleNavigate)
	mux.Post("/preload", s.handlePreload)
	mux.Post("/back", s.handleBack)
	mux.Post("/invalidate", s.handleInvalidate)
	mux.Get("/dehydrate", s.handleDehydrate)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// =============================================================================
// Handlers
// =============================================================================

type navigateRequest struct {
	Href    string `json:"href"`
	Replace bool   `json:"replace,omitempty"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	href := r.URL.Query().Get("href")
	if href == "" {
		href = "/"
	}

	if r.URL.Query().Get("explain") != "" {
		cands, err := s.router.Tree().Explain(href)
		if err != nil {
			s.writeError(w, err)
			return
		}
		out := make([]candidateView, len(cands))
		for i, c := range cands {
			out[i] = newCandidateView(c)
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	matches, err := s.router.MatchRoutes(href)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]matchView, len(matches))
	for i, m := range matches {
		out[i] = newMatchView(m)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newStateView(s.router.State(), s.router.Status()))
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	var opts []router.NavigateOption
	if req.Replace {
		opts = append(opts, router.WithReplace())
	}
	if err := s.router.Navigate(r.Context(), req.Href, opts...); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateView(s.router.State(), s.router.Status()))
}

func (s *Server) handlePreload(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	if err := s.router.Preload(r.Context(), req.Href); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBack(w http.ResponseWriter, _ *http.Request) {
	s.router.History().Back()
	writeJSON(w, http.StatusOK, newStateView(s.router.State(), s.router.Status()))
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	route := r.URL.Query().Get("route")
	n := s.router.Invalidate(func(m *router.Match) bool {
		return route == "" || m.RouteID == route
	})
	if err := s.router.Load(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invalidated": n})
}

func (s *Server) handleDehydrate(w http.ResponseWriter, _ *http.Request) {
	d, err := s.router.Dehydrate()
	if err != nil {
		writeJSON(w, http.StatusConflict, rkerrors.Newf(rkerrors.CategoryRouting, "%v", err))
		return
	}
	data, err := codec.Marshal(d, s.format)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ct := "application/json"
	if s.format == codec.MsgPack {
		ct = "application/msgpack"
	}
	w.Header().Set("Content-Type", ct)
	_, _ = w.Write(data)
}

// =============================================================================
// Encoding
// =============================================================================

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (navigateRequest, bool) {
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Href == "" {
		writeJSON(w, http.StatusBadRequest, rkerrors.Newf(rkerrors.CategoryCLI, "body must be {\"href\": \"...\"}"))
		return req, false
	}
	return req, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	e := router.Describe(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusRequestTimeout
	case errors.Is(err, router.ErrSuperseded):
		status = http.StatusConflict
	case errors.Is(err, router.ErrAbsoluteURL):
		status = http.StatusBadRequest
	case e.Code == "R001":
		status = http.StatusNotFound
	case e.Code == "R002", e.Code == "R003":
		status = http.StatusBadRequest
	case e.Code == "R005":
		status = http.StatusLoopDetected
	}
	if status == http.StatusInternalServerError {
		s.logger.Warn("request failed", "error", err)
	}
	writeJSON(w, status, e)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
