// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes templates, uri parsing and image fitting over HTTP.
//
// The router and its middleware chain are rebuilt whenever the watched
// config changes:
//
//	RequestID → AccessLog → Metrics → AllowIPs → Headers → ParseQuery → route
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/walteh/fosol/pkg/config"
	"github.com/walteh/fosol/pkg/middleware"
	"github.com/walteh/fosol/pkg/text"
	"github.com/walteh/fosol/pkg/uri"
	"gitlab.com/tozd/go/errors"
)

const (
	defaultMaxBodyBytes    = 32 << 20
	defaultMaxPixels       = 50_000_000
	defaultShutdownTimeout = 10 * time.Second
)

// 🌐 Server serves the current config's routes
type Server struct {
	watcher  *config.Watcher
	logger   zerolog.Logger
	registry *prometheus.Registry
	metrics  *middleware.RequestMetrics

	maxBodyBytes    int64
	maxPixels       int64
	shutdownTimeout time.Duration

	mu      sync.RWMutex
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry serves and records metrics in reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// WithMaxBodyBytes caps uploaded image size.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.maxBodyBytes = n }
}

// WithMaxPixels caps the decoded width×height of uploaded images. The
// header is checked before any pixel data is decoded.
func WithMaxPixels(n int64) Option {
	return func(s *Server) { s.maxPixels = n }
}

// WithShutdownTimeout bounds how long in-flight requests get after ctx is done.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdownTimeout = d }
}

// New builds the handler for the watcher's current config and rebuilds it on
// every reload. A rebuild that fails leaves the previous handler in place.
func New(ctx context.Context, watcher *config.Watcher, opts ...Option) (*Server, error) {
	s := &Server{
		watcher:         watcher,
		logger:          *zerolog.Ctx(ctx),
		maxBodyBytes:    defaultMaxBodyBytes,
		maxPixels:       defaultMaxPixels,
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	m, err := middleware.NewRequestMetrics(s.registry)
	if err != nil {
		return nil, err
	}
	s.metrics = m

	if err := s.rebuild(watcher.Current()); err != nil {
		return nil, err
	}

	watcher.Subscribe(func(cfg *config.Config) {
		if err := s.rebuild(cfg); err != nil {
			s.logger.Warn().Err(err).Msg("rebuilding routes, keeping previous routes")
			return
		}
		s.logger.Info().Msg("routes rebuilt")
	})

	return s, nil
}

// Handler returns a handler that always dispatches to the latest routes.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		h := s.handler
		s.mu.RUnlock()
		h.ServeHTTP(w, r)
	})
}

// Registry returns the metrics registry served on /metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

func (s *Server) rebuild(cfg *config.Config) error {
	if cfg == nil {
		return errors.Errorf("no config")
	}

	templates := make(map[string]*text.Template, len(cfg.Templates))
	for i := range cfg.Templates {
		el := &cfg.Templates[i]
		tmpl, err := el.Compile(cfg.Dir())
		if err != nil {
			return errors.Errorf("compiling template %q: %w", el.Name, err)
		}
		templates[el.Name] = tmpl
	}

	ips, err := middleware.ParseIPList(cfg.Server.AllowedIPs)
	if err != nil {
		return err
	}
	public, err := uri.CompilePatterns(cfg.Server.PublicPaths)
	if err != nil {
		return errors.Errorf("compiling public paths: %w", err)
	}
	headers, err := middleware.Headers(cfg.Server.Headers)
	if err != nil {
		return err
	}

	rt := &routes{
		cfg:          cfg,
		templates:    templates,
		maxBodyBytes: s.maxBodyBytes,
		maxPixels:    s.maxPixels,
	}

	chain := []mux.MiddlewareFunc{
		middleware.RequestID(),
		middleware.AccessLog(s.logger),
		s.metrics.Middleware(),
		middleware.AllowIPs(ips, cfg.Server.TrustForwardedFor, public),
		headers,
		middleware.ParseQuery(),
	}

	router := mux.NewRouter()
	router.Use(chain...)
	// mux only applies Use to matched routes
	router.NotFoundHandler = wrap(chain, http.HandlerFunc(handleNotFound))
	router.MethodNotAllowedHandler = wrap(chain, http.HandlerFunc(handleMethodNotAllowed))
	router.HandleFunc("/healthz", rt.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/render/{name}", rt.handleRender).Methods(http.MethodGet)
	router.HandleFunc("/uri", rt.handleURI).Methods(http.MethodGet)
	router.HandleFunc("/images/fit", rt.handleFit).Methods(http.MethodPost)

	s.mu.Lock()
	s.handler = router
	s.mu.Unlock()

	s.logger.Debug().
		Int("templates", len(templates)).
		Stringer("allowed_ips", ips).
		Int("headers", len(cfg.Server.Headers)).
		Msg("routes built")
	return nil
}

func wrap(chain []mux.MiddlewareFunc, h http.Handler) http.Handler {
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}

// ListenAndServe listens on the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.watcher.Current().Server.Listen
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return errors.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	s.logger.Info().Str("address", ln.Addr().String()).Msg("starting HTTP server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info().Msg("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Errorf("serving: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}
