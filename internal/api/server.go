// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/oops"
)

// DefaultRequestTimeout bounds every store call made on behalf of one
// request.
const DefaultRequestTimeout = 5 * time.Second

// Server serves the Viper API over HTTP.
type Server struct {
	addr     string
	builder  *ContextBuilder
	users    *UserHandler
	logger   *slog.Logger
	timeout  time.Duration
	listener net.Listener
	httpSrv  *http.Server
	running  atomic.Bool
}

// NewServer creates an API server. timeout bounds each request's store
// calls; zero means DefaultRequestTimeout.
func NewServer(addr string, builder *ContextBuilder, users *UserHandler, logger *slog.Logger, timeout time.Duration) (*Server, error) {
	if addr == "" {
		return nil, oops.Errorf("listen address is required")
	}
	if builder == nil {
		return nil, oops.Errorf("context builder is required")
	}
	if users == nil {
		return nil, oops.Errorf("user handler is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Server{
		addr:    addr,
		builder: builder,
		users:   users,
		logger:  logger,
		timeout: timeout,
	}, nil
}

// Router builds the HTTP routing table. Unknown routes and methods answer
// with the fixed taxonomy rather than bare statuses.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, s.logger, NewError(KindMethod, "No method supplied"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, s.logger, NewError(KindMethod, "Method not supported"))
	})

	r.Route("/user", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/register", s.instrument("user.register", s.users.Register))
		r.Post("/login", s.instrument("user.login", s.users.Login))
		r.Get("/authorise", s.instrument("user.authorise", s.users.Authorise))
		r.Post("/logout", s.instrument("user.logout", s.users.Logout))
		r.Post("/reset", s.instrument("user.reset", s.users.Reset))
	})

	return r
}

// Start begins serving the API. It returns an error channel that receives
// any server failure after startup; the channel closes on graceful stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpSrv = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown api server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the listen address, or empty if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// instrument wraps a handler with the per-route request counter.
func (s *Server) instrument(route string, h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			RequestsTotal.WithLabelValues(route, "failure").Inc()
			WriteError(w, s.logger, err)
			return
		}
		RequestsTotal.WithLabelValues(route, "success").Inc()
	}
}

// handlerFunc is an endpoint handler returning a structured rejection
// instead of writing errors inline.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error
