// Copyright 2025 John Wang. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcptoolbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Paths served by the HTTP transport.
const (
	PathMCP    = "/mcp"
	PathHealth = "/health"
)

const shutdownTimeout = 5 * time.Second

// Router returns the HTTP handler for the network transport: the
// streamable HTTP endpoint at PathMCP (also mounted at the root) and a health
// probe at PathHealth.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get(PathHealth, s.handleHealth)

	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
	r.Handle(PathMCP, streamable)
	r.Handle("/", streamable)

	return r
}

// ServeHTTP binds addr and serves the network transport until ctx is done.
// A bind failure is returned as a *BootstrapError.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return &BootstrapError{Transport: TransportHTTP, Addr: addr, Err: err}
	}
	return s.Serve(ctx, ln)
}

// Serve serves the network transport on ln until ctx is done, then shuts
// down gracefully. Serve takes ownership of ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	stop := make(chan struct{})
	defer close(stop)

	shutdownErr := make(chan error, 1)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.InfoContext(ctx, "serving", "transport", TransportHTTP.String(), "addr", ln.Addr().String(), "tools", s.toolbox.Len())
	err := srv.Serve(ln)
	if !errors.Is(err, http.ErrServerClosed) {
		_ = srv.Close()
		return fmt.Errorf("%s transport: %w", TransportHTTP, err)
	}
	return <-shutdownErr
}

type healthResponse struct {
	Status  string `json:"status"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Tools   int    `json:"tools"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:  "ok",
		Name:    s.config.Name,
		Version: s.config.Version,
		Tools:   s.toolbox.Len(),
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.DebugContext(r.Context(), "http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start))
		}()
		next.ServeHTTP(ww, r)
	})
}
