// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

/*
Package api wires the HTTP router and the runnable [http.Server].

The gateway's HTTP surface is deliberately small: the websocket mount the
game clients connect to, plus unauthenticated health probes for container
orchestration. Everything else rides inside the socket protocol.

Only this package and cmd/gateway import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vantari/loadout/internal/platform/config"
)

// readHeaderTimeout bounds the upgrade request's header read. The server
// carries no global read/write timeouts: they would sever long-lived
// websockets, whose deadlines the connection supervisor manages per frame.
const readHeaderTimeout = 10 * time.Second

// Server wraps the chi router and the [http.Server].
type Server struct {
	httpServer *http.Server
	log        *slog.Logger
}

// Handlers groups everything the router mounts.
type Handlers struct {
	// Liveness is the /health handler. Always 200 while the process lives.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler. 200 when postgres and redis answer.
	Readiness http.HandlerFunc

	// Websocket is the persistent client connection endpoint.
	Websocket http.HandlerFunc
}

// NewServer constructs the router and registers all routes.
func NewServer(cfg *config.Config, log *slog.Logger, h Handlers) *Server {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Client Connection
	r.Get("/ws", h.Websocket)

	return &Server{
		log: log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

// ListenAndServe starts the HTTP server. Blocks until the server is closed
// or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests and
// open sockets up to the timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
