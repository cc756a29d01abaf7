package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"clipstream/internal/bus"
	"clipstream/internal/catalog"
	"clipstream/internal/config"
	"clipstream/internal/logging"
	"clipstream/internal/pipeline"
	"clipstream/internal/streamer"
)

// Server exposes the HTTP API: upload, catalog reads, deletion, range
// streaming, the websocket progress feed, and a status endpoint.
type Server struct {
	cfg       *config.Config
	store     *catalog.Store
	hub       *bus.Hub
	processor *pipeline.Processor
	streamer  *streamer.Streamer
	logger    *slog.Logger

	listener net.Listener
	server   *http.Server
	started  time.Time
}

// New constructs the API server with its collaborators injected.
func New(cfg *config.Config, store *catalog.Store, hub *bus.Hub, processor *pipeline.Processor, logger *slog.Logger) *Server {
	srv := &Server{
		cfg:       cfg,
		store:     store,
		hub:       hub,
		processor: processor,
		streamer:  streamer.New(store, logger),
		logger:    logging.NewComponentLogger(logger, "api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/videos", srv.requireTenant(srv.handleVideos))
	mux.HandleFunc("/api/videos/", srv.requireTenant(srv.handleVideoItem))
	mux.HandleFunc("/api/events", srv.requireTenant(srv.handleEvents))
	mux.HandleFunc("/api/status", srv.requireTenant(srv.handleStatus))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Start begins listening on the configured bind address. Shutdown is tied
// to ctx cancellation in addition to Stop.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Paths.APIBind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.started = time.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}
