package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/openmined/aclnotify/internal/server/handlers/events"
	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 5 * time.Second

// Server is the webhook ingress through which the host delivers events.
type Server struct {
	config *Config
	server *http.Server
	events *events.EventsHandler
}

func New(config *Config, proc events.Processor, gatherer prometheus.Gatherer) (*Server, error) {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	queueSize, workers := config.HTTP.QueueSize, config.HTTP.Workers
	if queueSize == 0 {
		queueSize = DefaultQueueSize
	}
	if workers == 0 {
		workers = DefaultWorkers
	}

	eventsH := events.New(proc, queueSize, workers)
	handler, err := SetupRoutes(&config.HTTP, eventsH, gatherer)
	if err != nil {
		return nil, err
	}

	return &Server{
		config: config,
		events: eventsH,
		server: &http.Server{
			Addr:              config.HTTP.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Start serves until ctx is cancelled, then drains queued events.
func (s *Server) Start(ctx context.Context) error {
	slog.Info("aclnotify server start", "config", s.config.HTTP)
	defer slog.Info("aclnotify server stop")

	s.events.Start(context.WithoutCancel(ctx))

	errCh := make(chan error, 1)
	go func() {
		if err := s.runHttpServer(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.events.Close()
		if err != nil {
			slog.Error("http server error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("aclnotify shutdown signal")
	return s.Stop(context.WithoutCancel(ctx))
}

func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err := s.server.Shutdown(shutdownCtx)
	s.events.Close()
	return err
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) runHttpServer() error {
	if s.config.HTTP.TLSEnabled() {
		slog.Info("server start tls", "addr", s.config.HTTP.Addr, "cert", s.config.HTTP.CertFile, "key", s.config.HTTP.KeyFile)
		return s.server.ListenAndServeTLS(s.config.HTTP.CertFile, s.config.HTTP.KeyFile)
	}
	slog.Info("server start http", "addr", s.config.HTTP.Addr)
	return s.server.ListenAndServe()
}
