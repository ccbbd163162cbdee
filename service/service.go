package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ethereum-optimism/infra/reportree/metrics"
)

const shutdownTimeout = 10 * time.Second

// Service runs the report API and, when enabled, the metrics server
type Service struct {
	api     *http.Server
	metrics *http.Server
	log     log.Logger
}

func New(config *Config, api *API, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Root()
	}
	s := &Service{
		api: &http.Server{
			Addr:              net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
			Handler:           api.Handler(config.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logger,
	}
	if config.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		s.metrics = &http.Server{
			Addr:              net.JoinHostPort(config.Metrics.Host, strconv.Itoa(config.Metrics.Port)),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return s
}

// Addr returns the address the API listens on
func (s *Service) Addr() string {
	return s.api.Addr
}

// Start serves in the background. onError is called when a server stops
// unexpectedly.
func (s *Service) Start(onError func(error)) {
	s.log.Info("service starting")
	go s.serve("api", s.api, onError)
	if s.metrics != nil {
		go s.serve("metrics", s.metrics, onError)
	}
	s.log.Info("service started")
}

func (s *Service) serve(name string, server *http.Server, onError func(error)) {
	s.log.Info("starting server", "name", name, "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("server failed", "name", name, "err", err)
		metrics.RecordErrorDetails(name+" server", err)
		if onError != nil {
			onError(err)
		}
	}
}

// Shutdown stops both servers
func (s *Service) Shutdown(ctx context.Context) error {
	s.log.Info("service shutting down")
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err := s.api.Shutdown(ctx)
	s.log.Info("api stopped")
	if s.metrics != nil {
		err = errors.Join(err, s.metrics.Shutdown(ctx))
		s.log.Info("metrics stopped")
	}
	s.log.Info("service stopped")
	return err
}
