package reportree

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/reportree/attachments"
	"github.com/ethereum-optimism/infra/reportree/merge"
	"github.com/ethereum-optimism/infra/reportree/service"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
)

// server implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &server{}

// server serves a directory of reports until stopped
type server struct {
	config  *service.Config
	log     log.Logger
	service *service.Service
	running atomic.Bool

	shutdownCallback func(error)
}

// NewServer wires the report store, its attachment loader and the HTTP
// service described by config
func NewServer(config *service.Config, logger log.Logger, shutdownCallback func(error)) (*server, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var fetcher attachments.Fetcher = attachments.NewDir(config.ReportsDir)
	if config.Attachments.URL != "" {
		client, err := attachments.NewClient(config.Attachments.URL, config.Attachments.Timeout, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment client: %w", err)
		}
		fetcher = client
	}
	loader := attachments.NewLoader(fetcher, attachments.LoaderConfig{
		Concurrency: config.Attachments.Concurrency,
		Strict:      config.Attachments.Strict,
	}, logger)

	store, err := service.NewStore(service.StoreConfig{
		Dir:               config.ReportsDir,
		CacheSize:         config.CacheSize,
		PendingAssertions: config.PendingAssertions,
		Merge:             merge.Options{AllowPartial: config.AllowPartial},
	}, loader, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create report store: %w", err)
	}
	logger.Debug("Created report server",
		"reportsDir", config.ReportsDir,
		"cacheSize", config.CacheSize,
		"attachments", config.Attachments.URL,
		"metrics", config.Metrics.Enabled)

	return &server{
		config:           config,
		log:              logger,
		service:          service.New(config, service.NewAPI(store, logger), logger),
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start implements the cliapp.Lifecycle interface.
func (s *server) Start(ctx context.Context) error {
	s.running.Store(true)
	s.log.Info("Serving reports", "dir", s.config.ReportsDir, "addr", s.service.Addr())
	s.service.Start(func(err error) {
		s.running.Store(false)
		if s.shutdownCallback != nil {
			s.shutdownCallback(NewRuntimeError(err))
		}
	})
	return nil
}

// Stop implements the cliapp.Lifecycle interface.
func (s *server) Stop(ctx context.Context) error {
	if !s.running.Swap(false) {
		s.log.Debug("Server already stopped, nothing to do")
	}
	return s.service.Shutdown(ctx)
}

// Stopped implements the cliapp.Lifecycle interface.
func (s *server) Stopped() bool {
	return !s.running.Load()
}
