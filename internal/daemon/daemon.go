package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"clipstream/internal/bus"
	"clipstream/internal/catalog"
	"clipstream/internal/config"
	"clipstream/internal/logging"
	"clipstream/internal/pipeline"
	"clipstream/internal/server"
)

// Daemon wires the catalog, progress hub, pipeline processor, and HTTP
// server together and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *catalog.Store
	hub       *bus.Hub
	processor *pipeline.Processor
	api       *server.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *catalog.Store, hub *bus.Hub, processor *pipeline.Processor, api *server.Server, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || hub == nil || processor == nil || api == nil {
		return nil, errors.New("daemon requires config, store, hub, processor, and api server")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "clipstream.lock")
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		hub:       hub,
		processor: processor,
		api:       api,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, fails over items orphaned by a crash,
// and brings up the HTTP server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipstream instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	reset, err := d.store.ResetStuckProcessing(runCtx, "interrupted by daemon restart")
	if err != nil {
		d.logger.Warn("failed to fail over interrupted items", logging.Error(err))
	} else if reset > 0 {
		d.logger.Info("failed over interrupted items", logging.Int64("count", reset))
	}

	if err := d.api.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("clipstream daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Addr returns the API server's bound address, empty before Start.
func (d *Daemon) Addr() string {
	return d.api.Addr()
}

// Stop shuts everything down in dependency order: no new requests, then
// in-flight runs, then subscribers, then the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.Stop()
	d.processor.Close()
	d.hub.Close()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("clipstream daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}
