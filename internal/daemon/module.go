// Package daemon composes the long-running chathived process: it acquires
// the per-store file lock, opens and migrates the store, and hosts a
// service.Registry for the life of the process. There is no network
// listener here — the wire-level RPC surface is out of scope, so the
// Registry stands in for what would otherwise be a generated service's
// backing store.
package daemon

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/chathive/chathive/internal/apppath"
	"github.com/chathive/chathive/internal/bus"
	"github.com/chathive/chathive/internal/lock"
	"github.com/chathive/chathive/internal/logging"
	"github.com/chathive/chathive/internal/service"
	"github.com/chathive/chathive/internal/status"
)

// Params holds the resolved store configuration passed to the fx module.
type Params struct {
	StoreName string
	StoreDir  string // optional override for testing; empty = use apppath.StoreDir
}

func (p Params) storeDir() string {
	if p.StoreDir != "" {
		return p.StoreDir
	}
	return apppath.StoreDir(p.StoreName)
}

// Module returns the fx module for the daemon, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideRegistry,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(apppath.LogPath(p.StoreName), p.StoreName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	dir := p.storeDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("daemon: create store dir %q: %w", dir, err)
	}
	logger.Info("acquiring store lock", zap.String("store", p.StoreName))
	l, err := lock.Acquire(dir)
	if err != nil {
		return nil, err
	}
	logger.Info("store lock acquired")
	return l, nil
}

func provideRegistry() *service.Registry {
	return service.New()
}

// registerLifecycle loads the store named by p.StoreName into the
// Registry on start; on stop it closes that store and releases the lock.
func registerLifecycle(lc fx.Lifecycle, p Params, reg *service.Registry, lk *lock.Lock, logger *zap.Logger) {
	var handle service.Handle

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			h, db, err := reg.Load(p.storeDir())
			if err != nil {
				return fmt.Errorf("daemon: load store %q: %w", p.StoreName, err)
			}
			handle = h
			stats, _ := db.Datasets()
			logger.Info("store loaded", zap.String("store", p.StoreName), zap.Int("datasets", len(stats)))
			return nil
		},
		OnStop: func(_ context.Context) error {
			if handle != "" {
				if err := reg.Close(handle); err != nil {
					logger.Warn("error closing store", zap.Error(err))
				}
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
