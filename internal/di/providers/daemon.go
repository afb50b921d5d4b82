package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/WaelFa/SpeedyPaws/internal/background"
	"github.com/WaelFa/SpeedyPaws/internal/config"
	"github.com/WaelFa/SpeedyPaws/internal/coordinator"
	"github.com/WaelFa/SpeedyPaws/internal/logger"
	"github.com/WaelFa/SpeedyPaws/internal/page"
)

// ProvideBackend provides the background coordinator and ensures the
// settings record exists before anything reads it.
func ProvideBackend(i do.Injector) (*background.Coordinator, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	backend := background.New(storeHandle.Store, log.Logger)

	if _, err := backend.Startup(context.Background()); err != nil {
		return nil, err
	}

	return backend, nil
}

// ProvideBridge provides the browser bridge directory layout.
func ProvideBridge(i do.Injector) (*page.Bridge, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	bridge, err := page.NewBridge(cfg.Bridge.Dir)
	if err != nil {
		return nil, err
	}

	log.Info("Browser bridge ready", "dir", cfg.Bridge.Dir)

	return bridge, nil
}

// WatcherHandle wraps the bridge watcher with its context for lifecycle management.
type WatcherHandle struct {
	*page.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *WatcherHandle) Shutdown() error {
	h.cancel()
	return h.Watcher.Stop()
}

// ProvideWatcher provides the bridge file watcher.
func ProvideWatcher(i do.Injector) (*WatcherHandle, error) {
	bridge := do.MustInvoke[*page.Bridge](i)
	log := do.MustInvoke[*logger.Logger](i)

	w, err := page.NewWatcher(bridge, log.Logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("Bridge watcher stopped", "error", err)
		}
	}()

	log.Info("Bridge watcher started")

	return &WatcherHandle{Watcher: w, cancel: cancel}, nil
}

// SessionManagerHandle wraps the tab session manager with its context.
type SessionManagerHandle struct {
	*coordinator.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SessionManagerHandle) Shutdown() error {
	h.cancel()
	return nil
}

// ProvideSessionManager provides the per-tab session manager and wires it
// into the background coordinator as its session directory.
func ProvideSessionManager(i do.Injector) (*SessionManagerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	bridge := do.MustInvoke[*page.Bridge](i)
	backend := do.MustInvoke[*background.Coordinator](i)
	broadcaster := do.MustInvoke[*BroadcasterHandle](i)
	watcher := do.MustInvoke[*WatcherHandle](i)

	manager := coordinator.NewManager(bridge, backend, broadcaster.Manager, coordinator.Config{
		LocateAttempts:     cfg.Bridge.LocateAttempts,
		LocateInterval:     cfg.Bridge.LocateInterval,
		SmartSpeedInterval: cfg.SmartSpeed.SampleInterval,
	}, log.Logger)

	backend.SetDirectory(manager)

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Run(ctx, watcher.Events())

	log.Info("Tab session manager started")

	return &SessionManagerHandle{Manager: manager, cancel: cancel}, nil
}
