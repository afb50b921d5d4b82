package providers

import (
	"context"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/WaelFa/SpeedyPaws/internal/broadcast"
	"github.com/WaelFa/SpeedyPaws/internal/config"
	"github.com/WaelFa/SpeedyPaws/internal/logger"
	"github.com/WaelFa/SpeedyPaws/internal/store"
)

// BroadcasterHandle wraps the SSE broadcaster with its context for lifecycle management.
type BroadcasterHandle struct {
	*broadcast.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *BroadcasterHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideBroadcaster provides the server-sent events broadcaster.
func ProvideBroadcaster(i do.Injector) (*BroadcasterHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := broadcast.NewManager(log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("Event broadcaster started")

	return &BroadcasterHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the database store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	broadcaster := do.MustInvoke[*BroadcasterHandle](i)

	dbPath := filepath.Join(cfg.Data.BasePath, "db")
	db, err := store.New(dbPath, log.Logger, broadcaster.Manager)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}
