// Package di provides dependency injection configuration for the SpeedyPaws daemon.
package di

import (
	"github.com/samber/do/v2"

	"github.com/WaelFa/SpeedyPaws/internal/background"
	"github.com/WaelFa/SpeedyPaws/internal/config"
	"github.com/WaelFa/SpeedyPaws/internal/di/providers"
	"github.com/WaelFa/SpeedyPaws/internal/logger"
	"github.com/WaelFa/SpeedyPaws/internal/page"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideBroadcaster)
	do.Provide(injector, providers.ProvideStore)

	// Daemon core
	do.Provide(injector, providers.ProvideBackend)
	do.Provide(injector, providers.ProvideBridge)
	do.Provide(injector, providers.ProvideWatcher)
	do.Provide(injector, providers.ProvideSessionManager)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once the daemon is running.
// This triggers lazy initialization of every provider in dependency order.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.BroadcasterHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*background.Coordinator](injector)
	_ = do.MustInvoke[*page.Bridge](injector)
	_ = do.MustInvoke[*providers.WatcherHandle](injector)
	_ = do.MustInvoke[*providers.SessionManagerHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
