// Package providers contains dependency injection providers for the SpeedyPaws daemon.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/WaelFa/SpeedyPaws/internal/config"
	"github.com/WaelFa/SpeedyPaws/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting SpeedyPaws daemon",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Data.BasePath,
		"bridge_dir", cfg.Bridge.Dir,
	)

	return log, nil
}
