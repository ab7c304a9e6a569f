// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/solarhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Read:  appCfg.StoreReadTimeout,
		Write: appCfg.StoreWriteTimeout,
	})
	logger.Info("store timeouts configured",
		zap.Duration("read", timeouts.Read()),
		zap.Duration("write", timeouts.Write()))
	return nil
}
