// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	healthfeature "github.com/dalemusser/solarhub/internal/app/features/health"
	notificationsfeature "github.com/dalemusser/solarhub/internal/app/features/notifications"
	realtimefeature "github.com/dalemusser/solarhub/internal/app/features/realtime"
	"github.com/dalemusser/solarhub/internal/app/store/docstore"
	notificationstore "github.com/dalemusser/solarhub/internal/app/store/notifications"
	"github.com/dalemusser/solarhub/internal/app/system/alerts"
	"github.com/dalemusser/solarhub/internal/app/system/auth"
	"github.com/dalemusser/solarhub/internal/app/system/metrics"
	"github.com/dalemusser/solarhub/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// SolarHub applies session middleware and mounts:
//   - /health: Mongo and NATS connectivity
//   - /metrics: Prometheus exposition
//   - /notifications: the signed-in user's inbox
//   - /realtime: the websocket that runs one realtime session per connection
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	if err := auth.InitSessionStore(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger); err != nil {
		logger.Error("session store init failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(auth.LoadSessionUser)

	var natsConn healthfeature.Connectivity
	var publisher alerts.Publisher
	if deps.NATS != nil {
		natsConn = deps.NATS
		publisher = deps.NATS
	}

	healthHandler := healthfeature.NewHandler(deps.MongoClient, natsConn, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/metrics", metrics.Handler())

	inbox := notificationstore.New(deps.MongoDatabase)
	notificationsHandler := notificationsfeature.NewHandler(inbox, logger)
	r.Mount("/notifications", notificationsfeature.Routes(notificationsHandler))

	var limiter *ratelimit.Limiter
	if appCfg.RealtimeConnectLimit > 0 {
		limiter = ratelimit.New(appCfg.RealtimeConnectLimit, appCfg.RealtimeConnectWindow)
	}
	realtimeHandler := realtimefeature.NewHandler(docstore.NewMongo(deps.MongoDatabase, logger), realtimefeature.Config{
		Publisher:    publisher,
		AlertSubject: appCfg.NATSAlertSubject,
		AlertRate:    appCfg.AlertRate,
		AlertBurst:   appCfg.AlertBurst,
		Fallback:     appCfg.SnapshotFallback,
	}, logger)
	r.Mount("/realtime", realtimefeature.Routes(realtimeHandler, limiter))

	return r, nil
}
