// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dalemusser/solarhub/internal/app/system/realtime"
	"github.com/dalemusser/solarhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for SolarHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: SOLARHUB_MONGO_URI, SOLARHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017/?replicaSet=rs0", Desc: "MongoDB connection URI (replica set required for change streams)"},
	{Name: "mongo_database", Default: "solar_hub", Desc: "MongoDB database name"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "solarhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	// Realtime
	{Name: "snapshot_fallback", Default: "2s", Desc: "Wait for a live query's baseline before the next delivery counts as live"},

	// Store timeouts
	{Name: "store_read_timeout", Default: "5s", Desc: "Timeout for role lookups and seller scope reads"},
	{Name: "store_write_timeout", Default: "10s", Desc: "Timeout for notification inserts"},

	// Alert delivery
	{Name: "alert_rate", Default: "5", Desc: "Sustained alerts per second per connection"},
	{Name: "alert_burst", Default: 20, Desc: "Alert burst per connection"},

	// Connect limiting
	{Name: "realtime_connect_limit", Default: 30, Desc: "Websocket connects per user per window (0 disables)"},
	{Name: "realtime_connect_window", Default: "1m", Desc: "Websocket connect limiter window"},

	// NATS
	{Name: "nats_url", Default: "", Desc: "NATS server URL (blank disables alert publishing)"},
	{Name: "nats_alert_subject", Default: "solarhub.alerts", Desc: "NATS subject prefix for alerts"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, SOLARHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "SOLARHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	rate, err := parseRate(appValues.String("alert_rate"))
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:      appValues.String("mongo_uri"),
		MongoDatabase: appValues.String("mongo_database"),
		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),

		SnapshotFallback: appValues.Duration("snapshot_fallback", realtime.DefaultFallback),

		StoreReadTimeout:  appValues.Duration("store_read_timeout", timeouts.DefaultRead),
		StoreWriteTimeout: appValues.Duration("store_write_timeout", timeouts.DefaultWrite),

		AlertRate:  rate,
		AlertBurst: appValues.Int("alert_burst"),

		RealtimeConnectLimit:  appValues.Int("realtime_connect_limit"),
		RealtimeConnectWindow: appValues.Duration("realtime_connect_window", time.Minute),

		NATSURL:          appValues.String("nats_url"),
		NATSAlertSubject: appValues.String("nats_alert_subject"),
	}

	return coreCfg, appCfg, nil
}

func parseRate(s string) (float64, error) {
	rate, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid alert_rate %q: %w", s, err)
	}
	return rate, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.SnapshotFallback <= 0 {
		return errors.New("snapshot_fallback must be positive")
	}
	if appCfg.AlertRate <= 0 {
		return errors.New("alert_rate must be positive")
	}
	if appCfg.AlertBurst < 1 {
		return errors.New("alert_burst must be at least 1")
	}
	if appCfg.RealtimeConnectLimit < 0 {
		return errors.New("realtime_connect_limit must not be negative")
	}
	if appCfg.RealtimeConnectLimit > 0 && appCfg.RealtimeConnectWindow <= 0 {
		return errors.New("realtime_connect_window must be positive when limiting is enabled")
	}
	if appCfg.NATSURL != "" && appCfg.NATSAlertSubject == "" {
		return errors.New("nats_alert_subject is required when nats_url is set")
	}
	return nil
}
