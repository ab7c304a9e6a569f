// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// ports, TLS, logging and CORS; everything specific to the realtime
// notification service lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI      string // MongoDB connection string (must be a replica set for change streams)
	MongoDatabase string // Database name within MongoDB

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: solarhub-session)
	SessionDomain string // Cookie domain (blank means current host)

	// Realtime subscriptions
	SnapshotFallback time.Duration // How long a live query waits for its baseline before treating the next delivery as live

	// Store timeouts
	StoreReadTimeout  time.Duration // Role lookups and seller scope reads
	StoreWriteTimeout time.Duration // Notification inserts

	// Alert delivery
	AlertRate  float64 // Sustained alerts per second per connection
	AlertBurst int     // Alert burst per connection

	// Websocket connect limiting
	RealtimeConnectLimit  int           // Connections allowed per user per window (0 disables)
	RealtimeConnectWindow time.Duration // Connect limiter window

	// NATS fan-out (optional)
	NATSURL          string // Blank disables publishing
	NATSAlertSubject string // Subject prefix; the recipient ID is appended
}
