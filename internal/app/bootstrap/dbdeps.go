// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// NATS is nil when alert publishing is disabled.
	NATS *nats.Conn
}
