package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/solarhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger is satisfied by *mongo.Client.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// Connectivity is satisfied by *nats.Conn.
type Connectivity interface {
	IsConnected() bool
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client Pinger
	NATS   Connectivity
	Log    *zap.Logger
}

// NewHandler constructs a health Handler. nc may be nil when alert fan-out
// is disabled.
func NewHandler(client Pinger, nc Connectivity, logger *zap.Logger) *Handler {
	return &Handler{
		Client: client,
		NATS:   nc,
		Log:    logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Alerts   string `json:"alerts,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "alerts":"connected" }
//
// On DB failure: 503 and
//
//	{ "status":"error", "message":"Database unavailable", "error":"…"}
//
// A lost NATS connection is reported but does not fail the check; alerts
// still reach websocket clients on this instance.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	if h.NATS != nil {
		resp.Alerts = "connected"
		if !h.NATS.IsConnected() {
			h.Log.Warn("health-check: nats disconnected")
			resp.Alerts = "disconnected"
		}
	}

	_ = json.NewEncoder(w).Encode(resp)
}
