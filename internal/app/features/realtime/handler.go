// internal/app/features/realtime/handler.go
package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/solarhub/internal/app/store/docstore"
	"github.com/dalemusser/solarhub/internal/app/system/alerts"
	"github.com/dalemusser/solarhub/internal/app/system/auth"
	"github.com/dalemusser/solarhub/internal/app/system/metrics"
	rt "github.com/dalemusser/solarhub/internal/app/system/realtime"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Config carries the per-connection tuning.
type Config struct {
	// Publisher, when set, also fans alerts out over NATS.
	Publisher    alerts.Publisher
	AlertSubject string
	AlertRate    float64
	AlertBurst   int
	Fallback     time.Duration
	// Now overrides the subscription clock (tests).
	Now func() time.Time
	// CheckOrigin overrides the upgrader's same-origin check.
	CheckOrigin func(r *http.Request) bool
}

// Handler upgrades signed-in clients to a websocket and runs one realtime
// session per connection.
type Handler struct {
	Store    docstore.Store
	Cfg      Config
	Log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a realtime handler.
func NewHandler(store docstore.Store, cfg Config, logger *zap.Logger) *Handler {
	return &Handler{
		Store: store,
		Cfg:   cfg,
		Log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
	}
}

// controlMessage is a client → server frame.
type controlMessage struct {
	Type string `json:"type"`
}

// Serve handles GET /realtime.
//
// Server → client frames: {"type":"alert","alert":{...}}.
// Client → server frames: {"type":"refresh"} re-resolves the role and
// re-opens every live query; {"type":"signout"} tears them down.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	metrics.ConnectionOpened()
	defer metrics.ConnectionClosed()

	log := h.Log.With(zap.String("user_id", user.ID))
	conn := alerts.NewConn(ws, h.Cfg.AlertRate, h.Cfg.AlertBurst, log)
	defer conn.Close()

	var sink alerts.Sink = conn
	if h.Cfg.Publisher != nil {
		sink = alerts.Multi(conn, alerts.NewNATS(h.Cfg.Publisher, h.Cfg.AlertSubject, log))
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	feed := auth.NewIdentityFeed(user.ID)
	sess := rt.NewSession(feed, h.Store, sink, log, rt.SessionOptions{
		Fallback: h.Cfg.Fallback,
		Now:      h.Cfg.Now,
	})
	defer sess.Close()

	if err := sess.Start(ctx); err != nil {
		// Realtime is an enhancement; the connection stays up and the
		// client may ask for a refresh.
		log.Warn("realtime session start failed", zap.Error(err))
	}

	go h.pingLoop(ctx, ws)
	h.readLoop(ws, feed, sess, log)
}

func (h *Handler) readLoop(ws *websocket.Conn, feed *auth.IdentityFeed, sess *rt.Session, log *zap.Logger) {
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg controlMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("realtime connection closed", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "refresh":
			if err := sess.Refresh(); err != nil {
				log.Warn("realtime refresh failed", zap.Error(err))
			}
		case "signout":
			feed.Clear()
		default:
			log.Debug("unknown realtime message", zap.String("type", msg.Type))
		}
	}
}

func (h *Handler) pingLoop(ctx context.Context, ws *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}
