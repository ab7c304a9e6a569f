// internal/app/features/notifications/handler.go
package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	notificationstore "github.com/dalemusser/solarhub/internal/app/store/notifications"
	"github.com/dalemusser/solarhub/internal/app/system/auth"
	"github.com/dalemusser/solarhub/internal/app/system/timeouts"
	"github.com/dalemusser/solarhub/internal/domain/models"
	"go.uber.org/zap"
)

// Inbox is the read side of the notifications store.
type Inbox interface {
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
}

// Handler serves the signed-in user's notification inbox.
type Handler struct {
	Inbox Inbox
	Log   *zap.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(inbox Inbox, logger *zap.Logger) *Handler {
	return &Handler{Inbox: inbox, Log: logger}
}

type listResponse struct {
	Notifications []models.Notification `json:"notifications"`
}

type unreadResponse struct {
	Unread int64 `json:"unread"`
}

// ServeList handles GET /notifications?limit=N.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "notifications list")
	defer cancel()

	list, err := h.Inbox.ListByRecipient(ctx, user.ID, notificationstore.ClampLimit(limit))
	if err != nil {
		h.Log.Error("list notifications failed", zap.String("user_id", user.ID), zap.Error(err))
		http.Error(w, "notifications unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, listResponse{Notifications: list})
}

// ServeUnreadCount handles GET /notifications/unread-count.
func (h *Handler) ServeUnreadCount(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "notifications unread count")
	defer cancel()

	n, err := h.Inbox.CountUnread(ctx, user.ID)
	if err != nil {
		h.Log.Error("count unread notifications failed", zap.String("user_id", user.ID), zap.Error(err))
		http.Error(w, "notifications unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, unreadResponse{Unread: n})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
