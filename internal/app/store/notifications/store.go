// internal/app/store/notifications/store.go
package notifications

import (
	"context"
	"time"

	"github.com/dalemusser/solarhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Listing bounds.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Store reads the notification inbox. Records are written by the realtime
// dispatcher through the document store; this store only adds typed reads
// (and Create for seeding).
type Store struct {
	c *mongo.Collection
}

// New creates a new notifications Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notifications")}
}

// Create inserts n, filling ID and CreatedAt when unset.
func (s *Store) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, n)
	return n, err
}

// ListByRecipient returns the recipient's newest notifications. limit is
// clamped to [1, MaxLimit]; zero means DefaultLimit.
func (s *Store) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(ClampLimit(limit)))

	cur, err := s.c.Find(ctx, bson.M{"recipient_id": recipientID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Notification{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountUnread returns how many of the recipient's notifications are unread.
func (s *Store) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"recipient_id": recipientID, "read": false})
}

// ClampLimit applies the listing bounds to a requested limit.
func ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultLimit
	case limit < 1:
		return 1
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
