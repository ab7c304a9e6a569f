// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification categories.
const (
	CategoryNewListing = "new-listing"
	CategoryPurchase   = "purchase"
	CategorySale       = "sale"
)

// Notification is the durable record written once per qualifying change.
// Read is owned by the inbox UI; the realtime subsystem only ever inserts.
type Notification struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecipientID string             `bson:"recipient_id" json:"recipient_id"`
	Category    string             `bson:"category" json:"category"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	RelatedID   string             `bson:"related_id,omitempty" json:"related_id,omitempty"`
	Read        bool               `bson:"read" json:"read"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
