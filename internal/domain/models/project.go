// internal/domain/models/project.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project is a tokenized solar installation listed on the marketplace.
// OwnerID holds the listing seller's identity.
type Project struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID     string             `bson:"owner_id" json:"owner_id"`
	Name        string             `bson:"name" json:"name"`
	Location    string             `bson:"location" json:"location"`
	CapacityKW  float64            `bson:"capacity_kw" json:"capacity_kw"`
	TokenPrice  float64            `bson:"token_price" json:"token_price"`
	TokensTotal int64              `bson:"tokens_total" json:"tokens_total"`
	Status      string             `bson:"status,omitempty" json:"status,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
