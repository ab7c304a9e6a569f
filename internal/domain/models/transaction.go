// internal/domain/models/transaction.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transaction records a token purchase. ProjectName is denormalized so
// notifications can be formatted without a second read.
type Transaction struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID   string             `bson:"project_id" json:"project_id"`
	ProjectName string             `bson:"project_name" json:"project_name"`
	BuyerID     string             `bson:"buyer_id" json:"buyer_id"`
	SellerID    string             `bson:"seller_id" json:"seller_id"`
	Tokens      int64              `bson:"tokens" json:"tokens"`
	Amount      float64            `bson:"amount" json:"amount"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
