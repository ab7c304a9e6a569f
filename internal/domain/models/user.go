// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the marketplace profile record. Role is one of buyer | seller | admin.
//
// NOTE:
//   - Profiles are keyed by the auth identity (the hex of ID), so the role
//     lookup is a single get-by-id.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName  string             `bson:"full_name" json:"full_name"`
	Email     string             `bson:"email" json:"email"`
	Role      string             `bson:"role" json:"role"` // buyer | seller | admin
	Status    string             `bson:"status,omitempty" json:"status,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
