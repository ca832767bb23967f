package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the profile record kept by the identity system. This service only
// reads summaries and owns ConnectionCount.
type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username        string             `bson:"username,omitempty" json:"username"`
	Email           string             `bson:"email,omitempty" json:"email"`
	Role            string             `bson:"role,omitempty" json:"role"`
	ConnectionCount int64              `bson:"connection_count" json:"connection_count"`
	CreatedAt       time.Time          `bson:"created_at,omitempty" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at,omitempty" json:"updated_at"`
}

type PublicUser struct {
	ID       primitive.ObjectID `json:"id"`
	Username string             `json:"username"`
	Email    string             `json:"email,omitempty"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email}
}
