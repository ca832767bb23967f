package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ConnectionStatusPending  = "pending"
	ConnectionStatusAccepted = "accepted"
	ConnectionStatusRejected = "rejected"
)

// ConnectionRequest is an edge candidate between two principals.
// ActivePair is set while the request is pending or accepted and is backed by a
// sparse unique index, so at most one live request exists per unordered pair.
type ConnectionRequest struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SenderID   primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	ReceiverID primitive.ObjectID `bson:"receiver_id" json:"receiver_id"`
	Message    string             `bson:"message,omitempty" json:"message,omitempty"`
	Status     string             `bson:"status" json:"status"` // "pending", "accepted", "rejected"
	ActivePair string             `bson:"active_pair,omitempty" json:"-"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// Involves reports whether userID is either side of the request.
func (r *ConnectionRequest) Involves(userID primitive.ObjectID) bool {
	return r.SenderID == userID || r.ReceiverID == userID
}

// Other returns the principal on the opposite side from userID.
func (r *ConnectionRequest) Other(userID primitive.ObjectID) primitive.ObjectID {
	if r.SenderID == userID {
		return r.ReceiverID
	}
	return r.SenderID
}
