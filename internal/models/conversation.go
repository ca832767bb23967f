package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation is a 1:1 thread keyed by an unordered pair of principals.
type Conversation struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Participants    []primitive.ObjectID `bson:"participants" json:"participants"`
	PairKey         string               `bson:"pair_key" json:"-"`
	LastMessage     *string              `bson:"last_message" json:"last_message"`
	LastMessageTime *time.Time           `bson:"last_message_time" json:"last_message_time"`
	LastMessageSeq  int64                `bson:"last_message_seq" json:"-"`
	MessageSeq      int64                `bson:"message_seq" json:"-"`
	IsActive        bool                 `bson:"is_active" json:"is_active"`
	CreatedAt       time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at" json:"updated_at"`
}

func (c *Conversation) HasParticipant(userID primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID primitive.ObjectID) primitive.ObjectID {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return primitive.NilObjectID
}
