package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID primitive.ObjectID `bson:"conversation_id" json:"conversation_id"`
	SenderID       primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	Content        string             `bson:"content" json:"content"`
	Seq            int64              `bson:"seq" json:"seq"`
	IsRead         bool               `bson:"is_read" json:"is_read"`
	ReadAt         *time.Time         `bson:"read_at" json:"read_at"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}
