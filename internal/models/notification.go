package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	NotificationConnectionRequest  = "connection_request"
	NotificationConnectionAccepted = "connection_accepted"
)

// Notification is one entry of a principal's mailbox, addressed by (OwnerID, Ordinal).
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	OwnerID   primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Ordinal   int64              `bson:"ordinal" json:"id"`
	Type      string             `bson:"type" json:"type"`       // e.g. "connection_request", "connection_accepted"
	Title     string             `bson:"title" json:"title"`     // Short headline
	Message   string             `bson:"message" json:"message"` // Descriptive content
	Related   map[string]string  `bson:"related,omitempty" json:"related,omitempty"`
	IsRead    bool               `bson:"is_read" json:"is_read"`
	ReadAt    *time.Time         `bson:"read_at,omitempty" json:"read_at,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page selects a window of a newest-first list. Before is an exclusive ordinal
// cursor; zero means start from the newest entry.
type Page struct {
	Limit  int
	Before int64
}

// Normalize clamps the limit into [1, MaxPageLimit].
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Before < 0 {
		p.Before = 0
	}
	return p
}
