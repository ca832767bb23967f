package services

import (
	"context"
	"time"

	"github.com/Dias221467/connections-chat/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The interfaces below are satisfied by both the mongo repositories and the
// in-memory store.

type ConnectionStore interface {
	CreateRequest(ctx context.Context, req *models.ConnectionRequest) (*models.ConnectionRequest, error)
	FindActiveBetween(ctx context.Context, a, b primitive.ObjectID) (*models.ConnectionRequest, error)
	GetRequestByID(ctx context.Context, id primitive.ObjectID) (*models.ConnectionRequest, error)
	ListPendingByReceiver(ctx context.Context, receiverID primitive.ObjectID) ([]models.ConnectionRequest, error)
	ListPendingBySender(ctx context.Context, senderID primitive.ObjectID) ([]models.ConnectionRequest, error)
	ListAccepted(ctx context.Context, userID primitive.ObjectID) ([]models.ConnectionRequest, error)
	TransitionStatus(ctx context.Context, id, receiverID primitive.ObjectID, status string) (*models.ConnectionRequest, error)
	AreConnected(ctx context.Context, a, b primitive.ObjectID) (bool, error)
}

type ConversationStore interface {
	GetOrCreate(ctx context.Context, a, b primitive.ObjectID) (*models.Conversation, error)
	GetConversationByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error)
	ListActiveForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error)
	NextMessageSeq(ctx context.Context, id primitive.ObjectID) (int64, error)
	UpdateLastMessage(ctx context.Context, id primitive.ObjectID, preview string, at time.Time, seq int64) error
}

type MessageStore interface {
	InsertMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
	ListByConversation(ctx context.Context, conversationID primitive.ObjectID) ([]models.Message, error)
	MarkConversationRead(ctx context.Context, conversationID, readerID primitive.ObjectID, at time.Time) (int64, error)
	CountUnread(ctx context.Context, conversationIDs []primitive.ObjectID, readerID primitive.ObjectID) (map[primitive.ObjectID]int64, error)
}

type NotificationStore interface {
	AppendNotification(ctx context.Context, notif *models.Notification) (*models.Notification, error)
	ListNotifications(ctx context.Context, ownerID primitive.ObjectID, page models.Page) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, ownerID primitive.ObjectID, ordinal int64) error
	CountUnreadNotifications(ctx context.Context, ownerID primitive.ObjectID) (int64, error)
}

type UserStore interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	IncrementConnectionCount(ctx context.Context, userID primitive.ObjectID, delta int64) error
}

// CounterRetryQueue hands a failed counter increment to a background worker.
type CounterRetryQueue interface {
	EnqueueIncrement(ctx context.Context, userID primitive.ObjectID, delta int64) error
}
