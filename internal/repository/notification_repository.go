package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dias221467/connections-chat/internal/models"
	"github.com/Dias221467/connections-chat/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository is an append-only mailbox keyed by (owner_id, ordinal).
// Ordinals are allocated from a per-owner counter document.
type NotificationRepository struct {
	collection *mongo.Collection
	counters   *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notifications"),
		counters:   db.Collection("notification_counters"),
	}
}

// AppendNotification allocates the owner's next ordinal and inserts the entry.
func (r *NotificationRepository) AppendNotification(ctx context.Context, notif *models.Notification) (*models.Notification, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": notif.OwnerID},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate notification ordinal: %w", err)
	}

	notif.Ordinal = counter.Seq
	notif.IsRead = false
	notif.ReadAt = nil
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, notif)
	if err != nil {
		logger.Log.WithError(err).WithField("owner_id", notif.OwnerID.Hex()).Error("Failed to insert notification")
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		notif.ID = id
	}
	return notif, nil
}

// ListNotifications returns one page of the owner's mailbox ordered by
// ordinal descending, the key the before cursor pages on.
func (r *NotificationRepository) ListNotifications(ctx context.Context, ownerID primitive.ObjectID, page models.Page) ([]models.Notification, error) {
	page = page.Normalize()
	filter := bson.M{"owner_id": ownerID}
	if page.Before > 0 {
		filter["ordinal"] = bson.M{"$lt": page.Before}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "ordinal", Value: -1}}).
		SetLimit(int64(page.Limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead sets is_read on the owner's entry.
func (r *NotificationRepository) MarkNotificationRead(ctx context.Context, ownerID primitive.ObjectID, ordinal int64) error {
	filter := bson.M{"owner_id": ownerID, "ordinal": ordinal}
	update := bson.M{"$set": bson.M{"is_read": true, "read_at": time.Now().UTC()}}

	// read_at is only stamped the first time.
	var existing models.Notification
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"owner_id": ownerID, "ordinal": ordinal, "is_read": false},
		update,
	).Decode(&existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	n, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to look up notification: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) CountUnreadNotifications(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"owner_id": ownerID, "is_read": false})
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return n, nil
}
