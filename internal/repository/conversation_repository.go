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

// ConversationRepository stores one conversation per unordered pair of principals.
type ConversationRepository struct {
	collection *mongo.Collection
}

func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	return &ConversationRepository{collection: db.Collection("conversations")}
}

// GetOrCreate upserts the conversation keyed by the pair. Two racing upserts
// can both miss and try to insert; the loser sees a duplicate key error and
// reads the winner's document on retry.
func (r *ConversationRepository) GetOrCreate(ctx context.Context, a, b primitive.ObjectID) (*models.Conversation, error) {
	key := models.PairKey(a, b)
	now := time.Now().UTC()

	filter := bson.M{"pair_key": key}
	update := bson.M{"$setOnInsert": bson.M{
		"participants":      models.SortedPair(a, b),
		"last_message":      nil,
		"last_message_time": nil,
		"last_message_seq":  int64(0),
		"message_seq":       int64(0),
		"is_active":         true,
		"created_at":        now,
		"updated_at":        now,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var conv models.Conversation
	for attempt := 0; attempt < 2; attempt++ {
		err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv)
		if err == nil {
			return &conv, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("failed to get or create conversation: %w", err)
		}
		logger.Log.WithField("pair_key", key).Debug("Conversation upsert raced, retrying")
	}
	return nil, fmt.Errorf("failed to get or create conversation %s: %w", key, ErrDuplicate)
}

func (r *ConversationRepository) GetConversationByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&conv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	return &conv, nil
}

// ListActiveForUser returns the active conversations of userID, most recently
// messaged first. Conversations without messages sort last.
func (r *ConversationRepository) ListActiveForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	filter := bson.M{"participants": userID, "is_active": true}
	opts := options.Find().SetSort(bson.D{
		{Key: "last_message_time", Value: -1},
		{Key: "updated_at", Value: -1},
		{Key: "_id", Value: -1},
	})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer cursor.Close(ctx)

	conversations := []models.Conversation{}
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	return conversations, nil
}

// NextMessageSeq allocates the next message sequence number of the conversation.
func (r *ConversationRepository) NextMessageSeq(ctx context.Context, id primitive.ObjectID) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"message_seq": 1})

	var doc struct {
		MessageSeq int64 `bson:"message_seq"`
	}
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"message_seq": 1}}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to allocate message sequence: %w", err)
	}
	return doc.MessageSeq, nil
}

// UpdateLastMessage sets the preview fields unless a later message already did.
func (r *ConversationRepository) UpdateLastMessage(ctx context.Context, id primitive.ObjectID, preview string, at time.Time, seq int64) error {
	filter := bson.M{"_id": id, "last_message_seq": bson.M{"$lt": seq}}
	update := bson.M{"$set": bson.M{
		"last_message":      preview,
		"last_message_time": at,
		"last_message_seq":  seq,
		"updated_at":        time.Now().UTC(),
	}}
	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to update last message: %w", err)
	}
	return nil
}
