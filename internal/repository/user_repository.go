package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dias221467/connections-chat/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository reads profile summaries and maintains connection counters.
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
	}
}

// CreateUser inserts a profile. Profiles normally come from the identity
// system; this is used for seeding.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt

	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert user into database")
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to cast inserted ID")
	}
	user.ID = insertedID
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (r *UserRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		logrus.WithFields(logrus.Fields{
			"userID": id.Hex(),
			"error":  err,
		}).Warn("Failed to find user by ID")
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}
	return &user, nil
}

// GetUsersByIDs fetches user details for a list of ObjectIDs.
func (r *UserRepository) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	filter := bson.M{"_id": bson.M{"$in": ids}}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users by IDs: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	for cursor.Next(ctx) {
		var user models.User
		if err := cursor.Decode(&user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, cursor.Err()
}

// IncrementConnectionCount adds delta to the user's counter. The document is
// upserted so a principal without a profile row is still counted.
func (r *UserRepository) IncrementConnectionCount(ctx context.Context, userID primitive.ObjectID, delta int64) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{
			"$inc": bson.M{"connection_count": delta},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to increment connection count: %w", err)
	}
	return nil
}

func (r *UserRepository) SetConnectionCount(ctx context.Context, userID primitive.ObjectID, count int64) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"connection_count": count, "updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to set connection count: %w", err)
	}
	return nil
}

// CompareAndSetConnectionCount sets the counter to count only while it still
// holds old. A missing counter reads as 0. It reports whether the write applied.
func (r *UserRepository) CompareAndSetConnectionCount(ctx context.Context, userID primitive.ObjectID, old, count int64) (bool, error) {
	filter := bson.M{"_id": userID, "connection_count": old}
	if old == 0 {
		filter = bson.M{"_id": userID, "$or": []bson.M{
			{"connection_count": 0},
			{"connection_count": bson.M{"$exists": false}},
		}}
	}
	result, err := r.collection.UpdateOne(
		ctx,
		filter,
		bson.M{"$set": bson.M{"connection_count": count, "updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(old == 0),
	)
	if err != nil {
		// The upsert collides with a row whose counter moved off zero.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to set connection count: %w", err)
	}
	return result.MatchedCount > 0 || result.UpsertedCount > 0, nil
}

// ListConnectionCounts returns every non-zero stored counter.
func (r *UserRepository) ListConnectionCounts(ctx context.Context) (map[primitive.ObjectID]int64, error) {
	opts := options.Find().SetProjection(bson.M{"connection_count": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"connection_count": bson.M{"$exists": true, "$ne": 0}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch connection counts: %w", err)
	}
	defer cursor.Close(ctx)

	counts := make(map[primitive.ObjectID]int64)
	for cursor.Next(ctx) {
		var user models.User
		if err := cursor.Decode(&user); err != nil {
			return nil, fmt.Errorf("failed to decode user: %w", err)
		}
		counts[user.ID] = user.ConnectionCount
	}
	return counts, cursor.Err()
}
