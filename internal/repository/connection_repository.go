package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dias221467/connections-chat/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ConnectionRepository struct {
	collection *mongo.Collection
}

func NewConnectionRepository(db *mongo.Database) *ConnectionRepository {
	return &ConnectionRepository{
		collection: db.Collection("connection_requests"),
	}
}

// CreateRequest inserts a pending request. A live request for the same pair
// makes the unique active_pair index fail with ErrDuplicate.
func (r *ConnectionRepository) CreateRequest(ctx context.Context, req *models.ConnectionRequest) (*models.ConnectionRequest, error) {
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	req.Status = models.ConnectionStatusPending
	req.ActivePair = models.PairKey(req.SenderID, req.ReceiverID)

	result, err := r.collection.InsertOne(ctx, req)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("connection request for pair %s: %w", req.ActivePair, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to send connection request: %w", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to cast inserted ID")
	}
	req.ID = insertedID

	return req, nil
}

// FindActiveBetween returns a pending or accepted request between a and b in
// either direction.
func (r *ConnectionRepository) FindActiveBetween(ctx context.Context, a, b primitive.ObjectID) (*models.ConnectionRequest, error) {
	filter := bson.M{
		"$or": []bson.M{
			{"sender_id": a, "receiver_id": b},
			{"sender_id": b, "receiver_id": a},
		},
		"status": bson.M{"$in": []string{models.ConnectionStatusPending, models.ConnectionStatusAccepted}},
	}

	var req models.ConnectionRequest
	if err := r.collection.FindOne(ctx, filter).Decode(&req); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up connection request: %w", err)
	}
	return &req, nil
}

func (r *ConnectionRepository) GetRequestByID(ctx context.Context, id primitive.ObjectID) (*models.ConnectionRequest, error) {
	var request models.ConnectionRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&request)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find connection request: %w", err)
	}
	return &request, nil
}

func (r *ConnectionRepository) ListPendingByReceiver(ctx context.Context, receiverID primitive.ObjectID) ([]models.ConnectionRequest, error) {
	return r.find(ctx, bson.M{"receiver_id": receiverID, "status": models.ConnectionStatusPending})
}

func (r *ConnectionRepository) ListPendingBySender(ctx context.Context, senderID primitive.ObjectID) ([]models.ConnectionRequest, error) {
	return r.find(ctx, bson.M{"sender_id": senderID, "status": models.ConnectionStatusPending})
}

func (r *ConnectionRepository) ListAccepted(ctx context.Context, userID primitive.ObjectID) ([]models.ConnectionRequest, error) {
	filter := bson.M{
		"$or": []bson.M{
			{"sender_id": userID, "status": models.ConnectionStatusAccepted},
			{"receiver_id": userID, "status": models.ConnectionStatusAccepted},
		},
	}
	return r.find(ctx, filter)
}

// TransitionStatus moves a pending request owned by receiverID to status as a
// single conditional update. ErrNotFound means no pending request matched.
func (r *ConnectionRepository) TransitionStatus(ctx context.Context, id, receiverID primitive.ObjectID, status string) (*models.ConnectionRequest, error) {
	filter := bson.M{
		"_id":         id,
		"receiver_id": receiverID,
		"status":      models.ConnectionStatusPending,
	}
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}}
	if status == models.ConnectionStatusRejected {
		update["$unset"] = bson.M{"active_pair": ""}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var req models.ConnectionRequest
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&req); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update request status: %w", err)
	}
	return &req, nil
}

// AreConnected reports whether an accepted request exists for the pair.
func (r *ConnectionRepository) AreConnected(ctx context.Context, a, b primitive.ObjectID) (bool, error) {
	filter := bson.M{"active_pair": models.PairKey(a, b), "status": models.ConnectionStatusAccepted}
	n, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check connection: %w", err)
	}
	return n > 0, nil
}

// CountAcceptedByUser returns the number of accepted requests per principal.
func (r *ConnectionRepository) CountAcceptedByUser(ctx context.Context) (map[primitive.ObjectID]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.ConnectionStatusAccepted}}},
		{{Key: "$project", Value: bson.M{"users": bson.A{"$sender_id", "$receiver_id"}}}},
		{{Key: "$unwind", Value: "$users"}},
		{{Key: "$group", Value: bson.M{"_id": "$users", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate connection counts: %w", err)
	}
	defer cursor.Close(ctx)

	counts := make(map[primitive.ObjectID]int64)
	for cursor.Next(ctx) {
		var row struct {
			ID    primitive.ObjectID `bson:"_id"`
			Count int64              `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		counts[row.ID] = row.Count
	}
	return counts, cursor.Err()
}

func (r *ConnectionRepository) find(ctx context.Context, filter bson.M) ([]models.ConnectionRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find connection requests: %w", err)
	}
	defer cursor.Close(ctx)

	requests := []models.ConnectionRequest{}
	for cursor.Next(ctx) {
		var req models.ConnectionRequest
		if err := cursor.Decode(&req); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	return requests, cursor.Err()
}
