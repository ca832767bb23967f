package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dias221467/connections-chat/internal/models"
	"github.com/Dias221467/connections-chat/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ConnectionRepository struct {
	mu       sync.Mutex
	requests map[primitive.ObjectID]*models.ConnectionRequest
	active   map[string]primitive.ObjectID // active_pair -> request id
}

func NewConnectionRepository() *ConnectionRepository {
	return &ConnectionRepository{
		requests: make(map[primitive.ObjectID]*models.ConnectionRequest),
		active:   make(map[string]primitive.ObjectID),
	}
}

func (r *ConnectionRepository) CreateRequest(_ context.Context, req *models.ConnectionRequest) (*models.ConnectionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := models.PairKey(req.SenderID, req.ReceiverID)
	if _, exists := r.active[key]; exists {
		return nil, repository.ErrDuplicate
	}

	now := time.Now().UTC()
	req.ID = primitive.NewObjectID()
	req.CreatedAt = now
	req.UpdatedAt = now
	req.Status = models.ConnectionStatusPending
	req.ActivePair = key

	stored := *req
	r.requests[req.ID] = &stored
	r.active[key] = req.ID
	return req, nil
}

func (r *ConnectionRepository) FindActiveBetween(_ context.Context, a, b primitive.ObjectID) (*models.ConnectionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.active[models.PairKey(a, b)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *r.requests[id]
	return &out, nil
}

func (r *ConnectionRepository) GetRequestByID(_ context.Context, id primitive.ObjectID) (*models.ConnectionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *req
	return &out, nil
}

func (r *ConnectionRepository) ListPendingByReceiver(_ context.Context, receiverID primitive.ObjectID) ([]models.ConnectionRequest, error) {
	return r.filter(func(req *models.ConnectionRequest) bool {
		return req.ReceiverID == receiverID && req.Status == models.ConnectionStatusPending
	}), nil
}

func (r *ConnectionRepository) ListPendingBySender(_ context.Context, senderID primitive.ObjectID) ([]models.ConnectionRequest, error) {
	return r.filter(func(req *models.ConnectionRequest) bool {
		return req.SenderID == senderID && req.Status == models.ConnectionStatusPending
	}), nil
}

func (r *ConnectionRepository) ListAccepted(_ context.Context, userID primitive.ObjectID) ([]models.ConnectionRequest, error) {
	return r.filter(func(req *models.ConnectionRequest) bool {
		return req.Involves(userID) && req.Status == models.ConnectionStatusAccepted
	}), nil
}

func (r *ConnectionRepository) TransitionStatus(_ context.Context, id, receiverID primitive.ObjectID, status string) (*models.ConnectionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok || req.ReceiverID != receiverID || req.Status != models.ConnectionStatusPending {
		return nil, repository.ErrNotFound
	}

	req.Status = status
	req.UpdatedAt = time.Now().UTC()
	if status == models.ConnectionStatusRejected {
		delete(r.active, req.ActivePair)
		req.ActivePair = ""
	}
	out := *req
	return &out, nil
}

func (r *ConnectionRepository) AreConnected(_ context.Context, a, b primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.active[models.PairKey(a, b)]
	if !ok {
		return false, nil
	}
	return r.requests[id].Status == models.ConnectionStatusAccepted, nil
}

func (r *ConnectionRepository) CountAcceptedByUser(_ context.Context) (map[primitive.ObjectID]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[primitive.ObjectID]int64)
	for _, req := range r.requests {
		if req.Status == models.ConnectionStatusAccepted {
			counts[req.SenderID]++
			counts[req.ReceiverID]++
		}
	}
	return counts, nil
}

// filter returns matching requests newest first.
func (r *ConnectionRepository) filter(match func(*models.ConnectionRequest) bool) []models.ConnectionRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.ConnectionRequest{}
	for _, req := range r.requests {
		if match(req) {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out
}
