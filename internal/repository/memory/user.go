package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Dias221467/connections-chat/internal/models"
	"github.com/Dias221467/connections-chat/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRepository struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User

	// FailIncrements makes the next n IncrementConnectionCount calls fail.
	FailIncrements int
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[primitive.ObjectID]*models.User)}
}

func (r *UserRepository) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.users[user.ID] = &stored
	return user, nil
}

func (r *UserRepository) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *user
	return &out, nil
}

func (r *UserRepository) GetUsersByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.User{}
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			out = append(out, *user)
		}
	}
	return out, nil
}

func (r *UserRepository) IncrementConnectionCount(_ context.Context, userID primitive.ObjectID, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailIncrements > 0 {
		r.FailIncrements--
		return errIncrementUnavailable
	}
	r.upsertLocked(userID).ConnectionCount += delta
	return nil
}

func (r *UserRepository) SetConnectionCount(_ context.Context, userID primitive.ObjectID, count int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.upsertLocked(userID).ConnectionCount = count
	return nil
}

func (r *UserRepository) CompareAndSetConnectionCount(_ context.Context, userID primitive.ObjectID, old, count int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var current int64
	if user, ok := r.users[userID]; ok {
		current = user.ConnectionCount
	}
	if current != old {
		return false, nil
	}
	r.upsertLocked(userID).ConnectionCount = count
	return true, nil
}

func (r *UserRepository) ListConnectionCounts(_ context.Context) (map[primitive.ObjectID]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[primitive.ObjectID]int64)
	for id, user := range r.users {
		if user.ConnectionCount != 0 {
			counts[id] = user.ConnectionCount
		}
	}
	return counts, nil
}

func (r *UserRepository) upsertLocked(id primitive.ObjectID) *models.User {
	user, ok := r.users[id]
	if !ok {
		user = &models.User{ID: id, CreatedAt: time.Now().UTC()}
		r.users[id] = user
	}
	user.UpdatedAt = time.Now().UTC()
	return user
}
