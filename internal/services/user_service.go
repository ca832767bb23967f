package services

import (
	"context"

	"github.com/Dias221467/connections-chat/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserService exposes the read side of user profiles. Accounts themselves are
// managed by the identity provider.
type UserService struct {
	repo UserStore
}

func NewUserService(repo UserStore) *UserService {
	return &UserService{repo: repo}
}

// GetProfile returns the user together with its connection count.
func (s *UserService) GetProfile(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	return user, nil
}
