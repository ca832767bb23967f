package handlers

import (
	"net/http"
	"time"

	"github.com/Dias221467/connections-chat/internal/services"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserHandler serves profile reads. Registration and login belong to the
// identity provider.
type UserHandler struct {
	Service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{Service: service}
}

type profileResponse struct {
	ID              primitive.ObjectID `json:"id"`
	Username        string             `json:"username"`
	Email           string             `json:"email,omitempty"`
	Role            string             `json:"role,omitempty"`
	ConnectionCount int64              `json:"connection_count"`
	CreatedAt       time.Time          `json:"created_at"`
}

// GetUserHandler handles GET /users/{id}. Email and role are only shown to
// the profile owner.
func (h *UserHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := services.ParseID(mux.Vars(r)["id"], "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.Service.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := profileResponse{
		ID:              user.ID,
		Username:        user.Username,
		ConnectionCount: user.ConnectionCount,
		CreatedAt:       user.CreatedAt,
	}
	if caller.ID == user.ID {
		resp.Email = user.Email
		resp.Role = user.Role
	}
	writeJSON(w, http.StatusOK, resp)
}
