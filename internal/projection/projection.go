// Package projection assembles response views from stored records, fetching
// the referenced users by id in one batch per call.
package projection

import (
	"context"
	"fmt"
	"time"

	"github.com/Dias221467/connections-chat/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserLookup interface {
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
}

type RequestView struct {
	ID        primitive.ObjectID `json:"id"`
	Sender    models.PublicUser  `json:"sender"`
	Receiver  models.PublicUser  `json:"receiver"`
	Message   string             `json:"message,omitempty"`
	Status    string             `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type ConnectionView struct {
	RequestID   primitive.ObjectID `json:"request_id"`
	User        models.PublicUser  `json:"user"`
	ConnectedAt time.Time          `json:"connected_at"`
}

type ConversationView struct {
	ID              primitive.ObjectID `json:"id"`
	OtherUser       models.PublicUser  `json:"other_user"`
	LastMessage     *string            `json:"last_message"`
	LastMessageTime *time.Time         `json:"last_message_time"`
	UnreadCount     int64              `json:"unread_count"`
	IsActive        bool               `json:"is_active"`
	CreatedAt       time.Time          `json:"created_at"`
}

type MessageView struct {
	ID             primitive.ObjectID `json:"id"`
	ConversationID primitive.ObjectID `json:"conversation_id"`
	Content        string             `json:"content"`
	Sender         models.PublicUser  `json:"sender"`
	IsRead         bool               `json:"is_read"`
	ReadAt         *time.Time         `json:"read_at"`
	CreatedAt      time.Time          `json:"created_at"`
}

type Builder struct {
	users UserLookup
}

func NewBuilder(users UserLookup) *Builder {
	return &Builder{users: users}
}

func (b *Builder) Requests(ctx context.Context, reqs []models.ConnectionRequest) ([]RequestView, error) {
	ids := make([]primitive.ObjectID, 0, len(reqs)*2)
	for _, req := range reqs {
		ids = append(ids, req.SenderID, req.ReceiverID)
	}
	users, err := b.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]RequestView, 0, len(reqs))
	for _, req := range reqs {
		views = append(views, RequestView{
			ID:        req.ID,
			Sender:    users.get(req.SenderID),
			Receiver:  users.get(req.ReceiverID),
			Message:   req.Message,
			Status:    req.Status,
			CreatedAt: req.CreatedAt,
			UpdatedAt: req.UpdatedAt,
		})
	}
	return views, nil
}

func (b *Builder) Request(ctx context.Context, req models.ConnectionRequest) (*RequestView, error) {
	views, err := b.Requests(ctx, []models.ConnectionRequest{req})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Connections resolves the other side of each accepted request relative to self.
func (b *Builder) Connections(ctx context.Context, self primitive.ObjectID, reqs []models.ConnectionRequest) ([]ConnectionView, error) {
	ids := make([]primitive.ObjectID, 0, len(reqs))
	for i := range reqs {
		ids = append(ids, reqs[i].Other(self))
	}
	users, err := b.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]ConnectionView, 0, len(reqs))
	for i := range reqs {
		views = append(views, ConnectionView{
			RequestID:   reqs[i].ID,
			User:        users.get(reqs[i].Other(self)),
			ConnectedAt: reqs[i].UpdatedAt,
		})
	}
	return views, nil
}

func (b *Builder) Conversations(ctx context.Context, self primitive.ObjectID, convs []models.Conversation, unread map[primitive.ObjectID]int64) ([]ConversationView, error) {
	ids := make([]primitive.ObjectID, 0, len(convs))
	for i := range convs {
		ids = append(ids, convs[i].OtherParticipant(self))
	}
	users, err := b.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]ConversationView, 0, len(convs))
	for i := range convs {
		c := &convs[i]
		views = append(views, ConversationView{
			ID:              c.ID,
			OtherUser:       users.get(c.OtherParticipant(self)),
			LastMessage:     c.LastMessage,
			LastMessageTime: c.LastMessageTime,
			UnreadCount:     unread[c.ID],
			IsActive:        c.IsActive,
			CreatedAt:       c.CreatedAt,
		})
	}
	return views, nil
}

func (b *Builder) Conversation(ctx context.Context, self primitive.ObjectID, conv models.Conversation) (*ConversationView, error) {
	views, err := b.Conversations(ctx, self, []models.Conversation{conv}, nil)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (b *Builder) Messages(ctx context.Context, msgs []models.Message) ([]MessageView, error) {
	ids := make([]primitive.ObjectID, 0, 2)
	for _, m := range msgs {
		ids = append(ids, m.SenderID)
	}
	users, err := b.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, MessageView{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			Content:        m.Content,
			Sender:         users.get(m.SenderID),
			IsRead:         m.IsRead,
			ReadAt:         m.ReadAt,
			CreatedAt:      m.CreatedAt,
		})
	}
	return views, nil
}

func (b *Builder) Message(ctx context.Context, msg models.Message) (*MessageView, error) {
	views, err := b.Messages(ctx, []models.Message{msg})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

type userIndex map[primitive.ObjectID]models.User

// get falls back to an id-only summary for users the directory does not know.
func (idx userIndex) get(id primitive.ObjectID) models.PublicUser {
	if u, ok := idx[id]; ok {
		return u.Public()
	}
	return models.PublicUser{ID: id}
}

func (b *Builder) lookup(ctx context.Context, ids []primitive.ObjectID) (userIndex, error) {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	unique := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	idx := make(userIndex, len(unique))
	if len(unique) == 0 {
		return idx, nil
	}
	users, err := b.users.GetUsersByIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve users: %w", err)
	}
	for _, u := range users {
		idx[u.ID] = u
	}
	return idx, nil
}
