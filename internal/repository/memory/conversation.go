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

type ConversationRepository struct {
	mu            sync.Mutex
	conversations map[primitive.ObjectID]*models.Conversation
	byPair        map[string]primitive.ObjectID
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		conversations: make(map[primitive.ObjectID]*models.Conversation),
		byPair:        make(map[string]primitive.ObjectID),
	}
}

func (r *ConversationRepository) GetOrCreate(_ context.Context, a, b primitive.ObjectID) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := models.PairKey(a, b)
	if id, ok := r.byPair[key]; ok {
		return copyConversation(r.conversations[id]), nil
	}

	now := time.Now().UTC()
	conv := &models.Conversation{
		ID:           primitive.NewObjectID(),
		Participants: models.SortedPair(a, b),
		PairKey:      key,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.conversations[conv.ID] = conv
	r.byPair[key] = conv.ID
	return copyConversation(conv), nil
}

func (r *ConversationRepository) GetConversationByID(_ context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyConversation(conv), nil
}

func (r *ConversationRepository) ListActiveForUser(_ context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.Conversation{}
	for _, conv := range r.conversations {
		if conv.IsActive && conv.HasParticipant(userID) {
			out = append(out, *copyConversation(conv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].LastMessageTime, out[j].LastMessageTime
		switch {
		case ti != nil && tj != nil && !ti.Equal(*tj):
			return ti.After(*tj)
		case ti != nil && tj == nil:
			return true
		case ti == nil && tj != nil:
			return false
		}
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

func (r *ConversationRepository) NextMessageSeq(_ context.Context, id primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	conv.MessageSeq++
	return conv.MessageSeq, nil
}

func (r *ConversationRepository) UpdateLastMessage(_ context.Context, id primitive.ObjectID, preview string, at time.Time, seq int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok || conv.LastMessageSeq >= seq {
		return nil
	}
	conv.LastMessage = &preview
	conv.LastMessageTime = &at
	conv.LastMessageSeq = seq
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

func copyConversation(c *models.Conversation) *models.Conversation {
	out := *c
	out.Participants = append([]primitive.ObjectID(nil), c.Participants...)
	if c.LastMessage != nil {
		s := *c.LastMessage
		out.LastMessage = &s
	}
	if c.LastMessageTime != nil {
		t := *c.LastMessageTime
		out.LastMessageTime = &t
	}
	return &out
}
