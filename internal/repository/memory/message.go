package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dias221467/connections-chat/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageRepository struct {
	mu       sync.Mutex
	messages map[primitive.ObjectID][]*models.Message // conversation id -> messages
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{messages: make(map[primitive.ObjectID][]*models.Message)}
}

func (r *MessageRepository) InsertMessage(_ context.Context, msg *models.Message) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.ID = primitive.NewObjectID()
	stored := *msg
	r.messages[msg.ConversationID] = append(r.messages[msg.ConversationID], &stored)
	return msg, nil
}

func (r *MessageRepository) ListByConversation(_ context.Context, conversationID primitive.ObjectID) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Message, 0, len(r.messages[conversationID]))
	for _, msg := range r.messages[conversationID] {
		out = append(out, copyMessage(msg))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (r *MessageRepository) MarkConversationRead(_ context.Context, conversationID, readerID primitive.ObjectID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, msg := range r.messages[conversationID] {
		if msg.SenderID != readerID && !msg.IsRead {
			readAt := at
			msg.IsRead = true
			msg.ReadAt = &readAt
			n++
		}
	}
	return n, nil
}

func (r *MessageRepository) CountUnread(_ context.Context, conversationIDs []primitive.ObjectID, readerID primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[primitive.ObjectID]int64)
	for _, id := range conversationIDs {
		for _, msg := range r.messages[id] {
			if msg.SenderID != readerID && !msg.IsRead {
				counts[id]++
			}
		}
	}
	return counts, nil
}

func copyMessage(m *models.Message) models.Message {
	out := *m
	if m.ReadAt != nil {
		t := *m.ReadAt
		out.ReadAt = &t
	}
	return out
}
