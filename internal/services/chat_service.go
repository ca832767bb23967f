package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Dias221467/connections-chat/internal/models"
	"github.com/Dias221467/connections-chat/internal/policy"
	"github.com/Dias221467/connections-chat/internal/projection"
	"github.com/Dias221467/connections-chat/internal/realtime"
	"github.com/Dias221467/connections-chat/pkg/apperrors"
	"github.com/Dias221467/connections-chat/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxMessageLen = 5000

// ChatOptions tunes conversation gating.
type ChatOptions struct {
	// RequireConnection refuses conversations between principals that do not
	// hold an accepted connection request.
	RequireConnection bool
}

// ChatService is the conversation store: one conversation per unordered pair
// of principals and the ordered messages inside it.
type ChatService struct {
	conversations ConversationStore
	messages      MessageStore
	connections   ConnectionStore
	authz         policy.Authorizer
	live          realtime.Publisher
	views         *projection.Builder
	opts          ChatOptions
}

func NewChatService(
	conversations ConversationStore,
	messages MessageStore,
	connections ConnectionStore,
	users UserStore,
	authz policy.Authorizer,
	live realtime.Publisher,
	opts ChatOptions,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		connections:   connections,
		authz:         authz,
		live:          live,
		views:         projection.NewBuilder(users),
		opts:          opts,
	}
}

// GetOrCreate returns the conversation between the caller and otherHex,
// creating it on first use. Argument order does not matter.
func (s *ChatService) GetOrCreate(ctx context.Context, caller policy.Principal, otherHex string) (*projection.ConversationView, error) {
	otherID, err := ParseID(otherHex, "otherUserId")
	if err != nil {
		return nil, err
	}
	if otherID == caller.ID {
		return nil, apperrors.InvalidArg("cannot start a conversation with yourself")
	}

	if s.opts.RequireConnection {
		connected, err := s.connections.AreConnected(ctx, caller.ID, otherID)
		if err != nil {
			return nil, storeError(err, "connection not found")
		}
		if !connected {
			return nil, apperrors.Forbidden("a connection is required to start a conversation")
		}
	}

	conv, err := s.conversations.GetOrCreate(ctx, caller.ID, otherID)
	if err != nil {
		return nil, storeError(err, "conversation not found")
	}
	view, err := s.views.Conversation(ctx, caller.ID, *conv)
	if err != nil {
		return nil, apperrors.Internal("failed to load conversation participants", err)
	}
	return view, nil
}

// ListForUser returns the caller's active conversations, most recent activity
// first, with the caller's unread count for each.
func (s *ChatService) ListForUser(ctx context.Context, caller policy.Principal) ([]projection.ConversationView, error) {
	convs, err := s.conversations.ListActiveForUser(ctx, caller.ID)
	if err != nil {
		return nil, storeError(err, "conversations not found")
	}

	ids := make([]primitive.ObjectID, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	unread, err := s.messages.CountUnread(ctx, ids, caller.ID)
	if err != nil {
		return nil, storeError(err, "messages not found")
	}

	views, err := s.views.Conversations(ctx, caller.ID, convs, unread)
	if err != nil {
		return nil, apperrors.Internal("failed to load conversation participants", err)
	}
	return views, nil
}

// SendMessage persists a message, advances the conversation preview and then
// pushes the message to live subscribers.
func (s *ChatService) SendMessage(ctx context.Context, caller policy.Principal, conversationHex, content string) (*projection.MessageView, error) {
	conv, err := s.authorizedConversation(ctx, caller, conversationHex, policy.ActionWriteConversation)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.InvalidArg("message content is required")
	}
	if utf8.RuneCountInString(content) > maxMessageLen {
		return nil, apperrors.InvalidArg(fmt.Sprintf("message must be at most %d characters", maxMessageLen))
	}

	seq, err := s.conversations.NextMessageSeq(ctx, conv.ID)
	if err != nil {
		return nil, storeError(err, "conversation not found")
	}

	msg, err := s.messages.InsertMessage(ctx, &models.Message{
		ConversationID: conv.ID,
		SenderID:       caller.ID,
		Content:        content,
		Seq:            seq,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return nil, storeError(err, "conversation not found")
	}

	if err := s.conversations.UpdateLastMessage(ctx, conv.ID, msg.Content, msg.CreatedAt, msg.Seq); err != nil {
		// The message is durable; the preview catches up on the next send.
		logger.Log.WithError(err).WithField("conversation_id", conv.ID.Hex()).Warn("Failed to update last message")
	}

	view, err := s.views.Message(ctx, *msg)
	if err != nil {
		return nil, apperrors.Internal("failed to load message sender", err)
	}

	s.publish(ctx, realtime.NewMessageDelivery(conv.ID.Hex(), hexIDs(conv.Participants), view))

	logger.Log.WithFields(logrus.Fields{
		"conversation_id": conv.ID.Hex(),
		"sender_id":       caller.ID.Hex(),
		"seq":             msg.Seq,
	}).Info("Message sent")
	return view, nil
}

// ListMessages returns the conversation's messages oldest first.
func (s *ChatService) ListMessages(ctx context.Context, caller policy.Principal, conversationHex string) ([]projection.MessageView, error) {
	conv, err := s.authorizedConversation(ctx, caller, conversationHex, policy.ActionReadConversation)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, storeError(err, "conversation not found")
	}
	views, err := s.views.Messages(ctx, msgs)
	if err != nil {
		return nil, apperrors.Internal("failed to load message senders", err)
	}
	return views, nil
}

// MarkRead marks every unread message written by the other participant as
// read and returns how many changed.
func (s *ChatService) MarkRead(ctx context.Context, caller policy.Principal, conversationHex string) (int64, error) {
	conv, err := s.authorizedConversation(ctx, caller, conversationHex, policy.ActionReadConversation)
	if err != nil {
		return 0, err
	}
	n, err := s.messages.MarkConversationRead(ctx, conv.ID, caller.ID, time.Now().UTC())
	if err != nil {
		return 0, storeError(err, "conversation not found")
	}
	return n, nil
}

// CanSubscribe checks that the caller may join the conversation's live room and
// returns the room key deliveries are published under.
func (s *ChatService) CanSubscribe(ctx context.Context, caller policy.Principal, conversationHex string) (string, error) {
	conv, err := s.authorizedConversation(ctx, caller, conversationHex, policy.ActionSubscribe)
	if err != nil {
		return "", err
	}
	return conv.ID.Hex(), nil
}

// Typing relays an ephemeral typing signal to the other participants.
func (s *ChatService) Typing(ctx context.Context, caller policy.Principal, conversationHex string, typing bool) error {
	conv, err := s.authorizedConversation(ctx, caller, conversationHex, policy.ActionWriteConversation)
	if err != nil {
		return err
	}
	s.publish(ctx, realtime.TypingDelivery(conv.ID.Hex(), caller.ID.Hex(), typing))
	return nil
}

func (s *ChatService) authorizedConversation(ctx context.Context, caller policy.Principal, conversationHex string, action policy.Action) (*models.Conversation, error) {
	conversationID, err := ParseID(conversationHex, "conversationId")
	if err != nil {
		return nil, err
	}
	conv, err := s.conversations.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, storeError(err, "conversation not found")
	}
	if err := s.authz.Authorize(caller, action, policy.Resource{Participants: conv.Participants}); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ChatService) publish(ctx context.Context, d realtime.Delivery) {
	if s.live == nil {
		return
	}
	if err := s.live.Publish(ctx, d); err != nil {
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"event":           d.Event.Type,
			"conversation_id": d.Event.ConversationID,
		}).Warn("Live channel publish failed")
	}
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}
