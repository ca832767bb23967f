package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Dias221467/connections-chat/internal/models"
	"github.com/Dias221467/connections-chat/internal/policy"
	"github.com/Dias221467/connections-chat/internal/realtime"
	"github.com/Dias221467/connections-chat/internal/repository/memory"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type recordingPublisher struct {
	mu         sync.Mutex
	deliveries []realtime.Delivery
	err        error
}

func (p *recordingPublisher) Publish(_ context.Context, d realtime.Delivery) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deliveries = append(p.deliveries, d)
	return p.err
}

func (p *recordingPublisher) all() []realtime.Delivery {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]realtime.Delivery(nil), p.deliveries...)
}

type recordingRetryQueue struct {
	mu    sync.Mutex
	users []primitive.ObjectID
	err   error
}

func (q *recordingRetryQueue) EnqueueIncrement(_ context.Context, userID primitive.ObjectID, _ int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.users = append(q.users, userID)
	return nil
}

type failingNotificationStore struct {
	*memory.NotificationRepository
}

func (failingNotificationStore) AppendNotification(context.Context, *models.Notification) (*models.Notification, error) {
	return nil, errors.New("mailbox unavailable")
}

type fixture struct {
	connections   *memory.ConnectionRepository
	conversations *memory.ConversationRepository
	messages      *memory.MessageRepository
	notifRepo     *memory.NotificationRepository
	users         *memory.UserRepository
	live          *recordingPublisher

	notifications *NotificationService
	ledger        *ConnectionService
	chat          *ChatService
}

func newFixture(t *testing.T, opts ChatOptions) *fixture {
	t.Helper()
	f := &fixture{
		connections:   memory.NewConnectionRepository(),
		conversations: memory.NewConversationRepository(),
		messages:      memory.NewMessageRepository(),
		notifRepo:     memory.NewNotificationRepository(),
		users:         memory.NewUserRepository(),
		live:          &recordingPublisher{},
	}
	f.notifications = NewNotificationService(f.notifRepo)
	f.ledger = NewConnectionService(f.connections, f.users, f.notifications, policy.Default{})
	f.ledger.SetCounterBackoff(0)
	f.chat = NewChatService(f.conversations, f.messages, f.connections, f.users, policy.Default{}, f.live, opts)
	return f
}

func (f *fixture) user(t *testing.T, name string) policy.Principal {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), &models.User{Username: name, Email: name + "@example.com", Role: "user"})
	require.NoError(t, err)
	return policy.Principal{ID: u.ID, Role: u.Role}
}

func (f *fixture) connect(t *testing.T, a, b policy.Principal) {
	t.Helper()
	ctx := context.Background()
	req, err := f.ledger.SendRequest(ctx, a, b.ID.Hex(), "")
	require.NoError(t, err)
	_, err = f.ledger.Accept(ctx, b, req.ID.Hex())
	require.NoError(t, err)
}

func (f *fixture) count(t *testing.T, p policy.Principal) int64 {
	t.Helper()
	u, err := f.users.GetUserByID(context.Background(), p.ID)
	require.NoError(t, err)
	return u.ConnectionCount
}
