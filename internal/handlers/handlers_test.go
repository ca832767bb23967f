package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dias221467/connections-chat/internal/jobs"
	"github.com/Dias221467/connections-chat/internal/models"
	"github.com/Dias221467/connections-chat/internal/policy"
	"github.com/Dias221467/connections-chat/internal/realtime"
	"github.com/Dias221467/connections-chat/internal/repository/memory"
	"github.com/Dias221467/connections-chat/internal/services"
	"github.com/Dias221467/connections-chat/pkg/jwt"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret"

type testUser struct {
	ID    string
	Token string
}

type apiFixture struct {
	srv   *httptest.Server
	users *memory.UserRepository
	hub   *realtime.Hub
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	connections := memory.NewConnectionRepository()
	conversations := memory.NewConversationRepository()
	messages := memory.NewMessageRepository()
	notifRepo := memory.NewNotificationRepository()
	users := memory.NewUserRepository()
	hub := realtime.NewHub()
	authz := policy.Default{}

	notifications := services.NewNotificationService(notifRepo)
	ledger := services.NewConnectionService(connections, users, notifications, authz)
	chat := services.NewChatService(conversations, messages, connections, users, authz, hub, services.ChatOptions{})

	router := NewRouter(Routes{
		Connections:   NewConnectionHandler(ledger),
		Chat:          NewChatHandler(chat),
		Notifications: NewNotificationHandler(notifications),
		Users:         NewUserHandler(services.NewUserService(users)),
		Admin:         NewAdminHandler(jobs.NewCounterReconciler(connections, users), authz),
		Live:          NewLiveHandler(chat, hub, testSecret, nil),
	}, testSecret)

	f := &apiFixture{srv: httptest.NewServer(router), users: users, hub: hub}
	t.Cleanup(func() {
		hub.Close()
		f.srv.Close()
	})
	return f
}

func (f *apiFixture) user(t *testing.T, name, role string) testUser {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), &models.User{Username: name, Email: name + "@example.com", Role: role})
	require.NoError(t, err)
	token, err := jwt.GenerateToken(u.ID.Hex(), u.Email, role, testSecret, time.Hour)
	require.NoError(t, err)
	return testUser{ID: u.ID.Hex(), Token: token}
}

// do sends a request and decodes a JSON response body into out when non-nil.
func (f *apiFixture) do(t *testing.T, who testUser, method, path string, body interface{}, out interface{}) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	require.NoError(t, err)
	if who.Token != "" {
		req.Header.Set("Authorization", "Bearer "+who.Token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type idBody struct {
	ID string `json:"id"`
}

type errBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
