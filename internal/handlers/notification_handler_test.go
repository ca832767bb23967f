package handlers

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationRoutes(t *testing.T) {
	f := newAPIFixture(t)
	alice, bob, carol := f.user(t, "alice", "user"), f.user(t, "bob", "user"), f.user(t, "carol", "user")

	require.Equal(t, http.StatusCreated, f.do(t, alice, http.MethodPost, "/connections/send", map[string]string{"receiverId": bob.ID}, nil))
	require.Equal(t, http.StatusCreated, f.do(t, carol, http.MethodPost, "/connections/send", map[string]string{"receiverId": bob.ID}, nil))

	var page struct {
		Notifications []struct {
			ID   int64  `json:"id"`
			Type string `json:"type"`
		} `json:"notifications"`
		UnreadCount int64 `json:"unread_count"`
		NextBefore  int64 `json:"next_before"`
	}
	require.Equal(t, http.StatusOK, f.do(t, bob, http.MethodGet, "/notifications?limit=1", nil, &page))
	require.Len(t, page.Notifications, 1)
	assert.EqualValues(t, 2, page.Notifications[0].ID)
	assert.Equal(t, "connection_request", page.Notifications[0].Type)
	assert.EqualValues(t, 2, page.UnreadCount)
	assert.EqualValues(t, 2, page.NextBefore)

	ordinal := strconv.FormatInt(page.Notifications[0].ID, 10)
	assert.Equal(t, http.StatusOK, f.do(t, bob, http.MethodPut, "/notifications/"+ordinal+"/read", nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, bob, http.MethodPut, "/notifications/99/read", nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, alice, http.MethodPut, "/notifications/"+ordinal+"/read", nil, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, bob, http.MethodPut, "/notifications/abc/read", nil, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, bob, http.MethodGet, "/notifications?limit=x", nil, nil))

	require.Equal(t, http.StatusOK, f.do(t, bob, http.MethodGet, "/notifications?before=2", nil, &page))
	require.Len(t, page.Notifications, 1)
	assert.EqualValues(t, 1, page.Notifications[0].ID)
	assert.EqualValues(t, 1, page.UnreadCount)
}

func TestUserAndAdminRoutes(t *testing.T) {
	f := newAPIFixture(t)
	alice, admin := f.user(t, "alice", "user"), f.user(t, "root", "admin")

	var profile struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	require.Equal(t, http.StatusOK, f.do(t, alice, http.MethodGet, "/users/"+alice.ID, nil, &profile))
	assert.Equal(t, alice.ID, profile.ID)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Equal(t, http.StatusBadRequest, f.do(t, alice, http.MethodGet, "/users/xyz", nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, alice, http.MethodGet, "/users/64b7f0c2a1b2c3d4e5f60718", nil, nil))

	assert.Equal(t, http.StatusForbidden, f.do(t, alice, http.MethodPost, "/admin/connections/reconcile", nil, nil))

	var report struct {
		Checked int `json:"checked"`
		Fixed   int `json:"fixed"`
	}
	require.Equal(t, http.StatusOK, f.do(t, admin, http.MethodPost, "/admin/connections/reconcile", nil, &report))
	assert.Zero(t, report.Fixed)
}
