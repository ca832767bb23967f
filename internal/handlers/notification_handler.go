package handlers

import (
	"net/http"
	"strconv"

	"github.com/Dias221467/connections-chat/internal/models"
	"github.com/Dias221467/connections-chat/internal/services"
	"github.com/Dias221467/connections-chat/pkg/apperrors"
	"github.com/gorilla/mux"
)

type NotificationHandler struct {
	Service *services.NotificationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Service: service}
}

type notificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unread_count"`
	NextBefore    int64                 `json:"next_before,omitempty"`
}

// GET /notifications?limit=&before=
func (h *NotificationHandler) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	page, err := parsePage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	notifications, err := h.Service.List(r.Context(), caller.ID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	unread, err := h.Service.UnreadCount(r.Context(), caller.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := notificationPage{Notifications: notifications, UnreadCount: unread}
	if n := len(notifications); n > 0 && n == page.Normalize().Limit {
		resp.NextBefore = notifications[n-1].Ordinal
	}
	writeJSON(w, http.StatusOK, resp)
}

// PUT /notifications/{ordinal}/read
func (h *NotificationHandler) MarkAsReadHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	ordinal, err := strconv.ParseInt(mux.Vars(r)["ordinal"], 10, 64)
	if err != nil {
		writeError(w, r, apperrors.InvalidArg("invalid notification id"))
		return
	}

	if err := h.Service.MarkRead(r.Context(), caller.ID, ordinal); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

func parsePage(r *http.Request) (models.Page, error) {
	var page models.Page
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return page, apperrors.InvalidArg("limit must be a non-negative integer")
		}
		page.Limit = limit
	}
	if v := q.Get("before"); v != "" {
		before, err := strconv.ParseInt(v, 10, 64)
		if err != nil || before < 0 {
			return page, apperrors.InvalidArg("before must be a non-negative integer")
		}
		page.Before = before
	}
	return page, nil
}
