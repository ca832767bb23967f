package handlers

import (
	"net/http"

	"github.com/Dias221467/connections-chat/internal/services"
	"github.com/gorilla/mux"
)

// ChatHandler exposes the conversation store under /chat.
type ChatHandler struct {
	Service *services.ChatService
}

func NewChatHandler(service *services.ChatService) *ChatHandler {
	return &ChatHandler{Service: service}
}

type sendMessageBody struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

// GetOrCreateHandler handles GET /chat/{otherUserId}.
func (h *ChatHandler) GetOrCreateHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	conversation, err := h.Service.GetOrCreate(r.Context(), caller, mux.Vars(r)["otherUserId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversation)
}

// ListConversationsHandler handles GET /chat.
func (h *ChatHandler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	conversations, err := h.Service.ListForUser(r.Context(), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversations)
}

// ListMessagesHandler handles GET /chat/{conversationId}/messages.
func (h *ChatHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	messages, err := h.Service.ListMessages(r.Context(), caller, mux.Vars(r)["conversationId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// SendMessageHandler handles POST /chat/message.
func (h *ChatHandler) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	var body sendMessageBody
	if !decodeJSON(w, r, &body) {
		return
	}
	message, err := h.Service.SendMessage(r.Context(), caller, body.ConversationID, body.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message)
}

// MarkReadHandler handles PUT /chat/{conversationId}/read.
func (h *ChatHandler) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	updated, err := h.Service.MarkRead(r.Context(), caller, mux.Vars(r)["conversationId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}
