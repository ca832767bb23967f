package handlers

import (
	"net/http"

	"github.com/Dias221467/connections-chat/internal/services"
	"github.com/gorilla/mux"
)

// ConnectionHandler exposes the connection ledger under /connections.
type ConnectionHandler struct {
	Service *services.ConnectionService
}

func NewConnectionHandler(service *services.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{Service: service}
}

type sendRequestBody struct {
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
}

// SendRequestHandler handles POST /connections/send.
func (h *ConnectionHandler) SendRequestHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	var body sendRequestBody
	if !decodeJSON(w, r, &body) {
		return
	}

	request, err := h.Service.SendRequest(r.Context(), caller, body.ReceiverID, body.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

// ListReceivedHandler handles GET /connections/received.
func (h *ConnectionHandler) ListReceivedHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	requests, err := h.Service.ListReceived(r.Context(), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// ListSentHandler handles GET /connections/sent.
func (h *ConnectionHandler) ListSentHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	requests, err := h.Service.ListSent(r.Context(), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// AcceptHandler handles PUT /connections/{id}/accept.
func (h *ConnectionHandler) AcceptHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	request, err := h.Service.Accept(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

// RejectHandler handles PUT /connections/{id}/reject.
func (h *ConnectionHandler) RejectHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	request, err := h.Service.Reject(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

// ListConnectionsHandler handles GET /connections/connections.
func (h *ConnectionHandler) ListConnectionsHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	connections, err := h.Service.ListActiveConnections(r.Context(), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, connections)
}
