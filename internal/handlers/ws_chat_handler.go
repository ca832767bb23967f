package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Dias221467/connections-chat/internal/policy"
	"github.com/Dias221467/connections-chat/internal/realtime"
	"github.com/Dias221467/connections-chat/internal/services"
	"github.com/Dias221467/connections-chat/pkg/apperrors"
	jwtutil "github.com/Dias221467/connections-chat/pkg/jwt"
	"github.com/Dias221467/connections-chat/pkg/logger"
	"github.com/Dias221467/connections-chat/pkg/middleware"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	frameJoin        = "join"
	frameLeave       = "leave"
	frameTyping      = "typing"
	frameStopTyping  = "stop-typing"
	frameSendMessage = "send-message"

	maxFrameSize = 64 * 1024
	pongWait     = 60 * time.Second
)

// clientFrame is a frame received from a websocket client.
type clientFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content,omitempty"`
}

// LiveHandler serves the live channel websocket at /ws.
type LiveHandler struct {
	Chat      *services.ChatService
	Hub       *realtime.Hub
	JWTSecret string
	upgrader  websocket.Upgrader
}

// NewLiveHandler builds the websocket handler. An empty allowedOrigins list
// accepts any origin.
func NewLiveHandler(chat *services.ChatService, hub *realtime.Hub, jwtSecret string, allowedOrigins []string) *LiveHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &LiveHandler{
		Chat:      chat,
		Hub:       hub,
		JWTSecret: jwtSecret,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(origins) == 0 {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

// ServeWS authenticates with ?token= (or a bearer header), upgrades and runs
// the read loop until the client goes away.
func (h *LiveHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = middleware.BearerToken(r)
	}
	if token == "" {
		writeError(w, r, apperrors.Unauthorized("missing token"))
		return
	}
	claims, err := jwtutil.ValidateToken(token, h.JWTSecret)
	if err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.CodeUnauthenticated, "invalid token", err))
		return
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		writeError(w, r, apperrors.Unauthorized("token subject is not a valid id"))
		return
	}
	caller := policy.Principal{ID: userID, Role: claims.Role}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	conn := realtime.NewConnection(caller.ID.Hex(), ws)
	h.Hub.Attach(conn)
	log := logger.Log.WithFields(logrus.Fields{"user_id": conn.UserID, "session_id": conn.ID})
	log.Info("WebSocket connected")

	defer func() {
		h.Hub.Detach(conn)
		conn.Close(websocket.CloseNormalClosure, "")
		log.Info("WebSocket disconnected")
	}()

	reply(conn, realtime.Event{Type: realtime.EventConnected, PrincipalID: conn.UserID})

	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("WebSocket read error")
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			replyError(conn, "", apperrors.InvalidArg("malformed frame"))
			continue
		}
		h.handleFrame(r.Context(), caller, conn, frame)
	}
}

func (h *LiveHandler) handleFrame(ctx context.Context, caller policy.Principal, conn *realtime.Connection, frame clientFrame) {
	switch frame.Type {
	case frameJoin:
		room, err := h.Chat.CanSubscribe(ctx, caller, frame.ConversationID)
		if err != nil {
			replyError(conn, frame.ConversationID, err)
			return
		}
		if h.Hub.Subscribe(room, conn) {
			reply(conn, realtime.Event{Type: realtime.EventJoined, ConversationID: room})
		}
	case frameLeave:
		room := frame.ConversationID
		if id, err := primitive.ObjectIDFromHex(room); err == nil {
			room = id.Hex()
		}
		h.Hub.Unsubscribe(room, conn)
		reply(conn, realtime.Event{Type: realtime.EventLeft, ConversationID: room})
	case frameTyping, frameStopTyping:
		if err := h.Chat.Typing(ctx, caller, frame.ConversationID, frame.Type == frameTyping); err != nil {
			replyError(conn, frame.ConversationID, err)
		}
	case frameSendMessage:
		// The stored message comes back to every participant as new-message.
		if _, err := h.Chat.SendMessage(ctx, caller, frame.ConversationID, frame.Content); err != nil {
			replyError(conn, frame.ConversationID, err)
		}
	default:
		replyError(conn, frame.ConversationID, apperrors.InvalidArg("unknown frame type"))
	}
}

func reply(conn *realtime.Connection, ev realtime.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to encode websocket event")
		return
	}
	_ = conn.Send(payload)
}

func replyError(conn *realtime.Connection, conversationID string, err error) {
	msg := "internal server error"
	code := apperrors.CodeOf(err)
	var appErr *apperrors.AppError
	if code != apperrors.CodeInternal && errors.As(err, &appErr) {
		msg = appErr.Message
	}
	reply(conn, realtime.Event{
		Type:           realtime.EventError,
		ConversationID: conversationID,
		Code:           string(code),
		Error:          msg,
	})
}
