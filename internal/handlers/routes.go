package handlers

import (
	"github.com/Dias221467/connections-chat/pkg/middleware"
	"github.com/gorilla/mux"
)

// Routes groups the handlers mounted by NewRouter.
type Routes struct {
	Connections   *ConnectionHandler
	Chat          *ChatHandler
	Notifications *NotificationHandler
	Users         *UserHandler
	Admin         *AdminHandler
	Live          *LiveHandler
}

// NewRouter mounts every route. All REST routes require a bearer token; the
// websocket authenticates itself from the query string.
func NewRouter(rt Routes, jwtSecret string) *mux.Router {
	router := mux.NewRouter()
	auth := middleware.AuthMiddleware(jwtSecret)

	connectionRoutes := router.PathPrefix("/connections").Subrouter()
	connectionRoutes.Use(auth)
	connectionRoutes.HandleFunc("/send", rt.Connections.SendRequestHandler).Methods("POST")
	connectionRoutes.HandleFunc("/received", rt.Connections.ListReceivedHandler).Methods("GET")
	connectionRoutes.HandleFunc("/sent", rt.Connections.ListSentHandler).Methods("GET")
	connectionRoutes.HandleFunc("/connections", rt.Connections.ListConnectionsHandler).Methods("GET")
	connectionRoutes.HandleFunc("/{id}/accept", rt.Connections.AcceptHandler).Methods("PUT")
	connectionRoutes.HandleFunc("/{id}/reject", rt.Connections.RejectHandler).Methods("PUT")

	chatRoutes := router.PathPrefix("/chat").Subrouter()
	chatRoutes.Use(auth)
	chatRoutes.HandleFunc("", rt.Chat.ListConversationsHandler).Methods("GET")
	chatRoutes.HandleFunc("/message", rt.Chat.SendMessageHandler).Methods("POST")
	chatRoutes.HandleFunc("/{conversationId}/messages", rt.Chat.ListMessagesHandler).Methods("GET")
	chatRoutes.HandleFunc("/{conversationId}/read", rt.Chat.MarkReadHandler).Methods("PUT")
	chatRoutes.HandleFunc("/{otherUserId}", rt.Chat.GetOrCreateHandler).Methods("GET")

	notificationRoutes := router.PathPrefix("/notifications").Subrouter()
	notificationRoutes.Use(auth)
	notificationRoutes.HandleFunc("", rt.Notifications.ListNotificationsHandler).Methods("GET")
	notificationRoutes.HandleFunc("/{ordinal}/read", rt.Notifications.MarkAsReadHandler).Methods("PUT")

	userRoutes := router.PathPrefix("/users").Subrouter()
	userRoutes.Use(auth)
	userRoutes.HandleFunc("/{id}", rt.Users.GetUserHandler).Methods("GET")

	adminRoutes := router.PathPrefix("/admin").Subrouter()
	adminRoutes.Use(auth)
	adminRoutes.HandleFunc("/connections/reconcile", rt.Admin.ReconcileCountersHandler).Methods("POST")

	router.HandleFunc("/ws", rt.Live.ServeWS).Methods("GET")

	router.Use(middleware.LoggingMiddleware)
	return router
}
