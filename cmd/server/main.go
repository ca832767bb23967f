package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dias221467/connections-chat/internal/config"
	"github.com/Dias221467/connections-chat/internal/database"
	"github.com/Dias221467/connections-chat/internal/handlers"
	"github.com/Dias221467/connections-chat/internal/jobs"
	"github.com/Dias221467/connections-chat/internal/policy"
	"github.com/Dias221467/connections-chat/internal/queue"
	"github.com/Dias221467/connections-chat/internal/realtime"
	"github.com/Dias221467/connections-chat/internal/repository"
	"github.com/Dias221467/connections-chat/internal/repository/memory"
	scheduler "github.com/Dias221467/connections-chat/internal/scheduler"
	"github.com/Dias221467/connections-chat/internal/services"
	"github.com/Dias221467/connections-chat/pkg/logger"
	"github.com/rs/cors"
)

type stores struct {
	connections interface {
		services.ConnectionStore
		jobs.AcceptedCounter
	}
	users interface {
		services.UserStore
		jobs.CounterStore
	}
	conversations services.ConversationStore
	messages      services.MessageStore
	notifications services.NotificationStore
	close         func(context.Context)
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Log.Warn("Using in-memory store, data is lost on restart")
		return &stores{
			connections:   memory.NewConnectionRepository(),
			users:         memory.NewUserRepository(),
			conversations: memory.NewConversationRepository(),
			messages:      memory.NewMessageRepository(),
			notifications: memory.NewNotificationRepository(),
			close:         func(context.Context) {},
		}, nil
	}

	db, err := database.ConnectDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &stores{
		connections:   repository.NewConnectionRepository(db),
		users:         repository.NewUserRepository(db),
		conversations: repository.NewConversationRepository(db),
		messages:      repository.NewMessageRepository(db),
		notifications: repository.NewNotificationRepository(db),
		close: func(ctx context.Context) {
			if err := db.Client().Disconnect(ctx); err != nil {
				logger.Log.WithError(err).Warn("MongoDB disconnect failed")
			}
		},
	}, nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Log.Fatalf("Configuration error: %v", err)
	}

	logger.InitLogger(cfg.LogLevel)
	logger.Log.Info("Logger initialized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("Database connection error: %v", err)
	}

	// --- Live channel ---
	hub := realtime.NewHub()
	var live realtime.Publisher = hub
	if cfg.RedisURL != "" {
		redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Log.Fatalf("Redis connection error: %v", err)
		}
		defer redisClient.Close()

		relay := realtime.NewRedisRelay(redisClient, hub)
		go func() {
			if err := relay.Run(ctx, nil); err != nil {
				logger.Log.WithError(err).Error("Live channel relay stopped")
			}
		}()
		live = relay
	}

	// --- Services ---
	authz := policy.Default{}
	notificationService := services.NewNotificationService(st.notifications)
	connectionService := services.NewConnectionService(st.connections, st.users, notificationService, authz)
	chatService := services.NewChatService(st.conversations, st.messages, st.connections, st.users, authz, live,
		services.ChatOptions{RequireConnection: cfg.RequireConnectionForChat})
	userService := services.NewUserService(st.users)

	// --- Background work ---
	if cfg.RedisURL != "" {
		taskClient, err := queue.NewAsynqClient(cfg.RedisURL)
		if err != nil {
			logger.Log.Fatalf("Task queue error: %v", err)
		}
		defer taskClient.Close()
		connectionService.SetCounterRetryQueue(jobs.NewCounterTaskQueue(taskClient))

		worker, err := queue.NewAsynqServer(cfg.RedisURL, cfg.AsynqConcurrency, cfg.AsynqQueues)
		if err != nil {
			logger.Log.Fatalf("Task worker error: %v", err)
		}
		jobs.RegisterCounterTasks(worker, st.users)
		go func() {
			if err := worker.Run(ctx); err != nil {
				logger.Log.WithError(err).Error("Task worker stopped")
			}
		}()
	}

	reconciler := jobs.NewCounterReconciler(st.connections, st.users)
	reconcileCron, err := scheduler.StartReconcileCron(cfg.ReconcileSchedule, reconciler)
	if err != nil {
		logger.Log.Fatalf("Invalid RECONCILE_SCHEDULE: %v", err)
	}

	// --- HTTP ---
	router := handlers.NewRouter(handlers.Routes{
		Connections:   handlers.NewConnectionHandler(connectionService),
		Chat:          handlers.NewChatHandler(chatService),
		Notifications: handlers.NewNotificationHandler(notificationService),
		Users:         handlers.NewUserHandler(userService),
		Admin:         handlers.NewAdminHandler(reconciler, authz),
		Live:          handlers.NewLiveHandler(chatService, hub, cfg.JWTSecret, cfg.AllowedOrigins),
	}, cfg.JWTSecret)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.WithField("port", cfg.Port).Info("Server running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	<-reconcileCron.Stop().Done()
	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Warn("HTTP shutdown incomplete")
	}
	st.close(shutdownCtx)
}
