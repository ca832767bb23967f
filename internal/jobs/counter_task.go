package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dias221467/connections-chat/internal/queue"
	"github.com/Dias221467/connections-chat/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IncrementConnectionCountTask replays a connection-count increment that
// failed inline.
const IncrementConnectionCountTask = "connections:increment_count"

const counterTaskMaxRetry = 10

// CounterStore is the slice of the user repository that counter jobs touch.
type CounterStore interface {
	IncrementConnectionCount(ctx context.Context, userID primitive.ObjectID, delta int64) error
	CompareAndSetConnectionCount(ctx context.Context, userID primitive.ObjectID, old, count int64) (bool, error)
	ListConnectionCounts(ctx context.Context) (map[primitive.ObjectID]int64, error)
}

type incrementPayload struct {
	UserID string `json:"user_id"`
	Delta  int64  `json:"delta"`
}

// CounterTaskQueue enqueues counter increments for retry by a worker.
type CounterTaskQueue struct {
	client queue.Client
}

func NewCounterTaskQueue(client queue.Client) *CounterTaskQueue {
	return &CounterTaskQueue{client: client}
}

func (q *CounterTaskQueue) EnqueueIncrement(ctx context.Context, userID primitive.ObjectID, delta int64) error {
	payload, err := json.Marshal(incrementPayload{UserID: userID.Hex(), Delta: delta})
	if err != nil {
		return err
	}
	id, err := q.client.Enqueue(ctx, queue.Task{Type: IncrementConnectionCountTask, Payload: payload}, queue.EnqueueOption{
		MaxRetry: counterTaskMaxRetry,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue counter increment: %w", err)
	}
	logger.Log.WithFields(logrus.Fields{
		"task_id": id,
		"user_id": userID.Hex(),
		"delta":   delta,
	}).Info("Connection count increment queued for retry")
	return nil
}

// RegisterCounterTasks binds the increment handler to the worker server.
func RegisterCounterTasks(srv queue.Server, store CounterStore) {
	srv.Register(IncrementConnectionCountTask, incrementHandler(store))
}

// incrementHandler applies a plain $inc, so a redelivered task counts twice.
// CounterReconciler repairs that drift on its next run.
func incrementHandler(store CounterStore) queue.Handler {
	return func(ctx context.Context, t queue.Task) error {
		var p incrementPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("malformed %s payload: %w", t.Type, err)
		}
		userID, err := primitive.ObjectIDFromHex(p.UserID)
		if err != nil {
			return fmt.Errorf("malformed %s user id: %w", t.Type, err)
		}

		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return store.IncrementConnectionCount(ctx, userID, p.Delta)
	}
}
