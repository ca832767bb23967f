package jobs

import (
	"context"
	"fmt"

	"github.com/Dias221467/connections-chat/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AcceptedCounter reports how many accepted connections each user holds.
type AcceptedCounter interface {
	CountAcceptedByUser(ctx context.Context) (map[primitive.ObjectID]int64, error)
}

type ReconcileReport struct {
	Checked int `json:"checked"`
	Fixed   int `json:"fixed"`
	// Skipped counts mismatched counters that changed while the run was in
	// flight. The next run checks them again.
	Skipped int `json:"skipped"`
}

// CounterReconciler recomputes connection_count from accepted requests and
// repairs stored counters that drifted. Stored counters are read before the
// accepted counts, and each repair applies only if the counter still holds the
// value that was read, so a concurrent accept is never rolled back.
type CounterReconciler struct {
	connections AcceptedCounter
	counters    CounterStore
}

func NewCounterReconciler(connections AcceptedCounter, counters CounterStore) *CounterReconciler {
	return &CounterReconciler{connections: connections, counters: counters}
}

func (r *CounterReconciler) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	stored, err := r.counters.ListConnectionCounts(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list stored counters: %w", err)
	}
	expected, err := r.connections.CountAcceptedByUser(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to count accepted connections: %w", err)
	}

	users := make(map[primitive.ObjectID]struct{}, len(expected)+len(stored))
	for id := range expected {
		users[id] = struct{}{}
	}
	for id := range stored {
		users[id] = struct{}{}
	}

	for id := range users {
		report.Checked++
		want, have := expected[id], stored[id]
		if want == have {
			continue
		}
		entry := logger.Log.WithFields(logrus.Fields{
			"user_id":  id.Hex(),
			"stored":   have,
			"expected": want,
		})
		entry.Warn("Connection count mismatch")

		applied, err := r.counters.CompareAndSetConnectionCount(ctx, id, have, want)
		if err != nil {
			return report, fmt.Errorf("failed to fix counter for %s: %w", id.Hex(), err)
		}
		if !applied {
			entry.Info("Connection count changed during reconciliation, leaving it for the next run")
			report.Skipped++
			continue
		}
		report.Fixed++
	}

	logger.Log.WithFields(logrus.Fields{
		"checked": report.Checked,
		"fixed":   report.Fixed,
		"skipped": report.Skipped,
	}).Info("Connection counters reconciled")
	return report, nil
}
