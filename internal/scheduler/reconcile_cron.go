package cron

import (
	"context"
	"time"

	"github.com/Dias221467/connections-chat/internal/jobs"
	"github.com/Dias221467/connections-chat/pkg/logger"
	"github.com/robfig/cron/v3"
)

const reconcileTimeout = 5 * time.Minute

// StartReconcileCron schedules the connection counter reconciler. The
// returned scheduler must be stopped on shutdown.
func StartReconcileCron(schedule string, reconciler *jobs.CounterReconciler) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
		defer cancel()

		if _, err := reconciler.Reconcile(ctx); err != nil {
			logger.Log.WithError(err).Error("Connection counter reconciliation failed")
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	logger.Log.WithField("schedule", schedule).Info("Counter reconciliation scheduled")
	return c, nil
}
