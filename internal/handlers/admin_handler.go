package handlers

import (
	"context"
	"net/http"

	"github.com/Dias221467/connections-chat/internal/jobs"
	"github.com/Dias221467/connections-chat/internal/policy"
	"github.com/Dias221467/connections-chat/pkg/apperrors"
	"github.com/Dias221467/connections-chat/pkg/logger"
)

type Reconciler interface {
	Reconcile(ctx context.Context) (jobs.ReconcileReport, error)
}

// AdminHandler exposes operator actions under /admin.
type AdminHandler struct {
	Reconciler Reconciler
	Authz      policy.Authorizer
}

func NewAdminHandler(reconciler Reconciler, authz policy.Authorizer) *AdminHandler {
	return &AdminHandler{Reconciler: reconciler, Authz: authz}
}

// ReconcileCountersHandler handles POST /admin/connections/reconcile.
func (h *AdminHandler) ReconcileCountersHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	if err := h.Authz.Authorize(caller, policy.ActionReconcileCounters, policy.Resource{}); err != nil {
		writeError(w, r, err)
		return
	}

	report, err := h.Reconciler.Reconcile(r.Context())
	if err != nil {
		writeError(w, r, apperrors.Internal("reconciliation failed", err))
		return
	}
	logger.Log.WithField("admin_id", caller.ID.Hex()).Info("Manual counter reconciliation completed")
	writeJSON(w, http.StatusOK, report)
}
