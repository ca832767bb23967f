package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Dias221467/connections-chat/internal/models"
	"github.com/Dias221467/connections-chat/internal/policy"
	"github.com/Dias221467/connections-chat/internal/projection"
	"github.com/Dias221467/connections-chat/internal/repository"
	"github.com/Dias221467/connections-chat/pkg/apperrors"
	"github.com/Dias221467/connections-chat/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	counterAttempts       = 3
	defaultCounterBackoff = 50 * time.Millisecond
	maxRequestMessageLen  = 500
)

// ConnectionService is the connection ledger: it owns the request lifecycle
// pending -> accepted | rejected and the connection counters it implies.
type ConnectionService struct {
	connections   ConnectionStore
	users         UserStore
	notifications *NotificationService
	authz         policy.Authorizer
	views         *projection.Builder

	retryQueue     CounterRetryQueue
	counterBackoff time.Duration
}

func NewConnectionService(connections ConnectionStore, users UserStore, notifications *NotificationService, authz policy.Authorizer) *ConnectionService {
	return &ConnectionService{
		connections:    connections,
		users:          users,
		notifications:  notifications,
		authz:          authz,
		views:          projection.NewBuilder(users),
		counterBackoff: defaultCounterBackoff,
	}
}

// SetCounterRetryQueue enables background retry of counter increments that
// still fail after the inline attempts.
func (s *ConnectionService) SetCounterRetryQueue(q CounterRetryQueue) {
	s.retryQueue = q
}

// SetCounterBackoff changes the delay unit between inline increment attempts.
func (s *ConnectionService) SetCounterBackoff(d time.Duration) {
	s.counterBackoff = d
}

// SendRequest creates a pending request from the caller to receiverID.
func (s *ConnectionService) SendRequest(ctx context.Context, caller policy.Principal, receiverHex, message string) (*projection.RequestView, error) {
	receiverID, err := ParseID(receiverHex, "receiverId")
	if err != nil {
		return nil, err
	}
	if receiverID == caller.ID {
		return nil, apperrors.InvalidArg("cannot send a connection request to yourself")
	}
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) > maxRequestMessageLen {
		return nil, apperrors.InvalidArg(fmt.Sprintf("message must be at most %d characters", maxRequestMessageLen))
	}

	existing, err := s.connections.FindActiveBetween(ctx, caller.ID, receiverID)
	switch {
	case err == nil:
		return nil, conflictFor(existing)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, storeError(err, "connection request not found")
	}

	req, err := s.connections.CreateRequest(ctx, &models.ConnectionRequest{
		SenderID:   caller.ID,
		ReceiverID: receiverID,
		Message:    message,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost the race against a concurrent send for the same pair.
		return nil, apperrors.Conflict("connection request already exists")
	}
	if err != nil {
		return nil, storeError(err, "connection request not found")
	}

	logger.Log.WithFields(logrus.Fields{
		"request_id":  req.ID.Hex(),
		"sender_id":   caller.ID.Hex(),
		"receiver_id": receiverID.Hex(),
	}).Info("Connection request sent")

	s.notifications.appendAdvisory(ctx, receiverID, models.Notification{
		Type:    models.NotificationConnectionRequest,
		Title:   "New connection request",
		Message: fmt.Sprintf("%s wants to connect with you", s.displayName(ctx, caller.ID)),
		Related: map[string]string{"request_id": req.ID.Hex(), "user_id": caller.ID.Hex()},
	})

	return s.project(ctx, *req)
}

// ListReceived returns pending requests addressed to the caller, newest first.
func (s *ConnectionService) ListReceived(ctx context.Context, caller policy.Principal) ([]projection.RequestView, error) {
	reqs, err := s.connections.ListPendingByReceiver(ctx, caller.ID)
	if err != nil {
		return nil, storeError(err, "connection requests not found")
	}
	return s.views.Requests(ctx, reqs)
}

// ListSent returns pending requests the caller sent, newest first.
func (s *ConnectionService) ListSent(ctx context.Context, caller policy.Principal) ([]projection.RequestView, error) {
	reqs, err := s.connections.ListPendingBySender(ctx, caller.ID)
	if err != nil {
		return nil, storeError(err, "connection requests not found")
	}
	return s.views.Requests(ctx, reqs)
}

// Accept moves a pending request addressed to the caller to accepted, then
// bumps both connection counters and notifies the sender.
func (s *ConnectionService) Accept(ctx context.Context, caller policy.Principal, requestHex string) (*projection.RequestView, error) {
	req, err := s.respond(ctx, caller, requestHex, models.ConnectionStatusAccepted)
	if err != nil {
		return nil, err
	}

	s.incrementCounter(ctx, req.SenderID)
	s.incrementCounter(ctx, req.ReceiverID)

	s.notifications.appendAdvisory(ctx, req.SenderID, models.Notification{
		Type:    models.NotificationConnectionAccepted,
		Title:   "Connection request accepted",
		Message: fmt.Sprintf("%s accepted your connection request", s.displayName(ctx, caller.ID)),
		Related: map[string]string{"request_id": req.ID.Hex(), "user_id": caller.ID.Hex()},
	})

	return s.project(ctx, *req)
}

// Reject moves a pending request addressed to the caller to rejected. The
// pair may send a fresh request afterwards.
func (s *ConnectionService) Reject(ctx context.Context, caller policy.Principal, requestHex string) (*projection.RequestView, error) {
	req, err := s.respond(ctx, caller, requestHex, models.ConnectionStatusRejected)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, *req)
}

// ListActiveConnections returns the accepted connections of the caller with
// the other principal resolved.
func (s *ConnectionService) ListActiveConnections(ctx context.Context, caller policy.Principal) ([]projection.ConnectionView, error) {
	reqs, err := s.connections.ListAccepted(ctx, caller.ID)
	if err != nil {
		return nil, storeError(err, "connections not found")
	}
	return s.views.Connections(ctx, caller.ID, reqs)
}

// respond performs the pending -> status transition as one conditional update.
// Requests the caller cannot respond to are reported as not found.
func (s *ConnectionService) respond(ctx context.Context, caller policy.Principal, requestHex, status string) (*models.ConnectionRequest, error) {
	requestID, err := primitive.ObjectIDFromHex(requestHex)
	if err != nil {
		return nil, apperrors.NotFound("connection request not found")
	}

	current, err := s.connections.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, storeError(err, "connection request not found")
	}
	if err := s.authz.Authorize(caller, policy.ActionRespondToRequest, policy.Resource{ReceiverID: current.ReceiverID}); err != nil {
		if errors.Is(err, apperrors.ErrForbidden) {
			return nil, apperrors.NotFound("connection request not found")
		}
		return nil, err
	}

	req, err := s.connections.TransitionStatus(ctx, requestID, caller.ID, status)
	if err != nil {
		return nil, storeError(err, "connection request not found")
	}

	logger.Log.WithFields(logrus.Fields{
		"request_id": req.ID.Hex(),
		"status":     status,
	}).Info("Connection request answered")
	return req, nil
}

// incrementCounter applies +1 to a user's connection count. Increments are
// retried inline, then handed to the retry queue; a count that still cannot
// be applied is logged and left to the reconciler.
func (s *ConnectionService) incrementCounter(ctx context.Context, userID primitive.ObjectID) {
	var err error
	for attempt := 1; ; attempt++ {
		if err = s.users.IncrementConnectionCount(ctx, userID, 1); err == nil {
			return
		}
		if attempt == counterAttempts || ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(attempt) * s.counterBackoff):
		}
	}

	entry := logger.Log.WithError(err).WithField("user_id", userID.Hex())
	if s.retryQueue != nil {
		qerr := s.retryQueue.EnqueueIncrement(context.WithoutCancel(ctx), userID, 1)
		if qerr == nil {
			entry.Warn("Connection count increment failed inline, queued for retry")
			return
		}
		entry = entry.WithField("queue_error", qerr.Error())
	}
	entry.Error("Connection count mismatch: increment could not be applied")
}

func (s *ConnectionService) project(ctx context.Context, req models.ConnectionRequest) (*projection.RequestView, error) {
	view, err := s.views.Request(ctx, req)
	if err != nil {
		return nil, apperrors.Internal("failed to load request participants", err)
	}
	return view, nil
}

func (s *ConnectionService) displayName(ctx context.Context, id primitive.ObjectID) string {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil || user.Username == "" {
		return "Someone"
	}
	return user.Username
}

func conflictFor(existing *models.ConnectionRequest) error {
	if existing.Status == models.ConnectionStatusAccepted {
		return apperrors.Conflict("already connected")
	}
	return apperrors.Conflict("a pending connection request already exists")
}
