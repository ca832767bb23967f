package services

import (
	"context"
	"strings"

	"github.com/Dias221467/connections-chat/internal/models"
	"github.com/Dias221467/connections-chat/pkg/apperrors"
	"github.com/Dias221467/connections-chat/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationService is the per-principal mailbox. Entries are append-only
// and addressed by (owner, ordinal).
type NotificationService struct {
	repo NotificationStore
}

func NewNotificationService(repo NotificationStore) *NotificationService {
	return &NotificationService{repo: repo}
}

// Append adds an entry to the owner's mailbox. Other collaborators may append
// their own notification types.
func (s *NotificationService) Append(ctx context.Context, ownerID primitive.ObjectID, entry models.Notification) (*models.Notification, error) {
	if ownerID.IsZero() {
		return nil, apperrors.InvalidArg("notification owner is required")
	}
	if strings.TrimSpace(entry.Type) == "" {
		return nil, apperrors.InvalidArg("notification type is required")
	}
	entry.OwnerID = ownerID

	created, err := s.repo.AppendNotification(ctx, &entry)
	if err != nil {
		return nil, storeError(err, "notification owner not found")
	}

	logger.Log.WithFields(logrus.Fields{
		"owner_id": ownerID.Hex(),
		"type":     created.Type,
		"ordinal":  created.Ordinal,
	}).Debug("Notification appended")
	return created, nil
}

// List returns the owner's entries newest first.
func (s *NotificationService) List(ctx context.Context, ownerID primitive.ObjectID, page models.Page) ([]models.Notification, error) {
	notifs, err := s.repo.ListNotifications(ctx, ownerID, page.Normalize())
	if err != nil {
		return nil, storeError(err, "notifications not found")
	}
	return notifs, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, ownerID primitive.ObjectID, ordinal int64) error {
	if ordinal <= 0 {
		return apperrors.InvalidArg("notification id must be positive")
	}
	return storeError(s.repo.MarkNotificationRead(ctx, ownerID, ordinal), "notification not found")
}

func (s *NotificationService) UnreadCount(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	n, err := s.repo.CountUnreadNotifications(ctx, ownerID)
	if err != nil {
		return 0, storeError(err, "notifications not found")
	}
	return n, nil
}

// appendAdvisory appends an entry whose loss must not fail the caller.
func (s *NotificationService) appendAdvisory(ctx context.Context, ownerID primitive.ObjectID, entry models.Notification) {
	if _, err := s.Append(ctx, ownerID, entry); err != nil {
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"owner_id": ownerID.Hex(),
			"type":     entry.Type,
		}).Warn("Failed to append notification")
	}
}
