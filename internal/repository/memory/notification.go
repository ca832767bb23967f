package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dias221467/connections-chat/internal/models"
	"github.com/Dias221467/connections-chat/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationRepository struct {
	mu      sync.Mutex
	entries map[primitive.ObjectID][]*models.Notification
	seq     map[primitive.ObjectID]int64
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{
		entries: make(map[primitive.ObjectID][]*models.Notification),
		seq:     make(map[primitive.ObjectID]int64),
	}
}

func (r *NotificationRepository) AppendNotification(_ context.Context, notif *models.Notification) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq[notif.OwnerID]++
	notif.ID = primitive.NewObjectID()
	notif.Ordinal = r.seq[notif.OwnerID]
	notif.IsRead = false
	notif.ReadAt = nil
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now().UTC()
	}

	stored := *notif
	r.entries[notif.OwnerID] = append(r.entries[notif.OwnerID], &stored)
	return notif, nil
}

func (r *NotificationRepository) ListNotifications(_ context.Context, ownerID primitive.ObjectID, page models.Page) ([]models.Notification, error) {
	page = page.Normalize()

	r.mu.Lock()
	out := []models.Notification{}
	for _, n := range r.entries[ownerID] {
		if page.Before > 0 && n.Ordinal >= page.Before {
			continue
		}
		out = append(out, *n)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal > out[j].Ordinal })
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

func (r *NotificationRepository) MarkNotificationRead(_ context.Context, ownerID primitive.ObjectID, ordinal int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.entries[ownerID] {
		if n.Ordinal == ordinal {
			if !n.IsRead {
				now := time.Now().UTC()
				n.IsRead = true
				n.ReadAt = &now
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *NotificationRepository) CountUnreadNotifications(_ context.Context, ownerID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, entry := range r.entries[ownerID] {
		if !entry.IsRead {
			n++
		}
	}
	return n, nil
}
