package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/Dias221467/connections-chat/internal/models"
	"github.com/Dias221467/connections-chat/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestConnectionRepository_ActivePairIsUnique(t *testing.T) {
	repo := repository.NewConnectionRepository(newDB(t))
	ctx := context.Background()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	req, err := repo.CreateRequest(ctx, &models.ConnectionRequest{SenderID: a, ReceiverID: b, Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusPending, req.Status)

	_, err = repo.CreateRequest(ctx, &models.ConnectionRequest{SenderID: b, ReceiverID: a})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	found, err := repo.FindActiveBetween(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, req.ID, found.ID)
}

func TestConnectionRepository_ConcurrentCreates(t *testing.T) {
	repo := repository.NewConnectionRepository(newDB(t))
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	var wg sync.WaitGroup
	results := make([]error, 6)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := a, b
			if i%2 == 1 {
				from, to = b, a
			}
			_, results[i] = repo.CreateRequest(context.Background(), &models.ConnectionRequest{SenderID: from, ReceiverID: to})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, repository.ErrDuplicate)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestConnectionRepository_TransitionStatus(t *testing.T) {
	repo := repository.NewConnectionRepository(newDB(t))
	ctx := context.Background()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	req, err := repo.CreateRequest(ctx, &models.ConnectionRequest{SenderID: a, ReceiverID: b})
	require.NoError(t, err)

	_, err = repo.TransitionStatus(ctx, req.ID, a, models.ConnectionStatusAccepted)
	assert.ErrorIs(t, err, repository.ErrNotFound, "sender cannot accept")

	accepted, err := repo.TransitionStatus(ctx, req.ID, b, models.ConnectionStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusAccepted, accepted.Status)

	_, err = repo.TransitionStatus(ctx, req.ID, b, models.ConnectionStatusAccepted)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	connected, err := repo.AreConnected(ctx, b, a)
	require.NoError(t, err)
	assert.True(t, connected)

	list, err := repo.ListAccepted(ctx, a)
	require.NoError(t, err)
	require.Len(t, list, 1)

	counts, err := repo.CountAcceptedByUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[primitive.ObjectID]int64{a: 1, b: 1}, counts)
}

func TestConnectionRepository_RejectReleasesPair(t *testing.T) {
	repo := repository.NewConnectionRepository(newDB(t))
	ctx := context.Background()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	first, err := repo.CreateRequest(ctx, &models.ConnectionRequest{SenderID: a, ReceiverID: b})
	require.NoError(t, err)
	_, err = repo.TransitionStatus(ctx, first.ID, b, models.ConnectionStatusRejected)
	require.NoError(t, err)

	_, err = repo.FindActiveBetween(ctx, a, b)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	second, err := repo.CreateRequest(ctx, &models.ConnectionRequest{SenderID: b, ReceiverID: a})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	pending, err := repo.ListPendingByReceiver(ctx, a)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	old, err := repo.GetRequestByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusRejected, old.Status)
}
