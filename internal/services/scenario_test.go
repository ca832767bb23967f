package services

import (
	"context"
	"testing"

	"github.com/Dias221467/connections-chat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectThenChat(t *testing.T) {
	f := newFixture(t, ChatOptions{})
	a, b := f.user(t, "alice"), f.user(t, "bob")
	ctx := context.Background()

	_, err := f.ledger.SendRequest(ctx, a, b.ID.Hex(), "Hi, let's connect")
	require.NoError(t, err)

	received, err := f.ledger.ListReceived(ctx, b)
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, a.ID, received[0].Sender.ID)
	assert.Equal(t, "Hi, let's connect", received[0].Message)
	assert.Equal(t, models.ConnectionStatusPending, received[0].Status)

	_, err = f.ledger.Accept(ctx, b, received[0].ID.Hex())
	require.NoError(t, err)

	sent, err := f.ledger.ListSent(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, sent)

	conns, err := f.ledger.ListActiveConnections(ctx, a)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, b.ID, conns[0].User.ID)

	conv, err := f.chat.GetOrCreate(ctx, a, b.ID.Hex())
	require.NoError(t, err)
	assert.Nil(t, conv.LastMessage)

	_, err = f.chat.SendMessage(ctx, a, conv.ID.Hex(), "Hello")
	require.NoError(t, err)

	convs, err := f.chat.ListForUser(ctx, b)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, conv.ID, convs[0].ID)
	require.NotNil(t, convs[0].LastMessage)
	assert.Equal(t, "Hello", *convs[0].LastMessage)
	assert.Equal(t, a.ID, convs[0].OtherUser.ID)
}
