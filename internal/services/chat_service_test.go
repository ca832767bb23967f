package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Dias221467/connections-chat/internal/realtime"
	"github.com/Dias221467/connections-chat/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGetOrCreate_SameConversationEitherOrder(t *testing.T) {
	f := newFixture(t, ChatOptions{})
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	ctx := context.Background()

	ab, err := f.chat.GetOrCreate(ctx, alice, bob.ID.Hex())
	require.NoError(t, err)
	ba, err := f.chat.GetOrCreate(ctx, bob, alice.ID.Hex())
	require.NoError(t, err)

	assert.Equal(t, ab.ID, ba.ID)
	assert.Equal(t, bob.ID, ab.OtherUser.ID)
	assert.Equal(t, alice.ID, ba.OtherUser.ID)
	assert.Nil(t, ab.LastMessage)
	assert.Nil(t, ab.LastMessageTime)
}

func TestGetOrCreate_Validation(t *testing.T) {
	f := newFixture(t, ChatOptions{})
	alice := f.user(t, "alice")
	ctx := context.Background()

	_, err := f.chat.GetOrCreate(ctx, alice, alice.ID.Hex())
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	_, err = f.chat.GetOrCreate(ctx, alice, "zzz")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestGetOrCreate_RequireConnection(t *testing.T) {
	f := newFixture(t, ChatOptions{RequireConnection: true})
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	ctx := context.Background()

	_, err := f.chat.GetOrCreate(ctx, alice, bob.ID.Hex())
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	f.connect(t, alice, bob)

	_, err = f.chat.GetOrCreate(ctx, alice, bob.ID.Hex())
	assert.NoError(t, err)
}

func TestSendMessage(t *testing.T) {
	f := newFixture(t, ChatOptions{})
	alice, bob, mallory := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "mallory")
	ctx := context.Background()

	conv, err := f.chat.GetOrCreate(ctx, alice, bob.ID.Hex())
	require.NoError(t, err)

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err = f.chat.SendMessage(ctx, alice, conv.ID.Hex(), content)
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument, "content %q", content)
	}

	_, err = f.chat.SendMessage(ctx, mallory, conv.ID.Hex(), "hey")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.chat.SendMessage(ctx, alice, primitive.NewObjectID().Hex(), "hey")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	msg, err := f.chat.SendMessage(ctx, alice, conv.ID.Hex(), "  Hi ")
	require.NoError(t, err)
	assert.Equal(t, "Hi", msg.Content)
	assert.Equal(t, alice.ID, msg.Sender.ID)
	assert.Equal(t, "alice", msg.Sender.Username)
	assert.False(t, msg.IsRead)

	stored, err := f.conversations.GetConversationByID(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastMessage)
	assert.Equal(t, "Hi", *stored.LastMessage)

	deliveries := f.live.all()
	require.Len(t, deliveries, 1)
	assert.Equal(t, realtime.EventNewMessage, deliveries[0].Event.Type)
	assert.Equal(t, conv.ID.Hex(), deliveries[0].Event.ConversationID)
	assert.ElementsMatch(t, []string{alice.ID.Hex(), bob.ID.Hex()}, deliveries[0].Recipients)
}

func TestSendMessage_PublishFailureDoesNotFailSend(t *testing.T) {
	f := newFixture(t, ChatOptions{})
	f.live.err = fmt.Errorf("relay down")
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	ctx := context.Background()

	conv, err := f.chat.GetOrCreate(ctx, alice, bob.ID.Hex())
	require.NoError(t, err)

	_, err = f.chat.SendMessage(ctx, alice, conv.ID.Hex(), "still stored")
	require.NoError(t, err)

	msgs, err := f.chat.ListMessages(ctx, bob, conv.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestListMessages_OrderedUnderConcurrentSends(t *testing.T) {
	f := newFixture(t, ChatOptions{})
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	ctx := context.Background()

	conv, err := f.chat.GetOrCreate(ctx, alice, bob.ID.Hex())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender := alice
			if i%2 == 1 {
				sender = bob
			}
			_, err := f.chat.SendMessage(ctx, sender, conv.ID.Hex(), fmt.Sprintf("m%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	msgs, err := f.chat.ListMessages(ctx, alice, conv.ID.Hex())
	require.NoError(t, err)
	require.Len(t, msgs, 20)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt), "messages out of order at %d", i)
	}

	stored, err := f.conversations.GetConversationByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 20, stored.LastMessageSeq)
}

func TestListMessages_Forbidden(t *testing.T) {
	f := newFixture(t, ChatOptions{})
	alice, bob, mallory := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "mallory")
	ctx := context.Background()

	conv, err := f.chat.GetOrCreate(ctx, alice, bob.ID.Hex())
	require.NoError(t, err)

	_, err = f.chat.ListMessages(ctx, mallory, conv.ID.Hex())
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = f.chat.MarkRead(ctx, mallory, conv.ID.Hex())
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = f.chat.CanSubscribe(ctx, mallory, conv.ID.Hex())
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	room, err := f.chat.CanSubscribe(ctx, bob, strings.ToUpper(conv.ID.Hex()))
	require.NoError(t, err)
	assert.Equal(t, conv.ID.Hex(), room)
}

func TestMarkRead_OnlyOtherParticipantsMessages(t *testing.T) {
	f := newFixture(t, ChatOptions{})
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	ctx := context.Background()

	conv, err := f.chat.GetOrCreate(ctx, alice, bob.ID.Hex())
	require.NoError(t, err)
	for _, content := range []string{"one", "two", "three"} {
		_, err := f.chat.SendMessage(ctx, alice, conv.ID.Hex(), content)
		require.NoError(t, err)
	}
	_, err = f.chat.SendMessage(ctx, bob, conv.ID.Hex(), "reply")
	require.NoError(t, err)

	n, err := f.chat.MarkRead(ctx, bob, conv.ID.Hex())
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	msgs, err := f.chat.ListMessages(ctx, bob, conv.ID.Hex())
	require.NoError(t, err)
	for _, m := range msgs {
		if m.Sender.ID == alice.ID {
			assert.True(t, m.IsRead)
			assert.NotNil(t, m.ReadAt)
		} else {
			assert.False(t, m.IsRead)
			assert.Nil(t, m.ReadAt)
		}
	}

	n, err = f.chat.MarkRead(ctx, bob, conv.ID.Hex())
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestListForUser_OrderAndUnread(t *testing.T) {
	f := newFixture(t, ChatOptions{})
	alice, bob, carol, dave := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol"), f.user(t, "dave")
	ctx := context.Background()

	withBob, err := f.chat.GetOrCreate(ctx, alice, bob.ID.Hex())
	require.NoError(t, err)
	withCarol, err := f.chat.GetOrCreate(ctx, alice, carol.ID.Hex())
	require.NoError(t, err)
	idle, err := f.chat.GetOrCreate(ctx, dave, alice.ID.Hex())
	require.NoError(t, err)

	_, err = f.chat.SendMessage(ctx, bob, withBob.ID.Hex(), "first")
	require.NoError(t, err)
	_, err = f.chat.SendMessage(ctx, carol, withCarol.ID.Hex(), "second")
	require.NoError(t, err)
	_, err = f.chat.SendMessage(ctx, carol, withCarol.ID.Hex(), "third")
	require.NoError(t, err)

	convs, err := f.chat.ListForUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, convs, 3)

	assert.Equal(t, withCarol.ID, convs[0].ID)
	assert.Equal(t, carol.ID, convs[0].OtherUser.ID)
	assert.EqualValues(t, 2, convs[0].UnreadCount)
	assert.Equal(t, withBob.ID, convs[1].ID)
	assert.EqualValues(t, 1, convs[1].UnreadCount)
	assert.Equal(t, idle.ID, convs[2].ID)
	assert.Equal(t, dave.ID, convs[2].OtherUser.ID)
	assert.Nil(t, convs[2].LastMessage)
}

func TestTyping_PublishesToOthers(t *testing.T) {
	f := newFixture(t, ChatOptions{})
	alice, bob, mallory := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "mallory")
	ctx := context.Background()

	conv, err := f.chat.GetOrCreate(ctx, alice, bob.ID.Hex())
	require.NoError(t, err)

	require.NoError(t, f.chat.Typing(ctx, alice, conv.ID.Hex(), true))
	require.NoError(t, f.chat.Typing(ctx, alice, conv.ID.Hex(), false))
	assert.ErrorIs(t, f.chat.Typing(ctx, mallory, conv.ID.Hex(), true), apperrors.ErrForbidden)

	deliveries := f.live.all()
	require.Len(t, deliveries, 2)
	assert.Equal(t, realtime.EventTyping, deliveries[0].Event.Type)
	assert.Equal(t, realtime.EventStopTyping, deliveries[1].Event.Type)
	assert.Equal(t, alice.ID.Hex(), deliveries[0].Exclude)
}
