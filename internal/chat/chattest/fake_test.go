package chattest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tremby/discord-tagbot/internal/chat"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFake_HistoryIsChronological(t *testing.T) {
	f := NewFake()
	f.AddChannel("c1", "tag")

	// Seeded out of order on purpose.
	f.Seed(Msg("c1", "bob", epoch.Add(time.Minute), true))
	f.Seed(Msg("c1", "alice", epoch, true))

	msgs, err := f.ChannelMessages(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "alice", msgs[0].Author.ID)
	assert.Equal(t, "bob", msgs[1].Author.ID)
}

func TestFake_Seed_AssignsID(t *testing.T) {
	f := NewFake()
	msg := f.Seed(Msg("c1", "alice", epoch, true))
	assert.NotEmpty(t, msg.ID)
}

func TestFake_Delete_RemovesFromHistory(t *testing.T) {
	f := NewFake()
	msg := f.Seed(Msg("c1", "alice", epoch, true))

	require.NoError(t, f.Delete(context.Background(), msg.Ref()))

	msgs, err := f.ChannelMessages(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, []chat.MessageRef{msg.Ref()}, f.Deleted())
}

func TestFake_Send_RecordsButStaysOutOfHistory(t *testing.T) {
	f := NewFake()
	f.AddChannel("c1", "tag")

	_, err := f.Send(context.Background(), "c1", "hello")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, f.SentTo("c1"))

	msgs, err := f.ChannelMessages(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestFake_Send_UnknownChannel(t *testing.T) {
	f := NewFake()
	_, err := f.Send(context.Background(), "nope", "hello")
	assert.ErrorIs(t, err, chat.ErrNotFound)
}

func TestFake_Resolvers(t *testing.T) {
	f := NewFake()
	f.AddChannel("c1", "tag")
	f.AddRole("r1", "judge")
	f.AddUser("u1", "alice")
	msg := f.Seed(Msg("c1", "u1", epoch, true))

	ctx := context.Background()

	ch, err := f.ResolveChannel(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "tag", ch.Name)

	role, err := f.ResolveRole(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "judge", role.Name)

	user, err := f.ResolveUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Name)

	ref, err := f.ResolveMessage(ctx, "c1", msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.Ref(), ref)

	_, err = f.ResolveChannel(ctx, "missing")
	assert.ErrorIs(t, err, chat.ErrNotFound)
	_, err = f.ResolveRole(ctx, "missing")
	assert.ErrorIs(t, err, chat.ErrNotFound)
	_, err = f.ResolveUser(ctx, "missing")
	assert.ErrorIs(t, err, chat.ErrNotFound)
	_, err = f.ResolveMessage(ctx, "c1", "missing")
	assert.ErrorIs(t, err, chat.ErrNotFound)
}

func TestMsg_Constructor(t *testing.T) {
	msg := Msg("c1", "alice", epoch, true, "bob")
	assert.Equal(t, "c1", msg.ChannelID)
	assert.Equal(t, "alice", msg.Author.ID)
	require.Len(t, msg.Mentions, 1)
	assert.Equal(t, "bob", msg.Mentions[0].ID)
	assert.True(t, msg.HasImage)
	assert.Equal(t, epoch, msg.CreatedAt)
}
