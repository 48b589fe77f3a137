package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hallwaychat/hallway-server/internal/store"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()

	st, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func saveMessage(t *testing.T, st *SQLiteStore, channelID string, userID int64, text string) *store.Message {
	t.Helper()

	msg := &store.Message{
		ChannelID: channelID,
		UserID:    userID,
		Username:  fmt.Sprintf("user%d", userID),
		Text:      text,
		Reactions: store.Reactions{},
		CreatedAt: time.Now(),
	}
	require.NoError(t, st.SaveMessage(context.Background(), msg))
	return msg
}

func TestUserCRUD(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	user, err := st.CreateUser(ctx, "alice", "hashed-secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotZero(t, user.ID)

	byName, err := st.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)
	assert.Equal(t, "hashed-secret", byName.PasswordHash)

	_, err = st.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.GetUserByID(ctx, 9999)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Usernames are unique.
	_, err = st.CreateUser(ctx, "alice", "other-hash")
	assert.Error(t, err)

	_, err = st.CreateUser(ctx, "bob", "h")
	require.NoError(t, err)
	users, err := st.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestSaveMessageAssignsIncreasingIDs(t *testing.T) {
	st := newStore(t)

	var last int64
	for i := 0; i < 5; i++ {
		msg := saveMessage(t, st, "general", 1, fmt.Sprintf("msg %d", i))
		assert.Greater(t, msg.ID, last)
		last = msg.ID
	}
}

func TestListChannelPagePagination(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	for i := 1; i <= 7; i++ {
		saveMessage(t, st, "general", 1, fmt.Sprintf("msg %d", i))
	}
	saveMessage(t, st, "random", 2, "elsewhere")

	// Page 1 holds the newest 3, oldest first within the page.
	page, err := st.ListChannelPage(ctx, "general", 1, 3)
	require.NoError(t, err)
	require.Len(t, page.Messages, 3)
	assert.True(t, page.HasMore)
	assert.Equal(t, "msg 5", page.Messages[0].Text)
	assert.Equal(t, "msg 7", page.Messages[2].Text)

	page, err = st.ListChannelPage(ctx, "general", 2, 3)
	require.NoError(t, err)
	require.Len(t, page.Messages, 3)
	assert.True(t, page.HasMore)
	assert.Equal(t, "msg 2", page.Messages[0].Text)

	page, err = st.ListChannelPage(ctx, "general", 3, 3)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.False(t, page.HasMore)
	assert.Equal(t, "msg 1", page.Messages[0].Text)

	page, err = st.ListChannelPage(ctx, "general", 4, 3)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	assert.False(t, page.HasMore)

	page, err = st.ListChannelPage(ctx, "empty-channel", 1, 3)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	assert.False(t, page.HasMore)
}

func TestMarkChannelReadAndUnreadCounts(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	saveMessage(t, st, "general", 1, "from alice")
	saveMessage(t, st, "general", 2, "from bob")
	saveMessage(t, st, "general", 2, "more from bob")
	saveMessage(t, st, "random", 2, "bob in random")

	counts, err := st.UnreadCounts(ctx, 1, []string{"general", "random", "tech"})
	require.NoError(t, err)
	// Own messages never count as unread.
	assert.Equal(t, map[string]int{"general": 2, "random": 1, "tech": 0}, counts)

	require.NoError(t, st.MarkChannelRead(ctx, "general", 1))

	counts, err = st.UnreadCounts(ctx, 1, []string{"general", "random"})
	require.NoError(t, err)
	assert.Equal(t, 0, counts["general"])
	assert.Equal(t, 1, counts["random"])

	// The read flag is per-message, not per-reader: reader 1's mark only
	// flipped messages authored by others, so alice's own message is still
	// unread from bob's perspective.
	counts, err = st.UnreadCounts(ctx, 2, []string{"general"})
	require.NoError(t, err)
	assert.Equal(t, 1, counts["general"])

	// Idempotent.
	require.NoError(t, st.MarkChannelRead(ctx, "general", 1))
}

func TestToggleReaction(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	msg := saveMessage(t, st, "general", 1, "react to me")
	alice := store.Reactor{UserID: 1, Username: "alice"}
	bob := store.Reactor{UserID: 2, Username: "bob"}

	updated, err := st.ToggleReaction(ctx, msg.ID, "👍", alice)
	require.NoError(t, err)
	assert.Equal(t, "general", updated.ChannelID)
	require.Len(t, updated.Reactions["👍"], 1)

	updated, err = st.ToggleReaction(ctx, msg.ID, "👍", bob)
	require.NoError(t, err)
	require.Len(t, updated.Reactions["👍"], 2)

	// Toggling again withdraws; the key disappears with its last reactor.
	updated, err = st.ToggleReaction(ctx, msg.ID, "👍", alice)
	require.NoError(t, err)
	require.Len(t, updated.Reactions["👍"], 1)
	assert.Equal(t, "bob", updated.Reactions["👍"][0].Username)

	updated, err = st.ToggleReaction(ctx, msg.ID, "👍", bob)
	require.NoError(t, err)
	assert.NotContains(t, updated.Reactions, "👍")

	// Round-trips through the stored JSON blob.
	persisted, err := st.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Empty(t, persisted.Reactions)

	_, err = st.ToggleReaction(ctx, 9999, "👍", alice)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestToggleReactionConcurrentTogglesAllLand(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	msg := saveMessage(t, st, "general", 1, "popular message")

	const reactors = 8
	errs := make(chan error, reactors)
	for i := 0; i < reactors; i++ {
		go func(i int) {
			_, err := st.ToggleReaction(ctx, msg.ID, "🎉", store.Reactor{
				UserID:   int64(i + 10),
				Username: fmt.Sprintf("user%d", i+10),
			})
			errs <- err
		}(i)
	}
	for i := 0; i < reactors; i++ {
		require.NoError(t, <-errs)
	}

	persisted, err := st.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Len(t, persisted.Reactions["🎉"], reactors)
}

func TestFriendRequestLifecycle(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	alice, err := st.CreateUser(ctx, "alice", "h")
	require.NoError(t, err)
	bob, err := st.CreateUser(ctx, "bob", "h")
	require.NoError(t, err)

	fr, err := st.CreateFriendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, store.FriendStatusPending, fr.Status)

	pending, err := st.GetPendingRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, fr.ID, pending.ID)

	require.NoError(t, st.UpdateFriendStatus(ctx, fr.ID, store.FriendStatusAccepted))

	_, err = st.GetPendingRequest(ctx, alice.ID, bob.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	sent, received, err := st.ListRequestsByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Empty(t, received)
	assert.Equal(t, store.FriendStatusAccepted, sent[0].Status)

	_, received, err = st.ListRequestsByUser(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, received, 1)

	require.NoError(t, st.DeleteFriendRequest(ctx, fr.ID))
	assert.ErrorIs(t, st.DeleteFriendRequest(ctx, fr.ID), store.ErrNotFound)
	assert.ErrorIs(t, st.UpdateFriendStatus(ctx, fr.ID, store.FriendStatusRejected), store.ErrNotFound)
}

func TestGetMessageNotFound(t *testing.T) {
	st := newStore(t)

	_, err := st.GetMessage(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
