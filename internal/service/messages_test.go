package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pizn-01/carmazium-sub000/internal/apperrors"
)

func TestSend_ContentValidation(t *testing.T) {
	rooms, messages, _ := newRoomFixture(t)
	ctx := context.Background()
	room, err := rooms.FindOrCreate(ctx, "alice", "bob", nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"empty", "", true},
		{"whitespace_only", "   \n\t ", true},
		{"too_long", strings.Repeat("x", 2001), true},
		{"at_limit", strings.Repeat("x", 2000), false},
		{"normal", "hello", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := messages.Send(ctx, room.ID, "alice", tc.content)
			if tc.wantErr {
				require.ErrorIs(t, err, apperrors.ErrValidation)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestSend_TrimsContent(t *testing.T) {
	rooms, messages, _ := newRoomFixture(t)
	ctx := context.Background()
	room, err := rooms.FindOrCreate(ctx, "alice", "bob", nil)
	require.NoError(t, err)

	msg, err := messages.Send(ctx, room.ID, "alice", "  hello there  ")
	require.NoError(t, err)
	require.Equal(t, "hello there", msg.Content)
}

func TestSend_BumpsRoomActivity(t *testing.T) {
	rooms, messages, _ := newRoomFixture(t)
	ctx := context.Background()
	room, err := rooms.FindOrCreate(ctx, "alice", "bob", nil)
	require.NoError(t, err)

	msg, err := messages.Send(ctx, room.ID, "alice", "hello")
	require.NoError(t, err)

	after, err := rooms.Room(ctx, room.ID, "alice")
	require.NoError(t, err)
	require.False(t, after.UpdatedAt.Before(msg.CreatedAt),
		"room updated_at must be >= the message created_at")
}

func TestSend_RejectsNonMember(t *testing.T) {
	rooms, messages, _ := newRoomFixture(t)
	ctx := context.Background()
	room, err := rooms.FindOrCreate(ctx, "alice", "bob", nil)
	require.NoError(t, err)

	_, err = messages.Send(ctx, room.ID, "mallory", "hi")
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, _, err = messages.List(ctx, room.ID, "mallory", 1, 10)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = messages.MarkRead(ctx, room.ID, "mallory")
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestMarkRead_IdempotentScenario(t *testing.T) {
	rooms, messages, _ := newRoomFixture(t)
	ctx := context.Background()
	room, err := rooms.FindOrCreate(ctx, "alice", "bob", nil)
	require.NoError(t, err)

	_, err = messages.Send(ctx, room.ID, "alice", "hello")
	require.NoError(t, err)

	count, err := messages.MarkRead(ctx, room.ID, "bob")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	count, err = messages.MarkRead(ctx, room.ID, "bob")
	require.NoError(t, err)
	require.Equal(t, int64(0), count, "second mark-read must be a no-op")

	total, err := messages.UnreadTotal(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(0), total)
}

func TestMarkRead_DoesNotTouchOwnMessages(t *testing.T) {
	rooms, messages, _ := newRoomFixture(t)
	ctx := context.Background()
	room, err := rooms.FindOrCreate(ctx, "alice", "bob", nil)
	require.NoError(t, err)

	_, err = messages.Send(ctx, room.ID, "alice", "one")
	require.NoError(t, err)
	_, err = messages.Send(ctx, room.ID, "bob", "two")
	require.NoError(t, err)

	// alice reading the room only flips bob's message
	count, err := messages.MarkRead(ctx, room.ID, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	total, err := messages.UnreadTotal(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, int64(1), total, "alice's message is still unread for bob")
}

func TestList_ChronologicalPages(t *testing.T) {
	rooms, messages, _ := newRoomFixture(t)
	ctx := context.Background()
	room, err := rooms.FindOrCreate(ctx, "alice", "bob", nil)
	require.NoError(t, err)

	for _, content := range []string{"m1", "m2", "m3", "m4", "m5"} {
		_, err := messages.Send(ctx, room.ID, "alice", content)
		require.NoError(t, err)
	}

	// page 1 holds the newest window, in chronological order
	page1, total, err := messages.List(ctx, room.ID, "bob", 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(5), total)
	require.Len(t, page1, 2)
	require.Equal(t, "m4", page1[0].Content)
	require.Equal(t, "m5", page1[1].Content)

	page2, _, err := messages.List(ctx, room.ID, "bob", 2, 2)
	require.NoError(t, err)
	require.Equal(t, "m2", page2[0].Content)
	require.Equal(t, "m3", page2[1].Content)

	page3, _, err := messages.List(ctx, room.ID, "bob", 3, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	require.Equal(t, "m1", page3[0].Content)
}

func TestUnreadTotal_AcrossRooms(t *testing.T) {
	rooms, messages, _ := newRoomFixture(t)
	ctx := context.Background()

	withBob, err := rooms.FindOrCreate(ctx, "alice", "bob", nil)
	require.NoError(t, err)
	withCarol, err := rooms.FindOrCreate(ctx, "alice", "carol", nil)
	require.NoError(t, err)

	_, err = messages.Send(ctx, withBob.ID, "bob", "hi")
	require.NoError(t, err)
	_, err = messages.Send(ctx, withCarol.ID, "carol", "hi")
	require.NoError(t, err)
	_, err = messages.Send(ctx, withCarol.ID, "carol", "there")
	require.NoError(t, err)

	total, err := messages.UnreadTotal(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(3), total)

	_, err = messages.MarkRead(ctx, withCarol.ID, "alice")
	require.NoError(t, err)

	total, err = messages.UnreadTotal(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
}
