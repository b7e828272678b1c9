package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pizn-01/carmazium-sub000/internal/apperrors"
	"github.com/pizn-01/carmazium-sub000/internal/events"
	"github.com/pizn-01/carmazium-sub000/internal/models"
	"github.com/pizn-01/carmazium-sub000/internal/repository"
)

func newRoomFixture(t *testing.T) (*RoomService, *MessageService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	lg := zap.NewNop().Sugar()
	rooms := NewRoomService(store, store, store.Users(), lg)
	messages := NewMessageService(rooms, store, events.NopPublisher{}, lg)
	return rooms, messages, store
}

func TestFindOrCreate_SymmetricPair(t *testing.T) {
	rooms, _, _ := newRoomFixture(t)
	ctx := context.Background()

	first, err := rooms.FindOrCreate(ctx, "alice", "bob", nil)
	require.NoError(t, err)
	require.Equal(t, "alice", first.InitiatorID)

	// the other side opens the "same" conversation
	second, err := rooms.FindOrCreate(ctx, "bob", "alice", nil)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID, "both directions must resolve to one room")

	// repeat from the original side
	third, err := rooms.FindOrCreate(ctx, "alice", "bob", nil)
	require.NoError(t, err)
	require.Equal(t, first.ID, third.ID)
}

func TestFindOrCreate_Validation(t *testing.T) {
	rooms, _, _ := newRoomFixture(t)
	ctx := context.Background()

	_, err := rooms.FindOrCreate(ctx, "alice", "alice", nil)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = rooms.FindOrCreate(ctx, "alice", "", nil)
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRoom_AuthorizationGate(t *testing.T) {
	rooms, _, _ := newRoomFixture(t)
	ctx := context.Background()

	room, err := rooms.FindOrCreate(ctx, "alice", "bob", nil)
	require.NoError(t, err)

	_, err = rooms.Room(ctx, room.ID, "alice")
	require.NoError(t, err)
	_, err = rooms.Room(ctx, room.ID, "bob")
	require.NoError(t, err)

	_, err = rooms.Room(ctx, room.ID, "mallory")
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = rooms.Room(ctx, "missing-room", "alice")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRoomsForUser_OrderingAndAnnotations(t *testing.T) {
	rooms, messages, store := newRoomFixture(t)
	ctx := context.Background()
	store.AddUser(&models.User{ID: "bob", Name: "Bob"})

	withBob, err := rooms.FindOrCreate(ctx, "alice", "bob", nil)
	require.NoError(t, err)
	withCarol, err := rooms.FindOrCreate(ctx, "alice", "carol", nil)
	require.NoError(t, err)

	// activity in the bob room makes it the most recent one
	_, err = messages.Send(ctx, withCarol.ID, "carol", "older")
	require.NoError(t, err)
	_, err = messages.Send(ctx, withBob.ID, "bob", "first")
	require.NoError(t, err)
	_, err = messages.Send(ctx, withBob.ID, "bob", "second")
	require.NoError(t, err)

	views, err := rooms.RoomsForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, views, 2)

	require.Equal(t, withBob.ID, views[0].ID, "most recently active room first")
	require.Equal(t, int64(2), views[0].UnreadCount)
	require.NotNil(t, views[0].LastMessage)
	require.Equal(t, "second", views[0].LastMessage.Content)
	require.NotNil(t, views[0].Participant)
	require.Equal(t, "Bob", views[0].Participant.Name)

	require.Equal(t, withCarol.ID, views[1].ID)
	require.Equal(t, int64(1), views[1].UnreadCount)
	require.Nil(t, views[1].Participant, "carol has no user row yet")
}

func TestRoomIDsForUser(t *testing.T) {
	rooms, _, _ := newRoomFixture(t)
	ctx := context.Background()

	a, err := rooms.FindOrCreate(ctx, "alice", "bob", nil)
	require.NoError(t, err)
	b, err := rooms.FindOrCreate(ctx, "alice", "carol", nil)
	require.NoError(t, err)

	ids, err := rooms.RoomIDsForUser(ctx, "alice")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{a.ID, b.ID}, ids)

	ids, err = rooms.RoomIDsForUser(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, []string{a.ID}, ids)
}
