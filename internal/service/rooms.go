package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pizn-01/carmazium-sub000/internal/apperrors"
	"github.com/pizn-01/carmazium-sub000/internal/models"
	"github.com/pizn-01/carmazium-sub000/internal/repository"
)

// RoomService is the room directory: it resolves or creates the single room
// for an unordered participant pair and gates every room-scoped operation.
type RoomService struct {
	rooms    repository.RoomRepository
	messages repository.MessageRepository
	users    repository.UserRepository
	logger   *zap.SugaredLogger
}

func NewRoomService(rooms repository.RoomRepository, messages repository.MessageRepository, users repository.UserRepository, logger *zap.SugaredLogger) *RoomService {
	return &RoomService{rooms: rooms, messages: messages, users: users, logger: logger}
}

// RoomView is a room annotated for the room-list endpoint.
type RoomView struct {
	models.ChatRoom
	Participant *models.User    `json:"participant,omitempty"`
	UnreadCount int64           `json:"unreadCount"`
	LastMessage *models.Message `json:"lastMessage,omitempty"`
}

// FindOrCreate returns the existing room for the pair regardless of which
// side initiated it, creating one with the caller as initiator otherwise.
func (s *RoomService) FindOrCreate(ctx context.Context, userID, participantID string, listingID *string) (*models.ChatRoom, error) {
	if participantID == "" {
		return nil, fmt.Errorf("participant id required: %w", apperrors.ErrValidation)
	}
	if userID == participantID {
		return nil, fmt.Errorf("cannot open a room with yourself: %w", apperrors.ErrValidation)
	}

	now := time.Now().UTC()
	room := &models.ChatRoom{
		ID:            uuid.New().String(),
		InitiatorID:   userID,
		ParticipantID: participantID,
		ListingID:     listingID,
		PairKey:       models.PairKey(userID, participantID),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	resolved, created, err := s.rooms.FindOrCreate(ctx, room)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Infow("chat room created", "roomID", resolved.ID, "initiator", userID, "participant", participantID)
	}
	return resolved, nil
}

// Room loads a room and authorizes the caller. NotFound covers both absent
// and soft-deleted rooms; Forbidden means the caller is not a participant.
// Every other room-scoped operation goes through here first.
func (s *RoomService) Room(ctx context.Context, roomID, userID string) (*models.ChatRoom, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(userID) {
		return nil, fmt.Errorf("user %s is not a member of room %s: %w", userID, roomID, apperrors.ErrForbidden)
	}
	return room, nil
}

// RoomsForUser returns the user's rooms, most recently active first, each
// annotated with the other participant, its unread count and last message
// preview. A participant missing from the user table leaves the preview nil;
// the account service owns that table and may lag behind.
func (s *RoomService) RoomsForUser(ctx context.Context, userID string) ([]RoomView, error) {
	rooms, err := s.rooms.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]RoomView, 0, len(rooms))
	for _, r := range rooms {
		unread, err := s.messages.UnreadCount(ctx, r.ID, userID)
		if err != nil {
			return nil, err
		}
		last, err := s.messages.LastMessage(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		participant, err := s.users.FindByID(ctx, r.OtherParticipant(userID))
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		views = append(views, RoomView{ChatRoom: r, Participant: participant, UnreadCount: unread, LastMessage: last})
	}
	return views, nil
}

// RoomIDsForUser feeds the gateway's auto-join at connect time.
func (s *RoomService) RoomIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rooms, err := s.rooms.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	return ids, nil
}
