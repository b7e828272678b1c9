package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pizn-01/carmazium-sub000/internal/apperrors"
	"github.com/pizn-01/carmazium-sub000/internal/events"
	"github.com/pizn-01/carmazium-sub000/internal/models"
	"github.com/pizn-01/carmazium-sub000/internal/repository"
)

const (
	defaultPageLimit = 30
	maxPageLimit     = 100
)

// MessageService creates, paginates and marks-read messages. Every operation
// passes the room directory's authorization gate before touching messages.
type MessageService struct {
	rooms    *RoomService
	messages repository.MessageRepository
	pub      events.Publisher
	logger   *zap.SugaredLogger
}

func NewMessageService(rooms *RoomService, messages repository.MessageRepository, pub events.Publisher, logger *zap.SugaredLogger) *MessageService {
	return &MessageService{rooms: rooms, messages: messages, pub: pub, logger: logger}
}

// NormalizePage clamps page/limit into sane bounds.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

// List returns one chronological page of the room's messages plus the total.
func (s *MessageService) List(ctx context.Context, roomID, userID string, page, limit int) ([]models.Message, int64, error) {
	if _, err := s.rooms.Room(ctx, roomID, userID); err != nil {
		return nil, 0, err
	}
	page, limit = NormalizePage(page, limit)
	return s.messages.ListPage(ctx, roomID, page, limit)
}

// Send validates, persists and announces a message. The room's updated_at is
// bumped by the repository in the same operation as the insert.
func (s *MessageService) Send(ctx context.Context, roomID, senderID, content string) (*models.Message, error) {
	room, err := s.rooms.Room(ctx, roomID, senderID)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("message content is empty: %w", apperrors.ErrValidation)
	}
	if len([]rune(content)) > models.MaxMessageLength {
		return nil, fmt.Errorf("message content exceeds %d characters: %w", models.MaxMessageLength, apperrors.ErrValidation)
	}

	msg := &models.Message{
		ID:         uuid.New().String(),
		ChatRoomID: room.ID,
		SenderID:   senderID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, err
	}

	if err := s.pub.Publish(ctx, events.TypeMessageSent, map[string]any{
		"messageId":  msg.ID,
		"roomId":     msg.ChatRoomID,
		"senderId":   msg.SenderID,
		"receiverId": room.OtherParticipant(senderID),
		"createdAt":  msg.CreatedAt,
	}); err != nil {
		s.logger.Warnw("publish message event", "messageID", msg.ID, "err", err)
	}
	return msg, nil
}

// MarkRead flips every unread counterpart message in the room and returns
// the number flipped. Calling it again immediately returns zero.
func (s *MessageService) MarkRead(ctx context.Context, roomID, userID string) (int64, error) {
	if _, err := s.rooms.Room(ctx, roomID, userID); err != nil {
		return 0, err
	}
	return s.messages.MarkRead(ctx, roomID, userID)
}

// UnreadTotal is the badge counter: unread messages across all the user's
// rooms, computed as one aggregate.
func (s *MessageService) UnreadTotal(ctx context.Context, userID string) (int64, error) {
	return s.messages.UnreadTotal(ctx, userID)
}
