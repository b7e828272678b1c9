package handlers

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/pizn-01/carmazium-sub000/internal/apperrors"
	"github.com/pizn-01/carmazium-sub000/internal/service"
	"github.com/pizn-01/carmazium-sub000/internal/ws"
)

// ChatHandler serves the room-scoped REST surface. POST messages doubles as
// the retry-capable fallback for the socket send path, so it also fans the
// new message out to live subscribers.
type ChatHandler struct {
	rooms    *service.RoomService
	messages *service.MessageService
	hub      *ws.Hub
	validate *validator.Validate
}

func NewChatHandler(rooms *service.RoomService, messages *service.MessageService, hub *ws.Hub) *ChatHandler {
	return &ChatHandler{rooms: rooms, messages: messages, hub: hub, validate: validator.New()}
}

type createRoomInput struct {
	ParticipantID string  `json:"participantId" validate:"required"`
	ListingID     *string `json:"listingId"`
}

type sendMessageInput struct {
	Content string `json:"content" validate:"required"`
}

// GET /chat/rooms
func (h *ChatHandler) ListRooms(c *fiber.Ctx) error {
	views, err := h.rooms.RoomsForUser(c.Context(), CallerID(c))
	if err != nil {
		return Fail(c, err)
	}
	return OK(c, views)
}

// POST /chat/rooms
func (h *ChatHandler) CreateRoom(c *fiber.Ctx) error {
	var in createRoomInput
	if err := c.BodyParser(&in); err != nil {
		return Fail(c, fmt.Errorf("malformed body: %w", apperrors.ErrValidation))
	}
	if err := h.validate.Struct(in); err != nil {
		return Fail(c, fmt.Errorf("%v: %w", err, apperrors.ErrValidation))
	}
	room, err := h.rooms.FindOrCreate(c.Context(), CallerID(c), in.ParticipantID, in.ListingID)
	if err != nil {
		return Fail(c, err)
	}
	return Created(c, room)
}

// GET /chat/rooms/:id
func (h *ChatHandler) GetRoom(c *fiber.Ctx) error {
	room, err := h.rooms.Room(c.Context(), c.Params("id"), CallerID(c))
	if err != nil {
		return Fail(c, err)
	}
	return OK(c, room)
}

// GET /chat/rooms/:id/messages?page&limit
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	page, limit := service.NormalizePage(c.QueryInt("page", 1), c.QueryInt("limit", 0))
	msgs, total, err := h.messages.List(c.Context(), c.Params("id"), CallerID(c), page, limit)
	if err != nil {
		return Fail(c, err)
	}
	return Page(c, msgs, NewPagination(total, page, limit))
}

// POST /chat/rooms/:id/messages
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var in sendMessageInput
	if err := c.BodyParser(&in); err != nil {
		return Fail(c, fmt.Errorf("malformed body: %w", apperrors.ErrValidation))
	}
	msg, err := h.messages.Send(c.Context(), c.Params("id"), CallerID(c), in.Content)
	if err != nil {
		return Fail(c, err)
	}
	h.hub.BroadcastToRoom(msg.ChatRoomID, ws.MarshalEvent(ws.EventMessageNew, msg))
	return Created(c, msg)
}

// PATCH /chat/rooms/:id/read
func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	roomID := c.Params("id")
	count, err := h.messages.MarkRead(c.Context(), roomID, CallerID(c))
	if err != nil {
		return Fail(c, err)
	}
	if count > 0 {
		h.hub.BroadcastToRoom(roomID, ws.MarshalEvent(ws.EventMessagesRead, fiber.Map{
			"roomId": roomID,
			"readBy": CallerID(c),
			"count":  count,
		}))
	}
	return OK(c, fiber.Map{"markedCount": count})
}

// GET /chat/unread
func (h *ChatHandler) UnreadTotal(c *fiber.Ctx) error {
	total, err := h.messages.UnreadTotal(c.Context(), CallerID(c))
	if err != nil {
		return Fail(c, err)
	}
	return OK(c, fiber.Map{"unreadCount": total})
}
