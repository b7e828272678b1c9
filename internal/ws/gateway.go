package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pizn-01/carmazium-sub000/internal/auth"
	"github.com/pizn-01/carmazium-sub000/internal/presence"
	"github.com/pizn-01/carmazium-sub000/internal/service"
)

// Client→server and server→client event names.
const (
	EventMessageSend  = "message:send"
	EventMessageNew   = "message:new"
	EventRoomJoin     = "room:join"
	EventRoomJoined   = "room:joined"
	EventMessageRead  = "message:read"
	EventMessagesRead = "messages:read"
	EventTypingStart  = "typing:start"
	EventTypingStop   = "typing:stop"
	EventError        = "error"
)

// Envelope frames every websocket message in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type roomPayload struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content,omitempty"`
}

// Options carries the transport tuning knobs.
type Options struct {
	PingInterval   time.Duration
	WriteDeadline  time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	// EventRate/EventBurst throttle inbound events per connection.
	EventRate  float64
	EventBurst int
}

const (
	defaultEventRate  = 25
	defaultEventBurst = 50
)

// Gateway accepts websocket connections, authenticates them, auto-joins each
// connection to its member rooms and relays chat events. A connection
// survives every in-session error; only a failed handshake is fatal.
type Gateway struct {
	hub       *Hub
	registry  *presence.Registry
	rooms     *service.RoomService
	messages  *service.MessageService
	validator *auth.Validator
	opts      Options
	logger    *zap.SugaredLogger
}

func NewGateway(hub *Hub, registry *presence.Registry, rooms *service.RoomService, messages *service.MessageService, validator *auth.Validator, opts Options, logger *zap.SugaredLogger) *Gateway {
	return &Gateway{
		hub:       hub,
		registry:  registry,
		rooms:     rooms,
		messages:  messages,
		validator: validator,
		opts:      opts,
		logger:    logger,
	}
}

// Handle runs one connection from handshake to close.
func (g *Gateway) Handle(conn *websocket.Conn) {
	userID, err := g.authenticate(conn)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, MarshalEvent(EventError, map[string]string{"message": "unauthorized"}))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"), time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	client := NewClient(conn, userID)
	g.registry.Register(userID, client.ID)
	g.hub.AddClient(client)

	// auto-join: room membership is durable, so subscriptions are rebuilt
	// from the directory on every connect
	roomIDs, err := g.rooms.RoomIDsForUser(context.Background(), userID)
	if err != nil {
		g.logger.Errorw("auto-join lookup failed", "userID", userID, "err", err)
	}
	for _, id := range roomIDs {
		g.hub.Subscribe(id, client)
	}
	g.logger.Infow("connection established", "userID", userID, "connID", client.ID, "rooms", len(roomIDs))

	go client.writePump(g.opts.PingInterval, g.opts.WriteDeadline)
	g.readPump(client)

	g.hub.RemoveClient(client)
	g.registry.Unregister(client.ID)
	client.Close()
	g.logger.Infow("connection closed", "userID", userID, "connID", client.ID)
}

// authenticate extracts the bearer credential from the handshake: the token
// query field first, then the Authorization header. Absence or verification
// failure rejects the connection.
func (g *Gateway) authenticate(conn *websocket.Conn) (string, error) {
	token := conn.Query("token")
	if token == "" {
		var err error
		token, err = auth.BearerToken(conn.Headers("Authorization"))
		if err != nil {
			return "", err
		}
	}
	return g.validator.Validate(token)
}

func (g *Gateway) readPump(client *Client) {
	conn := client.conn
	conn.SetReadLimit(g.opts.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(g.opts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(g.opts.PongWait))
	})

	eventRate, eventBurst := g.opts.EventRate, g.opts.EventBurst
	if eventRate <= 0 {
		eventRate = defaultEventRate
	}
	if eventBurst <= 0 {
		eventBurst = defaultEventBurst
	}
	limiter := rate.NewLimiter(rate.Limit(eventRate), eventBurst)

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		if !limiter.Allow() {
			client.Enqueue(MarshalEvent(EventError, map[string]string{"message": "too many events"}))
			continue
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			client.Enqueue(MarshalEvent(EventError, map[string]string{"message": "malformed envelope"}))
			continue
		}
		g.dispatch(client, env)
	}
}

// dispatch routes one inbound event. Handler errors become an error event to
// the originating connection only and never end the session.
func (g *Gateway) dispatch(client *Client, env Envelope) {
	var p roomPayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			client.Enqueue(MarshalEvent(EventError, map[string]string{"message": "malformed payload"}))
			return
		}
	}
	if p.RoomID == "" {
		client.Enqueue(MarshalEvent(EventError, map[string]string{"message": "roomId is required"}))
		return
	}

	ctx := context.Background()
	switch env.Type {
	case EventMessageSend:
		msg, err := g.messages.Send(ctx, p.RoomID, client.UserID, p.Content)
		if err != nil {
			g.fail(client, err)
			return
		}
		g.hub.BroadcastToRoom(p.RoomID, MarshalEvent(EventMessageNew, msg))

	case EventRoomJoin:
		// membership re-validated; a non-member gets an error event, not a
		// disconnect
		if _, err := g.rooms.Room(ctx, p.RoomID, client.UserID); err != nil {
			g.fail(client, err)
			return
		}
		g.hub.Subscribe(p.RoomID, client)
		client.Enqueue(MarshalEvent(EventRoomJoined, map[string]string{"roomId": p.RoomID}))

	case EventMessageRead:
		count, err := g.messages.MarkRead(ctx, p.RoomID, client.UserID)
		if err != nil {
			g.fail(client, err)
			return
		}
		g.hub.BroadcastToRoom(p.RoomID, MarshalEvent(EventMessagesRead, map[string]any{
			"roomId": p.RoomID,
			"readBy": client.UserID,
			"count":  count,
		}))

	case EventTypingStart, EventTypingStop:
		// ephemeral: membership checked, nothing persisted, no delivery
		// guarantee, never echoed to the origin
		if _, err := g.rooms.Room(ctx, p.RoomID, client.UserID); err != nil {
			g.fail(client, err)
			return
		}
		g.hub.BroadcastToRoomExcept(p.RoomID, client, MarshalEvent(env.Type, map[string]string{
			"roomId": p.RoomID,
			"userId": client.UserID,
		}))

	default:
		client.Enqueue(MarshalEvent(EventError, map[string]string{"message": "unknown event type"}))
	}
}

func (g *Gateway) fail(client *Client, err error) {
	g.logger.Debugw("event rejected", "userID", client.UserID, "err", err)
	client.Enqueue(MarshalEvent(EventError, map[string]string{"message": err.Error()}))
}

// MarshalEvent frames an outbound event; shared with the HTTP fallback path.
func MarshalEvent(eventType string, payload any) []byte {
	raw, _ := json.Marshal(payload)
	b, _ := json.Marshal(Envelope{Type: eventType, Payload: raw})
	return b
}
