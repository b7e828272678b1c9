package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/pizn-01/carmazium-sub000/internal/auth"
	"github.com/pizn-01/carmazium-sub000/internal/handlers"
	"github.com/pizn-01/carmazium-sub000/internal/ws"
)

// Server mounts the REST surface and the websocket endpoint on one fiber app.
type Server struct {
	app *fiber.App
}

func New(gateway *ws.Gateway, chat *handlers.ChatHandler, bids *handlers.BidHandler, validator *auth.Validator) *Server {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// websocket handshake: plain HTTP requests are refused before upgrade
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(gateway.Handle))

	api := app.Group("/api/v1", handlers.JWTAuth(validator))

	chatGroup := api.Group("/chat")
	chatGroup.Get("/rooms", chat.ListRooms)
	chatGroup.Post("/rooms", chat.CreateRoom)
	chatGroup.Get("/rooms/:id", chat.GetRoom)
	chatGroup.Get("/rooms/:id/messages", chat.ListMessages)
	chatGroup.Post("/rooms/:id/messages", chat.SendMessage)
	chatGroup.Patch("/rooms/:id/read", chat.MarkRead)
	chatGroup.Get("/unread", chat.UnreadTotal)

	bidGroup := api.Group("/bids")
	bidGroup.Post("/", bids.PlaceBid)
	bidGroup.Get("/my", bids.MyBids)
	bidGroup.Get("/listing/:listingId", bids.ListingBids)
	bidGroup.Get("/stats", bids.Stats)

	return &Server{app: app}
}

func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
