package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/anjiri1684/tutor_marketplace/handlers"
)

func SupportRoutes(api fiber.Router, h *handlers.Handler) {
	tickets := api.Group("/support/tickets", authed(h)...)
	tickets.Get("", h.ListMyTickets)
	tickets.Post("", h.OpenTicket)
	tickets.Get("/:ticketId", h.GetTicket)
	tickets.Post("/:ticketId/messages", h.ReplyToTicket)
	tickets.Post("/:ticketId/close", h.CloseTicket)

	// The socket authenticates with its first frame.
	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws", websocket.New(h.ServeWs))
}
