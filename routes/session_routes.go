package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/anjiri1684/tutor_marketplace/handlers"
	"github.com/anjiri1684/tutor_marketplace/middleware"
	"github.com/anjiri1684/tutor_marketplace/models"
)

func SessionRoutes(api fiber.Router, h *handlers.Handler) {
	sessions := api.Group("/sessions", authed(h)...)

	sessions.Post("/discount-preview", h.PreviewDiscount)
	sessions.Post("", middleware.RoleRequired(models.RoleStudent), h.CreateSessionRequest)
	sessions.Get("/mine/requests", middleware.RoleRequired(models.RoleStudent), h.ListMyRequests)
	sessions.Get("/open", middleware.RoleRequired(models.RoleTutor), h.ListOpenRequests)
	sessions.Get("/mine/teaching", middleware.RoleRequired(models.RoleTutor), h.ListMySessions)

	sessions.Get("/:requestId", h.GetSessionRequest)
	sessions.Post("/:requestId/accept", middleware.RoleRequired(models.RoleTutor), h.AcceptSessionRequest)
	sessions.Post("/:requestId/cancel", h.CancelSessionRequest)
	sessions.Post("/:requestId/complete", h.CompleteSession)
	sessions.Post("/:requestId/rate", h.RateSession)
	sessions.Get("/:requestId/meeting", h.GetMeetingAccess)
}
