package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/anjiri1684/tutor_marketplace/handlers"
)

func UploadRoutes(api fiber.Router, h *handlers.Handler) {
	uploads := api.Group("/uploads", authed(h)...)
	uploads.Get("/signature", h.GenerateUploadSignature)
}
