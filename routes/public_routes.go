package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/anjiri1684/tutor_marketplace/handlers"
)

func PublicRoutes(api fiber.Router, h *handlers.Handler) {
	api.Get("/locales/:lang", h.GetLocale)
}
