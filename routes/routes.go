package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/anjiri1684/tutor_marketplace/handlers"
	"github.com/anjiri1684/tutor_marketplace/middleware"
)

// Setup mounts every API route on app.
func Setup(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")

	PublicRoutes(api, h)
	AuthRoutes(api, h)
	ProfileRoutes(api, h)
	UploadRoutes(api, h)
	SessionRoutes(api, h)
	WalletRoutes(api, h)
	SupportRoutes(api, h)
	AdminRoutes(api, h)
}

// authed verifies the bearer token and loads the caller's profile.
func authed(h *handlers.Handler) []fiber.Handler {
	return []fiber.Handler{
		middleware.Protected(h.Config.JWTSecret),
		middleware.LoadProfile(h.DB),
	}
}
