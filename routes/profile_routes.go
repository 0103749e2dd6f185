package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/anjiri1684/tutor_marketplace/handlers"
)

func ProfileRoutes(api fiber.Router, h *handlers.Handler) {
	profile := api.Group("/profile/me", authed(h)...)
	profile.Get("", h.GetProfile)
	profile.Put("", h.UpdateProfile)
	profile.Post("/role", h.ChooseRole)
	profile.Post("/avatar", h.UploadAvatar)
	profile.Get("/referrals", h.GetReferralStats)

	notifications := api.Group("/notifications", authed(h)...)
	notifications.Get("", h.ListNotifications)
	notifications.Post("/read-all", h.MarkAllNotificationsRead)
	notifications.Post("/:notificationId/read", h.MarkNotificationRead)
}
