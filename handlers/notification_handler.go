package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/anjiri1684/tutor_marketplace/middleware"
)

func (h *Handler) ListNotifications(c *fiber.Ctx) error {
	list, err := h.Notifications.ListMine(c.UserContext(), middleware.Profile(c).ID, c.QueryBool("unread"), c.QueryInt("limit", 50))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(list)
}

func (h *Handler) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := paramID(c, "notificationId")
	if err != nil {
		return err
	}
	if err := h.Notifications.MarkRead(c.UserContext(), middleware.Profile(c).ID, id); err != nil {
		return h.errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) MarkAllNotificationsRead(c *fiber.Ctx) error {
	if err := h.Notifications.MarkAllRead(c.UserContext(), middleware.Profile(c).ID); err != nil {
		return h.errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
