package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/anjiri1684/tutor_marketplace/locales"
)

func (h *Handler) GetLocale(c *fiber.Ctx) error {
	b, err := locales.Raw(c.Params("lang"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Language file not found"})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(b)
}
