package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/anjiri1684/tutor_marketplace/middleware"
)

// GenerateUploadSignature creates a secure signature for a frontend avatar upload.
func (h *Handler) GenerateUploadSignature(c *fiber.Ctx) error {
	sig, err := h.Avatars.Signature(middleware.Profile(c).ID)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(sig)
}
