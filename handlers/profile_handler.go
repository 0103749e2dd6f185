package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/anjiri1684/tutor_marketplace/middleware"
	"github.com/anjiri1684/tutor_marketplace/models"
)

type UpdateProfileRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=3,max=255"`
	Locale   *string `json:"locale" validate:"omitempty,oneof=ar en"`
	Gender   *string `json:"gender" validate:"omitempty,oneof=male female"`
	Bio      *string `json:"bio" validate:"omitempty,max=2000"`
}

func (h *Handler) GetProfile(c *fiber.Ctx) error {
	return c.JSON(middleware.Profile(c))
}

func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	user := middleware.Profile(c)

	var req UpdateProfileRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}

	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.Locale != nil {
		updates["locale"] = *req.Locale
	}
	if req.Gender != nil {
		updates["gender"] = *req.Gender
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if len(updates) > 0 {
		if err := h.DB.WithContext(c.UserContext()).Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return h.errorResponse(c, err)
		}
	}

	var updated models.User
	if err := h.DB.WithContext(c.UserContext()).First(&updated, "id = ?", user.ID).Error; err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(updated)
}

// ChooseRole lets a new account become a student or a tutor, once.
func (h *Handler) ChooseRole(c *fiber.Ctx) error {
	var req struct {
		Role string `json:"role" validate:"required,oneof=student tutor"`
	}
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	user, err := h.Auth.ChooseRole(c.UserContext(), middleware.Profile(c).ID, req.Role)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(user)
}

func (h *Handler) UploadAvatar(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar file is required"})
	}
	if fileHeader.Size > 5<<20 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar must be under 5MB"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot read file"})
	}
	defer file.Close()

	url, err := h.Avatars.Upload(c.UserContext(), middleware.Profile(c).ID, file)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"avatar_url": url})
}

func (h *Handler) GetReferralStats(c *fiber.Ctx) error {
	stats, err := h.Auth.ReferralStats(c.UserContext(), middleware.Profile(c).ID)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(stats)
}
