package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/anjiri1684/tutor_marketplace/services"
)

type RegisterRequest struct {
	FullName       string `json:"full_name" validate:"required,min=3,max=255"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=6"`
	Locale         string `json:"locale" validate:"omitempty,oneof=ar en"`
	ReferredByCode string `json:"referred_by_code" validate:"omitempty,max=10"`
}

type UserResponse struct {
	ID           string    `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	IsAdmin      bool      `json:"is_admin"`
	Locale       string    `json:"locale"`
	ReferralCode *string   `json:"referral_code"`
	CreatedAt    time.Time `json:"created_at"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) RegisterUser(c *fiber.Ctx) error {
	var req RegisterRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}

	user, err := h.Auth.Register(c.UserContext(), services.Registration{
		FullName:       req.FullName,
		Email:          req.Email,
		Password:       req.Password,
		Locale:         req.Locale,
		ReferredByCode: req.ReferredByCode,
	})
	if err != nil {
		return h.errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(UserResponse{
		ID:           user.ID.String(),
		FullName:     user.FullName,
		Email:        user.Email,
		Role:         user.Role,
		IsAdmin:      user.IsAdmin,
		Locale:       user.Locale,
		ReferralCode: user.ReferralCode,
		CreatedAt:    user.CreatedAt,
	})
}

func (h *Handler) LoginUser(c *fiber.Ctx) error {
	var req LoginRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}

	token, user, err := h.Auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"token": token, "user": user})
}

func (h *Handler) ForgotPassword(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	if err := h.Auth.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"message": "If an account with that email exists, a password reset link has been sent."})
}

func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	var req struct {
		Token       string `json:"token" validate:"required"`
		NewPassword string `json:"new_password" validate:"required,min=6"`
	}
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	if err := h.Auth.ResetPassword(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password has been reset successfully."})
}
