package handlers

import (
	stderrors "errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	config "github.com/anjiri1684/tutor_marketplace/configs"
	"github.com/anjiri1684/tutor_marketplace/notifications"
	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/anjiri1684/tutor_marketplace/websocket"
)

// Deps is everything the HTTP layer needs. main builds it once.
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Log    *zap.Logger
	Hub    *websocket.Hub

	Ledger        *services.Ledger
	Auth          *services.AuthService
	Sessions      *services.SessionService
	Discounts     *services.DiscountService
	Withdrawals   *services.WithdrawalService
	Wallet        *services.WalletService
	Statements    *services.StatementService
	Meetings      *services.MeetingService
	Avatars       *services.AvatarService
	Support       *services.SupportService
	Admin         *services.AdminService
	Notifications *notifications.Service
}

type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	return &Handler{Deps: d}
}

// errorResponse maps a service error to its HTTP status. Unexpected errors are
// logged and reported as 500 without detail.
func (h *Handler) errorResponse(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		h.Log.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}
	if status == fiber.StatusForbidden {
		return c.Status(status).JSON(fiber.Map{"error": "access denied"})
	}
	return c.Status(status).JSON(fiber.Map{"error": errors.Cause(err).Error(), "detail": err.Error()})
}

func statusFor(err error) int {
	switch {
	case stderrors.Is(err, services.ErrInsufficientBalance):
		return fiber.StatusPaymentRequired
	case stderrors.Is(err, services.ErrInvalidState), stderrors.Is(err, services.ErrAlreadyRated),
		stderrors.Is(err, services.ErrEmailTaken):
		return fiber.StatusConflict
	case stderrors.Is(err, services.ErrInvalidDiscount):
		return fiber.StatusUnprocessableEntity
	case stderrors.Is(err, services.ErrNotFound), stderrors.Is(err, gorm.ErrRecordNotFound):
		return fiber.StatusNotFound
	case stderrors.Is(err, services.ErrForbidden), stderrors.Is(err, services.ErrAccountDisabled):
		return fiber.StatusForbidden
	case stderrors.Is(err, services.ErrInvalidAmount), stderrors.Is(err, services.ErrInvalidRating),
		stderrors.Is(err, services.ErrInvalidResetToken):
		return fiber.StatusBadRequest
	case stderrors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case stderrors.Is(err, services.ErrNotConfigured):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// paramID parses a uuid route parameter. The returned *fiber.Error is
// rendered by ErrorHandler.
func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

func pageParams(c *fiber.Ctx) (int, int) {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	size, _ := strconv.Atoi(c.Query("page_size", "20"))
	return page, size
}

// ErrorHandler renders errors that escape a handler.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var e *fiber.Error
		if stderrors.As(err, &e) {
			code = e.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("unhandled error", zap.String("method", c.Method()), zap.String("path", c.Path()), zap.Error(err))
			return c.Status(code).JSON(fiber.Map{"error": "internal server error"})
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}
