package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/anjiri1684/tutor_marketplace/middleware"
	"github.com/anjiri1684/tutor_marketplace/services"
)

type CreateSessionRequest struct {
	Title        string          `json:"title" validate:"required,max=255"`
	Field        string          `json:"field" validate:"required,max=100"`
	Description  string          `json:"description" validate:"max=5000"`
	Price        decimal.Decimal `json:"price"`
	SessionDate  string          `json:"session_date" validate:"required,datetime=2006-01-02"`
	SessionTime  string          `json:"session_time" validate:"required,datetime=15:04"`
	TutorGender  string          `json:"tutor_gender" validate:"omitempty,oneof=any male female"`
	DiscountCode string          `json:"discount_code" validate:"omitempty,max=32"`
}

func (h *Handler) CreateSessionRequest(c *fiber.Ctx) error {
	var req CreateSessionRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}

	created, err := h.Sessions.Create(c.UserContext(), middleware.Profile(c).ID, services.NewSessionRequest{
		Title:        req.Title,
		Field:        req.Field,
		Description:  req.Description,
		Price:        req.Price,
		SessionDate:  req.SessionDate,
		SessionTime:  req.SessionTime,
		TutorGender:  req.TutorGender,
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) PreviewDiscount(c *fiber.Ctx) error {
	var req struct {
		Code  string          `json:"code" validate:"required,max=32"`
		Price decimal.Decimal `json:"price"`
	}
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	price, err := h.Sessions.PreviewDiscount(c.UserContext(), req.Code, req.Price)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"code": services.NormalizeCode(req.Code), "base_price": req.Price, "price": price})
}

func (h *Handler) ListOpenRequests(c *fiber.Ctx) error {
	page, size := pageParams(c)
	list, err := h.Sessions.ListOpen(c.UserContext(), middleware.Profile(c).ID, services.OpenFilter{
		Field: c.Query("field"),
		Page:  page,
		Size:  size,
	})
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(list)
}

func (h *Handler) ListMyRequests(c *fiber.Ctx) error {
	list, err := h.Sessions.ListForStudent(c.UserContext(), middleware.Profile(c).ID, c.Query("status"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(list)
}

func (h *Handler) ListMySessions(c *fiber.Ctx) error {
	list, err := h.Sessions.ListForTutor(c.UserContext(), middleware.Profile(c).ID, c.Query("status"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(list)
}

func (h *Handler) GetSessionRequest(c *fiber.Ctx) error {
	id, err := paramID(c, "requestId")
	if err != nil {
		return err
	}
	req, err := h.Sessions.Get(c.UserContext(), id, middleware.Profile(c))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(req)
}

func (h *Handler) AcceptSessionRequest(c *fiber.Ctx) error {
	id, err := paramID(c, "requestId")
	if err != nil {
		return err
	}
	req, err := h.Sessions.Accept(c.UserContext(), id, middleware.Profile(c).ID)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(req)
}

func (h *Handler) CancelSessionRequest(c *fiber.Ctx) error {
	id, err := paramID(c, "requestId")
	if err != nil {
		return err
	}
	req, err := h.Sessions.Cancel(c.UserContext(), id, middleware.Profile(c).ID)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(req)
}

func (h *Handler) CompleteSession(c *fiber.Ctx) error {
	id, err := paramID(c, "requestId")
	if err != nil {
		return err
	}
	receipt, err := h.Sessions.Complete(c.UserContext(), id, middleware.Profile(c).ID)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"session":      receipt.Session,
		"transactions": receipt.Transactions,
		"balance":      receipt.Balances[middleware.Profile(c).ID],
	})
}

func (h *Handler) RateSession(c *fiber.Ctx) error {
	id, err := paramID(c, "requestId")
	if err != nil {
		return err
	}
	var req struct {
		Stars int `json:"stars" validate:"required"`
	}
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	result, err := h.Sessions.Rate(c.UserContext(), id, middleware.Profile(c).ID, req.Stars)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(result)
}

func (h *Handler) GetMeetingAccess(c *fiber.Ctx) error {
	id, err := paramID(c, "requestId")
	if err != nil {
		return err
	}
	access, err := h.Meetings.Access(c.UserContext(), id, middleware.Profile(c).ID)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(access)
}
