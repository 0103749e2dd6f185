package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/anjiri1684/tutor_marketplace/middleware"
	"github.com/anjiri1684/tutor_marketplace/services"
)

func (h *Handler) GetWallet(c *fiber.Ctx) error {
	page, size := pageParams(c)
	wallet, err := h.Wallet.Get(c.UserContext(), middleware.Profile(c).ID, page, size)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(wallet)
}

type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) CreateDepositOrder(c *fiber.Ctx) error {
	var req DepositRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	dep, err := h.Wallet.CreateDeposit(c.UserContext(), middleware.Profile(c).ID, req.Amount)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"order_id": dep.ProviderOrderID, "deposit": dep})
}

func (h *Handler) CaptureDepositOrder(c *fiber.Ctx) error {
	var req struct {
		OrderID string `json:"order_id" validate:"required"`
	}
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	user := middleware.Profile(c)
	receipt, err := h.Wallet.CaptureDeposit(c.UserContext(), user.ID, req.OrderID)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"balance": receipt.Balances[user.ID], "transactions": receipt.Transactions})
}

func (h *Handler) DownloadStatement(c *fiber.Ctx) error {
	from, to, err := services.StatementRange(c.Query("from"), c.Query("to"), time.Now())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date range. Use YYYY-MM-DD."})
	}
	user := middleware.Profile(c)
	pdf, err := h.Statements.PDF(c.UserContext(), user, from, to)
	if err != nil {
		return h.errorResponse(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=\"statement_%s.pdf\"", from.Format("2006-01-02")))
	return c.Send(pdf)
}

type WithdrawalRequestBody struct {
	Amount  decimal.Decimal `json:"amount"`
	Details string          `json:"details" validate:"required,max=1000"`
}

func (h *Handler) RequestWithdrawal(c *fiber.Ctx) error {
	var req WithdrawalRequestBody
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	w, err := h.Withdrawals.Request(c.UserContext(), middleware.Profile(c).ID, req.Amount, req.Details)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(w)
}

func (h *Handler) ListMyWithdrawals(c *fiber.Ctx) error {
	list, err := h.Withdrawals.ListMine(c.UserContext(), middleware.Profile(c).ID)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(list)
}
