package handlers

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/anjiri1684/tutor_marketplace/services"
)

func (h *Handler) AdminListUsers(c *fiber.Ctx) error {
	page, size := pageParams(c)
	users, total, err := h.Admin.SearchUsers(c.UserContext(), services.UserFilter{
		Query: c.Query("q"),
		Role:  c.Query("role"),
		Page:  page,
		Size:  size,
	})
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"users": users, "total": total, "page": page})
}

// AdminLookupUser finds a single account by id or email. A miss is not an error.
func (h *Handler) AdminLookupUser(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return fiber.NewError(fiber.StatusBadRequest, "q is required")
	}
	user, err := h.Admin.FindUser(c.UserContext(), q)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

func (h *Handler) AdminSetUserDisabled(disabled bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "userId")
		if err != nil {
			return err
		}
		user, err := h.Admin.SetDisabled(c.UserContext(), id, disabled)
		if err != nil {
			return h.errorResponse(c, err)
		}
		if disabled {
			h.Hub.Disconnect(id)
		}
		return c.JSON(user)
	}
}

type BalanceAdjustment struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"required,max=255"`
}

// AdminAdjustBalance credits or debits a user through the ledger.
func (h *Handler) AdminAdjustBalance(credit bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "userId")
		if err != nil {
			return err
		}
		var req BalanceAdjustment
		if ok, err := parseAndValidate(c, &req); !ok {
			return err
		}
		op := services.Debit(id, req.Amount, req.Description)
		if credit {
			op = services.Credit(id, req.Amount, req.Description)
		}
		receipt, err := h.Ledger.Execute(c.UserContext(), op)
		if err != nil {
			return h.errorResponse(c, err)
		}
		return c.JSON(fiber.Map{"balance": receipt.Balances[id], "transactions": receipt.Transactions})
	}
}

func (h *Handler) AdminUserTransactions(c *fiber.Ctx) error {
	id, err := paramID(c, "userId")
	if err != nil {
		return err
	}
	page, size := pageParams(c)
	txs, total, err := h.Wallet.Transactions(c.UserContext(), id, page, size)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"transactions": txs, "total": total, "page": page})
}

func (h *Handler) AdminListWithdrawals(c *fiber.Ctx) error {
	list, err := h.Withdrawals.List(c.UserContext(), c.Query("status"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(list)
}

type WithdrawalDecision struct {
	AdminNotes string `json:"admin_notes" validate:"max=1000"`
}

func (h *Handler) AdminApproveWithdrawal(c *fiber.Ctx) error {
	id, err := paramID(c, "withdrawalId")
	if err != nil {
		return err
	}
	var req WithdrawalDecision
	if len(c.Body()) > 0 {
		if ok, err := parseAndValidate(c, &req); !ok {
			return err
		}
	}
	w, err := h.Withdrawals.Approve(c.UserContext(), id, req.AdminNotes)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(w)
}

func (h *Handler) AdminRejectWithdrawal(c *fiber.Ctx) error {
	id, err := paramID(c, "withdrawalId")
	if err != nil {
		return err
	}
	var req WithdrawalDecision
	if len(c.Body()) > 0 {
		if ok, err := parseAndValidate(c, &req); !ok {
			return err
		}
	}
	w, err := h.Withdrawals.Reject(c.UserContext(), id, req.AdminNotes)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(w)
}

type DiscountCodeRequest struct {
	Code       string          `json:"code" validate:"required,max=32"`
	Type       string          `json:"type" validate:"required,oneof=fixed percentage"`
	Value      decimal.Decimal `json:"value"`
	UsageLimit int             `json:"usage_limit" validate:"gte=0"`
}

func (h *Handler) AdminCreateDiscount(c *fiber.Ctx) error {
	var req DiscountCodeRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	dc, err := h.Discounts.Create(c.UserContext(), services.NewDiscountCode{
		Code:       req.Code,
		Type:       req.Type,
		Value:      req.Value,
		UsageLimit: req.UsageLimit,
	})
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dc)
}

func (h *Handler) AdminListDiscounts(c *fiber.Ctx) error {
	list, err := h.Discounts.List(c.UserContext())
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(list)
}

func (h *Handler) AdminSetDiscountActive(active bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dc, err := h.Discounts.SetActive(c.UserContext(), c.Params("code"), active)
		if err != nil {
			return h.errorResponse(c, err)
		}
		return c.JSON(dc)
	}
}

func (h *Handler) AdminListTickets(c *fiber.Ctx) error {
	page, size := pageParams(c)
	list, err := h.Support.ListAll(c.UserContext(), c.Query("status"), page, size)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(list)
}

func (h *Handler) AdminDashboard(c *fiber.Ctx) error {
	d, err := h.Admin.Dashboard(c.UserContext())
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(d)
}

// AdminReport returns the ledger for the requested range as CSV.
func (h *Handler) AdminReport(c *fiber.Ctx) error {
	from, to, err := services.StatementRange(c.Query("from"), c.Query("to"), time.Now())
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid date range. Use YYYY-MM-DD.")
	}
	var buf bytes.Buffer
	if err := h.Admin.WriteReport(c.UserContext(), &buf, from, to); err != nil {
		return h.errorResponse(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=\"report_%s.csv\"", from.Format("2006-01-02")))
	return c.Send(buf.Bytes())
}
