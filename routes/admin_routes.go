package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/anjiri1684/tutor_marketplace/handlers"
	"github.com/anjiri1684/tutor_marketplace/middleware"
)

func AdminRoutes(api fiber.Router, h *handlers.Handler) {
	admin := api.Group("/admin", append(authed(h), middleware.AdminRequired())...)

	admin.Get("/dashboard", h.AdminDashboard)
	admin.Get("/reports/transactions", h.AdminReport)

	users := admin.Group("/users")
	users.Get("", h.AdminListUsers)
	users.Get("/lookup", h.AdminLookupUser)
	users.Post("/:userId/disable", h.AdminSetUserDisabled(true))
	users.Post("/:userId/enable", h.AdminSetUserDisabled(false))
	users.Post("/:userId/credit", h.AdminAdjustBalance(true))
	users.Post("/:userId/debit", h.AdminAdjustBalance(false))
	users.Get("/:userId/transactions", h.AdminUserTransactions)

	withdrawals := admin.Group("/withdrawals")
	withdrawals.Get("", h.AdminListWithdrawals)
	withdrawals.Post("/:withdrawalId/approve", h.AdminApproveWithdrawal)
	withdrawals.Post("/:withdrawalId/reject", h.AdminRejectWithdrawal)

	discounts := admin.Group("/discount-codes")
	discounts.Get("", h.AdminListDiscounts)
	discounts.Post("", h.AdminCreateDiscount)
	discounts.Post("/:code/activate", h.AdminSetDiscountActive(true))
	discounts.Post("/:code/deactivate", h.AdminSetDiscountActive(false))

	tickets := admin.Group("/support/tickets")
	tickets.Get("", h.AdminListTickets)
	tickets.Post("/:ticketId/messages", h.ReplyToTicket)
	tickets.Post("/:ticketId/close", h.CloseTicket)
}
