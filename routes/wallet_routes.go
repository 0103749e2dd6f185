package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/anjiri1684/tutor_marketplace/handlers"
	"github.com/anjiri1684/tutor_marketplace/middleware"
	"github.com/anjiri1684/tutor_marketplace/models"
)

func WalletRoutes(api fiber.Router, h *handlers.Handler) {
	wallet := api.Group("/wallet", authed(h)...)
	wallet.Get("", h.GetWallet)
	wallet.Get("/statement", h.DownloadStatement)
	wallet.Post("/deposits", h.CreateDepositOrder)
	wallet.Post("/deposits/capture", h.CaptureDepositOrder)

	withdrawals := wallet.Group("/withdrawals", middleware.RoleRequired(models.RoleTutor))
	withdrawals.Get("", h.ListMyWithdrawals)
	withdrawals.Post("", h.RequestWithdrawal)
}
