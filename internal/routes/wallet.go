package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chopnow/chop_wallet/internal/wallet"
)

// RegisterWalletRoutes wires the wallet read surface and account provisioning.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallet", h.Me)
	r.Get("/wallet/transactions", h.Transactions)
	r.Post("/wallet/account", h.EnsureAccount)
}
