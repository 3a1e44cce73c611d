package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chopnow/chop_wallet/internal/withdrawal"
)

// RegisterWithdrawalRoutes wires bank withdrawal endpoints.
func RegisterWithdrawalRoutes(r fiber.Router, h *withdrawal.Handler, rateLimiter fiber.Handler) {
	r.Post("/wallet/withdraw", rateLimiter, h.Withdraw)
}
