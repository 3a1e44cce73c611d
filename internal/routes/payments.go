package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chopnow/chop_wallet/internal/payments"
)

// RegisterPaymentRoutes wires order payment endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler) {
	r.Post("/wallet/pay", h.Pay)
}
