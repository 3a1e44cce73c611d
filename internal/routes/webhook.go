package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chopnow/chop_wallet/internal/deposit"
)

// RegisterWebhookRoutes wires processor webhook ingestion. The endpoint is
// public; authenticity is established by signature verification.
func RegisterWebhookRoutes(r fiber.Router, h *deposit.Handler) {
	r.Post("/webhooks/paystack", h.Webhook)
}
