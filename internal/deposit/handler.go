package deposit

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/chopnow/chop_wallet/internal/ledger"
	"github.com/chopnow/chop_wallet/internal/metrics"
)

// Handler terminates the processor webhook endpoint. Signature verification
// happens before anything else: a mismatch drops the request with no wallet
// lookup and no side effects.
type Handler struct {
	service *Service
	secret  []byte
	logger  *slog.Logger
}

// NewHandler builds the webhook handler. The secret is the processor key the
// webhook body is signed with.
func NewHandler(service *Service, secret []byte, logger *slog.Logger) *Handler {
	return &Handler{service: service, secret: secret, logger: logger}
}

// Webhook handles POSTed processor notifications. Deliveries are at-least-once
// and may arrive out of order; duplicates are acknowledged without being
// re-applied.
func (h *Handler) Webhook(c *fiber.Ctx) error {
	body := c.Body()
	signature := c.Get(SignatureHeader)

	if !VerifySignature(body, signature, h.secret) {
		metrics.WebhookRejectedTotal.Inc()
		h.logger.Warn("webhook rejected: signature mismatch", "ip", c.IP())
		return fiber.NewError(http.StatusUnauthorized, "invalid signature")
	}

	evt, err := ParseEvent(body)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	outcome, err := h.service.HandleEvent(c.UserContext(), evt)
	if err != nil {
		metrics.RecordWebhookEvent(evt.Event, "error")
		if errors.Is(err, ledger.ErrWalletNotFound) {
			// provisioning gap, report without asking the processor to retry forever
			h.logger.Error("webhook wallet not found", "event", evt.Event, "customer", evt.Data.Customer.CustomerCode)
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return err
	}

	metrics.RecordWebhookEvent(evt.Event, outcome)
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ok", "outcome": outcome})
}
