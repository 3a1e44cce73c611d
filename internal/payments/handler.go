package payments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/chopnow/chop_wallet/internal/ledger"
)

// Handler exposes the order payment endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a payments handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type payRequest struct {
	OrderID string      `json:"order_id"`
	Amount  json.Number `json:"amount"`
}

// Pay debits the authenticated user's wallet for an order. Replays of the
// same order return the original result with 200.
func (h *Handler) Pay(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var req payRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "amount must be numeric")
	}

	result, err := h.service.Pay(c.UserContext(), PayInput{
		UserID:  userID,
		OrderID: req.OrderID,
		Amount:  amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRequest), errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrWalletNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return err
		}
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{
		"success":   true,
		"reference": result.Entry.Reference,
		"status":    result.Entry.Status,
		"balance":   result.Balance.StringFixed(2),
	})
}
