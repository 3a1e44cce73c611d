package withdrawal

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/chopnow/chop_wallet/internal/ledger"
)

// Handler exposes the withdrawal HTTP endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a withdrawal handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type withdrawRequest struct {
	Amount        json.Number `json:"amount"`
	BankCode      string      `json:"bank_code"`
	AccountNumber string      `json:"account_number"`
	AccountName   string      `json:"account_name"`
}

type withdrawResponse struct {
	Success      bool   `json:"success"`
	Reference    string `json:"reference"`
	TransferCode string `json:"transfer_code"`
	Status       string `json:"status"`
	Balance      string `json:"balance"`
}

// Withdraw initiates a payout from the authenticated user's wallet.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "amount must be numeric")
	}

	result, err := h.service.Withdraw(c.UserContext(), Input{
		UserID:        userID,
		Amount:        amount,
		BankCode:      req.BankCode,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRequest):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrWalletNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return err
		}
	}

	return c.Status(http.StatusCreated).JSON(withdrawResponse{
		Success:      true,
		Reference:    result.Reference,
		TransferCode: result.TransferCode,
		Status:       result.Status,
		Balance:      result.Balance.StringFixed(2),
	})
}
