package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/chopnow/chop_wallet/internal/ledger"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type walletResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Balance       string    `json:"balance"`
	Currency      string    `json:"currency"`
	AccountNumber string    `json:"account_number,omitempty"`
	BankName      string    `json:"bank_name,omitempty"`
	CustomerCode  string    `json:"customer_code,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

type entryResponse struct {
	ID                string            `json:"id"`
	Type              string            `json:"type"`
	Amount            string            `json:"amount"`
	BalanceBefore     string            `json:"balance_before"`
	BalanceAfter      string            `json:"balance_after"`
	Status            string            `json:"status"`
	Reference         string            `json:"reference"`
	ExternalReference string            `json:"external_reference,omitempty"`
	Description       string            `json:"description,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
}

// Me returns the authenticated user's wallet with its current balance.
func (h *Handler) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	w, err := h.service.GetByUser(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "wallet": toWalletResponse(w)})
}

// Transactions lists the wallet's ledger entries, newest first.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	entries, err := h.service.Transactions(c.UserContext(), userID, limit, offset)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return err
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "transactions": out})
}

// EnsureAccount provisions the processor-side receiving account for the
// authenticated user's wallet.
func (h *Handler) EnsureAccount(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	profile := Profile{
		Email:     localString(c, "user_email"),
		FirstName: localString(c, "user_first_name"),
		LastName:  localString(c, "user_last_name"),
		Phone:     localString(c, "user_phone"),
	}

	w, err := h.service.EnsureAccount(c.UserContext(), userID, profile)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return fiber.NewError(http.StatusNotFound, "profile not found")
		}
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "wallet": toWalletResponse(w)})
}

func localString(c *fiber.Ctx, key string) string {
	v, _ := c.Locals(key).(string)
	return v
}

func toWalletResponse(w ledger.Wallet) walletResponse {
	return walletResponse{
		ID:            w.ID,
		UserID:        w.UserID,
		Balance:       w.Balance.StringFixed(2),
		Currency:      w.Currency,
		AccountNumber: w.AccountNumber,
		BankName:      w.BankName,
		CustomerCode:  w.CustomerCode,
		IsActive:      w.IsActive,
		CreatedAt:     w.CreatedAt,
	}
}

func toEntryResponse(e ledger.Entry) entryResponse {
	return entryResponse{
		ID:                e.ID,
		Type:              e.Type,
		Amount:            e.Amount.StringFixed(2),
		BalanceBefore:     e.BalanceBefore.StringFixed(2),
		BalanceAfter:      e.BalanceAfter.StringFixed(2),
		Status:            e.Status,
		Reference:         e.Reference,
		ExternalReference: e.ExternalReference,
		Description:       e.Description,
		Metadata:          e.Metadata,
		CreatedAt:         e.CreatedAt,
		CompletedAt:       e.CompletedAt,
	}
}
