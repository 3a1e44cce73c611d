package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/chopnow/chop_wallet/internal/ledger"
	"github.com/chopnow/chop_wallet/internal/metrics"
)

// ErrInvalidRequest indicates a malformed order payment request.
var ErrInvalidRequest = errors.New("invalid payment request")

// Service posts order payments against the wallet ledger.
type Service struct {
	store  ledger.Store
	logger *slog.Logger
}

// NewService constructs a payment service.
func NewService(store ledger.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// PayInput captures the data needed to pay for an order from the wallet.
type PayInput struct {
	UserID  string
	OrderID string
	Amount  decimal.Decimal
}

// PayResult describes the ledger outcome of an order payment.
type PayResult struct {
	Entry   ledger.Entry
	Balance decimal.Decimal
	// Replayed is true when the same order had already been paid and the
	// original result was returned unchanged.
	Replayed bool
}

// Pay debits the user's wallet for an order. The order id keys the
// idempotency guard, so client retries settle on exactly one debit.
func (s *Service) Pay(ctx context.Context, input PayInput) (PayResult, error) {
	if input.OrderID == "" {
		return PayResult{}, fmt.Errorf("%w: order id is required", ErrInvalidRequest)
	}
	if !input.Amount.IsPositive() {
		return PayResult{}, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if !input.Amount.Equal(input.Amount.Truncate(2)) {
		return PayResult{}, fmt.Errorf("%w: amount must have at most two decimal places", ErrInvalidRequest)
	}

	w, err := s.store.GetWalletByUser(ctx, input.UserID)
	if err != nil {
		return PayResult{}, err
	}

	res, err := s.store.Apply(ctx, ledger.ApplyInput{
		WalletID:          w.ID,
		Type:              ledger.TypePayment,
		Amount:            input.Amount,
		ExternalReference: "order-" + input.OrderID,
		Description:       "payment for order " + input.OrderID,
		Metadata:          map[string]string{"order_id": input.OrderID},
	})
	if errors.Is(err, ledger.ErrDuplicateEvent) {
		metrics.RecordDuplicateAbsorbed()
		return PayResult{Entry: res.Entry, Balance: res.Balance, Replayed: true}, nil
	}
	if err != nil {
		return PayResult{}, err
	}

	metrics.RecordTransaction(ledger.TypePayment, res.Entry.Status)
	s.logger.Info("order paid from wallet",
		"wallet_id", w.ID, "order_id", input.OrderID, "amount", input.Amount.StringFixed(2))
	return PayResult{Entry: res.Entry, Balance: res.Balance}, nil
}
