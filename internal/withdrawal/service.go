package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chopnow/chop_wallet/internal/ledger"
	"github.com/chopnow/chop_wallet/internal/metrics"
	"github.com/chopnow/chop_wallet/internal/notification"
)

// ErrInvalidRequest indicates a malformed or policy-violating withdrawal
// request. Rejected before any external call is made.
var ErrInvalidRequest = errors.New("invalid withdrawal request")

// TransferClient initiates outbound payouts with the processor. Satisfied by
// paystack.Client.
type TransferClient interface {
	CreateTransferRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, error)
	InitiateTransfer(ctx context.Context, reference string, amountMinor int64, recipientCode, reason string) (string, error)
}

// Service orchestrates wallet withdrawals: validate, initiate the external
// transfer, then debit through the reconciler. The debit happens only after
// the processor accepts the transfer; funds are never debited speculatively.
type Service struct {
	store     ledger.Store
	transfers TransferClient
	minimum   decimal.Decimal
	notifier  notification.Notifier
	logger    *slog.Logger
}

// NewService builds the withdrawal orchestrator. minimum is the policy floor
// for a single withdrawal.
func NewService(store ledger.Store, transfers TransferClient, minimum decimal.Decimal, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{store: store, transfers: transfers, minimum: minimum, notifier: notifier, logger: logger}
}

// Input captures a withdrawal request.
type Input struct {
	UserID        string
	Amount        decimal.Decimal
	BankCode      string
	AccountNumber string
	AccountName   string
}

// Result describes an accepted withdrawal. Status is pending until the
// processor confirms the transfer outcome via webhook.
type Result struct {
	Reference    string
	TransferCode string
	Status       string
	Balance      decimal.Decimal
}

// Withdraw validates the request, registers the payout destination, initiates
// the transfer, and records the pending debit.
func (s *Service) Withdraw(ctx context.Context, input Input) (Result, error) {
	if err := s.validate(input); err != nil {
		return Result{}, err
	}

	w, err := s.store.GetWalletByUser(ctx, input.UserID)
	if err != nil {
		return Result{}, err
	}
	if input.Amount.GreaterThan(w.Balance) {
		return Result{}, ledger.ErrInsufficientFunds
	}

	// the internal reference doubles as the processor transfer reference, so
	// transfer webhooks can be matched back to this entry
	reference := "wd-" + uuid.NewString()

	recipientCode, err := s.transfers.CreateTransferRecipient(ctx, input.AccountName, input.AccountNumber, input.BankCode)
	metrics.RecordProcessorRequest("create_transfer_recipient", err)
	if err != nil {
		return Result{}, fmt.Errorf("register payout destination: %w", err)
	}

	amountMinor := input.Amount.Shift(2).IntPart()
	transferCode, err := s.transfers.InitiateTransfer(ctx, reference, amountMinor, recipientCode, "wallet withdrawal")
	metrics.RecordProcessorRequest("initiate_transfer", err)
	if err != nil {
		return Result{}, fmt.Errorf("initiate transfer: %w", err)
	}

	res, err := s.store.Apply(ctx, ledger.ApplyInput{
		WalletID:          w.ID,
		Type:              ledger.TypeWithdrawal,
		Amount:            input.Amount,
		ExternalReference: reference,
		Description:       fmt.Sprintf("withdrawal to %s (%s)", input.AccountNumber, input.BankCode),
		Metadata: map[string]string{
			"bank_code":      input.BankCode,
			"account_number": input.AccountNumber,
			"account_name":   input.AccountName,
			"recipient_code": recipientCode,
			"transfer_code":  transferCode,
		},
	})
	if err != nil {
		// the transfer is already in flight with no matching debit; this needs
		// eyes, the failure webhook for the reference will not find an entry
		s.logger.Error("withdrawal debit failed after transfer acceptance",
			"wallet_id", w.ID, "reference", reference, "transfer_code", transferCode, "error", err)
		return Result{}, err
	}

	metrics.RecordTransaction(ledger.TypeWithdrawal, res.Entry.Status)
	s.logger.Info("withdrawal initiated",
		"wallet_id", w.ID, "amount", input.Amount.StringFixed(2), "reference", reference)
	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindWithdrawalInitiated,
			Destination: input.UserID,
			Body:        fmt.Sprintf("Your withdrawal of %s %s is being processed", w.Currency, input.Amount.StringFixed(2)),
		})
	}

	return Result{
		Reference:    reference,
		TransferCode: transferCode,
		Status:       res.Entry.Status,
		Balance:      res.Balance,
	}, nil
}

func (s *Service) validate(input Input) error {
	if !input.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if !input.Amount.Equal(input.Amount.Truncate(2)) {
		// anything below minor-unit precision cannot be transferred and would
		// leave the ledger debit larger than the payout
		return fmt.Errorf("%w: amount must have at most two decimal places", ErrInvalidRequest)
	}
	if input.Amount.LessThan(s.minimum) {
		return fmt.Errorf("%w: minimum withdrawal is %s", ErrInvalidRequest, s.minimum.StringFixed(2))
	}
	if strings.TrimSpace(input.BankCode) == "" ||
		strings.TrimSpace(input.AccountNumber) == "" ||
		strings.TrimSpace(input.AccountName) == "" {
		return fmt.Errorf("%w: bank_code, account_number and account_name are required", ErrInvalidRequest)
	}
	return nil
}
