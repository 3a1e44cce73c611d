package deposit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/chopnow/chop_wallet/internal/ledger"
	"github.com/chopnow/chop_wallet/internal/metrics"
	"github.com/chopnow/chop_wallet/internal/notification"
)

// Outcomes of handling one webhook delivery.
const (
	OutcomeApplied   = "applied"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeSettled   = "settled"
	OutcomeRefunded  = "refunded"
)

// Service consumes verified processor events and turns them into reconciled
// ledger postings.
type Service struct {
	store    ledger.Store
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs the deposit ingestion service.
func NewService(store ledger.Store, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{store: store, notifier: notifier, logger: logger}
}

// HandleEvent routes a parsed, signature-verified webhook event. Duplicate
// deliveries of any event are absorbed and acknowledged, never re-applied.
func (s *Service) HandleEvent(ctx context.Context, evt Event) (string, error) {
	switch evt.Event {
	case EventChargeSuccess:
		return s.credit(ctx, evt.Data)
	case EventTransferSuccess:
		return s.settleWithdrawal(ctx, evt.Data)
	case EventTransferFailed, EventTransferReversed:
		return s.reverseWithdrawal(ctx, evt.Data)
	default:
		return OutcomeIgnored, nil
	}
}

// credit applies a successful inbound charge as a wallet deposit.
func (s *Service) credit(ctx context.Context, data EventData) (string, error) {
	if data.Channel != channelDedicatedAccount {
		// charge arrived through some other route, not ours to reconcile
		return OutcomeIgnored, nil
	}
	if data.Reference == "" || data.Amount <= 0 {
		return "", fmt.Errorf("charge event missing reference or amount")
	}

	w, err := s.store.GetWalletByCustomerCode(ctx, data.Customer.CustomerCode)
	if err != nil {
		return "", fmt.Errorf("resolve wallet for customer %s: %w", data.Customer.CustomerCode, err)
	}

	amount := decimal.New(data.Amount, -2) // minor units to currency
	res, err := s.store.Apply(ctx, ledger.ApplyInput{
		WalletID:          w.ID,
		Type:              ledger.TypeDeposit,
		Amount:            amount,
		ExternalReference: data.Reference,
		Description:       "wallet deposit via dedicated account",
	})
	if errors.Is(err, ledger.ErrDuplicateEvent) {
		metrics.RecordDuplicateAbsorbed()
		return OutcomeDuplicate, nil
	}
	if err != nil {
		return "", err
	}

	metrics.RecordTransaction(ledger.TypeDeposit, res.Entry.Status)
	s.logger.Info("deposit credited",
		"wallet_id", w.ID, "amount", amount.StringFixed(2), "reference", data.Reference)
	s.notify(ctx, notification.Message{
		Kind:        notification.KindDepositCredited,
		Destination: w.UserID,
		Body:        fmt.Sprintf("Your wallet was credited with %s %s", w.Currency, amount.StringFixed(2)),
	})
	return OutcomeApplied, nil
}

// settleWithdrawal finalizes a pending withdrawal once the processor confirms
// the transfer went through.
func (s *Service) settleWithdrawal(ctx context.Context, data EventData) (string, error) {
	entry, err := s.store.ResolveWithdrawal(ctx, data.Reference, ledger.StatusCompleted)
	if errors.Is(err, ledger.ErrEntryNotFound) {
		s.logger.Warn("transfer confirmation for unknown withdrawal", "reference", data.Reference)
		return OutcomeIgnored, nil
	}
	if errors.Is(err, ledger.ErrDuplicateEvent) {
		metrics.RecordDuplicateAbsorbed()
		return OutcomeDuplicate, nil
	}
	if err != nil {
		return "", err
	}

	metrics.RecordTransaction(ledger.TypeWithdrawal, entry.Status)
	s.notify(ctx, s.withdrawalMessage(ctx, entry, notification.KindWithdrawalSettled,
		fmt.Sprintf("Your withdrawal of %s has been paid out", entry.Amount.StringFixed(2))))
	return OutcomeSettled, nil
}

// reverseWithdrawal marks the withdrawal failed and posts the compensating
// refund credit through the reconciler. The refund's idempotency key is
// derived from the transfer reference, so redeliveries (or a crash between
// the two steps) converge on exactly one refund.
func (s *Service) reverseWithdrawal(ctx context.Context, data EventData) (string, error) {
	entry, err := s.store.ResolveWithdrawal(ctx, data.Reference, ledger.StatusFailed)
	if errors.Is(err, ledger.ErrEntryNotFound) {
		s.logger.Warn("transfer failure for unknown withdrawal", "reference", data.Reference)
		return OutcomeIgnored, nil
	}
	if err != nil && !errors.Is(err, ledger.ErrDuplicateEvent) {
		return "", err
	}

	refund, err := s.store.Apply(ctx, ledger.ApplyInput{
		WalletID:          entry.WalletID,
		Type:              ledger.TypeRefund,
		Amount:            entry.Amount,
		ExternalReference: "rfnd-" + data.Reference,
		Description:       "reversal of failed withdrawal " + data.Reference,
		Metadata:          map[string]string{"transfer_code": data.TransferCode, "withdrawal_reference": data.Reference},
	})
	if errors.Is(err, ledger.ErrDuplicateEvent) {
		metrics.RecordDuplicateAbsorbed()
		return OutcomeDuplicate, nil
	}
	if err != nil {
		return "", err
	}

	metrics.RecordTransaction(ledger.TypeRefund, refund.Entry.Status)
	s.logger.Info("withdrawal reversed",
		"wallet_id", entry.WalletID, "amount", entry.Amount.StringFixed(2), "reference", data.Reference)
	s.notify(ctx, s.withdrawalMessage(ctx, entry, notification.KindWithdrawalRefunded,
		fmt.Sprintf("Your withdrawal of %s failed and was refunded", entry.Amount.StringFixed(2))))
	return OutcomeRefunded, nil
}

func (s *Service) withdrawalMessage(ctx context.Context, entry ledger.Entry, kind, body string) notification.Message {
	msg := notification.Message{Kind: kind, Body: body}
	if w, err := s.store.GetWallet(ctx, entry.WalletID); err == nil {
		msg.Destination = w.UserID
	}
	return msg
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification failed", "kind", msg.Kind, "error", err)
	}
}
