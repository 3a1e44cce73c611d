package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chopnow/chop_wallet/internal/ledger"
	"github.com/chopnow/chop_wallet/internal/metrics"
)

// ErrProfileNotFound indicates the authenticated user has no usable profile
// to register with the processor.
var ErrProfileNotFound = errors.New("profile not found")

// AccountClient provisions processor-side identities and receiving accounts.
// Satisfied by paystack.Client.
type AccountClient interface {
	CreateCustomer(ctx context.Context, email, firstName, lastName, phone string) (string, error)
	CreateDedicatedAccount(ctx context.Context, customerCode string) (accountNumber, bankName string, err error)
}

// Profile carries the identity fields provisioning forwards to the processor.
type Profile struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// Service exposes wallet reads and receiving-account provisioning. Balance
// mutation is not done here; that is the ledger store's job.
type Service struct {
	store    ledger.Store
	accounts AccountClient
	currency string
}

// NewService builds a wallet service instance.
func NewService(store ledger.Store, accounts AccountClient, currency string) *Service {
	if currency == "" {
		currency = "NGN"
	}
	return &Service{store: store, accounts: accounts, currency: currency}
}

// GetByUser returns the user's wallet.
func (s *Service) GetByUser(ctx context.Context, userID string) (ledger.Wallet, error) {
	return s.store.GetWalletByUser(ctx, userID)
}

// Transactions returns the user's ledger entries ordered by recency.
func (s *Service) Transactions(ctx context.Context, userID string, limit, offset int) ([]ledger.Entry, error) {
	w, err := s.store.GetWalletByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.ListEntries(ctx, w.ID, limit, offset)
}

// EnsureAccount lazily provisions the processor-side receiving account for
// the user's wallet. Idempotent: a wallet that already carries an account
// descriptor is returned unchanged. The wallet row is inserted with a zero
// balance when absent; provisioning never touches the balance or the log.
func (s *Service) EnsureAccount(ctx context.Context, userID string, profile Profile) (ledger.Wallet, error) {
	w, err := s.store.GetWalletByUser(ctx, userID)
	if errors.Is(err, ledger.ErrWalletNotFound) {
		w, err = s.createWallet(ctx, userID)
	}
	if err != nil {
		return ledger.Wallet{}, err
	}
	if w.Provisioned() {
		return w, nil
	}

	if strings.TrimSpace(profile.Email) == "" {
		return ledger.Wallet{}, ErrProfileNotFound
	}

	customerCode, err := s.accounts.CreateCustomer(ctx, profile.Email, profile.FirstName, profile.LastName, profile.Phone)
	metrics.RecordProcessorRequest("create_customer", err)
	if err != nil {
		return ledger.Wallet{}, fmt.Errorf("create processor customer: %w", err)
	}

	accountNumber, bankName, err := s.accounts.CreateDedicatedAccount(ctx, customerCode)
	metrics.RecordProcessorRequest("create_dedicated_account", err)
	if err != nil {
		return ledger.Wallet{}, fmt.Errorf("create receiving account: %w", err)
	}

	details := ledger.AccountDetails{
		AccountNumber: accountNumber,
		BankName:      bankName,
		CustomerCode:  customerCode,
	}
	if err := s.store.UpdateAccountDetails(ctx, w.ID, details); err != nil {
		return ledger.Wallet{}, err
	}

	return s.store.GetWallet(ctx, w.ID)
}

func (s *Service) createWallet(ctx context.Context, userID string) (ledger.Wallet, error) {
	w := ledger.Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		Balance:   decimal.Zero,
		Currency:  s.currency,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	err := s.store.CreateWallet(ctx, w)
	if errors.Is(err, ledger.ErrWalletExists) {
		// lost a provisioning race, the other insert wins
		return s.store.GetWalletByUser(ctx, userID)
	}
	if err != nil {
		return ledger.Wallet{}, err
	}
	return w, nil
}
