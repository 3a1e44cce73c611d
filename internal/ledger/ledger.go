package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds occurs when a debit would take the wallet balance
	// below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateEvent indicates the provided external reference has already
	// been applied and the operation should be treated as idempotent.
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrWalletNotFound indicates no wallet matches the given identifier.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrWalletInactive indicates the wallet exists but is closed to postings.
	ErrWalletInactive = errors.New("wallet inactive")

	// ErrEntryNotFound indicates no ledger entry matches the given reference.
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrWalletExists indicates a wallet already exists for the user.
	ErrWalletExists = errors.New("wallet already exists")
)

// Entry types. Deposits and refunds credit the wallet, withdrawals and
// payments debit it.
const (
	TypeDeposit    = "deposit"
	TypeWithdrawal = "withdrawal"
	TypePayment    = "payment"
	TypeRefund     = "refund"
)

// Entry statuses. Entries are immutable once completed or failed.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Wallet is the per-user balance record. The balance field is mutated only
// through Store.Apply; the account descriptor fields are filled in once by
// provisioning and never touch the balance.
type Wallet struct {
	ID            string
	UserID        string
	Balance       decimal.Decimal
	Currency      string
	AccountNumber string
	BankName      string
	CustomerCode  string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Provisioned reports whether the wallet already carries a receiving-account
// descriptor.
func (w Wallet) Provisioned() bool {
	return w.CustomerCode != "" && w.AccountNumber != ""
}

// Entry is one immutable record of a balance-affecting event.
type Entry struct {
	ID                string
	WalletID          string
	Type              string
	Amount            decimal.Decimal
	BalanceBefore     decimal.Decimal
	BalanceAfter      decimal.Decimal
	Status            string
	Reference         string
	ExternalReference string
	Description       string
	Metadata          map[string]string
	CreatedAt         time.Time
	CompletedAt       *time.Time
}

// Credits reports whether the given entry type increases the balance.
func Credits(entryType string) bool {
	return entryType == TypeDeposit || entryType == TypeRefund
}

// StatusFor returns the initial entry status for a type: withdrawals await
// processor confirmation, everything else settles synchronously.
func StatusFor(entryType string) string {
	if entryType == TypeWithdrawal {
		return StatusPending
	}
	return StatusCompleted
}

// ApplyInput describes one transaction to post against a wallet.
type ApplyInput struct {
	WalletID string
	Type     string
	Amount   decimal.Decimal
	// ExternalReference is the idempotency key for externally-sourced events
	// (processor transaction id, transfer reference). Optional.
	ExternalReference string
	Description       string
	Metadata          map[string]string
}

// ApplyResult captures the outcome of a posting.
type ApplyResult struct {
	Entry   Entry
	Balance decimal.Decimal
}

// AccountDetails is the processor-side receiving account descriptor persisted
// onto the wallet by provisioning.
type AccountDetails struct {
	AccountNumber string
	BankName      string
	CustomerCode  string
}

// Store is the durable wallet ledger. Apply must be atomic: either the entry
// is persisted and the balance updated, or neither is. Concurrent Apply calls
// against the same wallet serialize; different wallets do not block each
// other.
type Store interface {
	CreateWallet(ctx context.Context, wallet Wallet) error
	GetWallet(ctx context.Context, id string) (Wallet, error)
	GetWalletByUser(ctx context.Context, userID string) (Wallet, error)
	GetWalletByCustomerCode(ctx context.Context, code string) (Wallet, error)
	UpdateAccountDetails(ctx context.Context, walletID string, details AccountDetails) error
	ListEntries(ctx context.Context, walletID string, limit, offset int) ([]Entry, error)
	Apply(ctx context.Context, input ApplyInput) (ApplyResult, error)
	ResolveWithdrawal(ctx context.Context, externalRef, outcome string) (Entry, error)
}
