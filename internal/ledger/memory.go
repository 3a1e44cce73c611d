package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memoryStore struct {
	mu       sync.RWMutex
	wallets  map[string]Wallet
	entries  map[string][]Entry // keyed by wallet id, oldest first
	external map[string]Entry   // keyed by external reference
}

// NewMemory creates a concurrency-safe in-memory ledger store useful for
// unit tests.
func NewMemory() Store {
	return &memoryStore{
		wallets:  make(map[string]Wallet),
		entries:  make(map[string][]Entry),
		external: make(map[string]Entry),
	}
}

func (s *memoryStore) CreateWallet(_ context.Context, w Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.wallets {
		if existing.UserID == w.UserID {
			return ErrWalletExists
		}
	}
	s.wallets[w.ID] = w
	return nil
}

func (s *memoryStore) GetWallet(_ context.Context, id string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[id]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (s *memoryStore) GetWalletByUser(_ context.Context, userID string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.wallets {
		if w.UserID == userID {
			return w, nil
		}
	}
	return Wallet{}, ErrWalletNotFound
}

func (s *memoryStore) GetWalletByCustomerCode(_ context.Context, code string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if code == "" {
		return Wallet{}, ErrWalletNotFound
	}
	for _, w := range s.wallets {
		if w.CustomerCode == code {
			return w, nil
		}
	}
	return Wallet{}, ErrWalletNotFound
}

func (s *memoryStore) UpdateAccountDetails(_ context.Context, walletID string, d AccountDetails) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[walletID]
	if !ok {
		return ErrWalletNotFound
	}
	w.AccountNumber = d.AccountNumber
	w.BankName = d.BankName
	w.CustomerCode = d.CustomerCode
	w.UpdatedAt = time.Now().UTC()
	s.wallets[walletID] = w
	return nil
}

func (s *memoryStore) ListEntries(_ context.Context, walletID string, limit, offset int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.wallets[walletID]; !ok {
		return nil, ErrWalletNotFound
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	log := s.entries[walletID]
	// newest first
	var out []Entry
	for i := len(log) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, log[i])
	}
	return out, nil
}

func (s *memoryStore) Apply(_ context.Context, input ApplyInput) (ApplyResult, error) {
	if !input.Amount.IsPositive() {
		return ApplyResult{}, fmt.Errorf("amount must be positive")
	}
	switch input.Type {
	case TypeDeposit, TypeWithdrawal, TypePayment, TypeRefund:
	default:
		return ApplyResult{}, fmt.Errorf("unknown entry type %q", input.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[input.WalletID]
	if !ok {
		return ApplyResult{}, ErrWalletNotFound
	}
	if !w.IsActive {
		return ApplyResult{}, ErrWalletInactive
	}

	if input.ExternalReference != "" {
		if prior, exists := s.external[input.ExternalReference]; exists {
			return ApplyResult{Entry: prior, Balance: w.Balance}, ErrDuplicateEvent
		}
	}

	balanceAfter := w.Balance.Add(input.Amount)
	if !Credits(input.Type) {
		balanceAfter = w.Balance.Sub(input.Amount)
		if balanceAfter.IsNegative() {
			return ApplyResult{}, ErrInsufficientFunds
		}
	}

	now := time.Now().UTC()
	entry := Entry{
		ID:                uuid.NewString(),
		WalletID:          input.WalletID,
		Type:              input.Type,
		Amount:            input.Amount,
		BalanceBefore:     w.Balance,
		BalanceAfter:      balanceAfter,
		Status:            StatusFor(input.Type),
		Reference:         uuid.NewString(),
		ExternalReference: input.ExternalReference,
		Description:       input.Description,
		Metadata:          input.Metadata,
		CreatedAt:         now,
	}
	if entry.Status == StatusCompleted {
		entry.CompletedAt = &now
	}

	w.Balance = balanceAfter
	w.UpdatedAt = now
	s.wallets[input.WalletID] = w
	s.entries[input.WalletID] = append(s.entries[input.WalletID], entry)
	if entry.ExternalReference != "" {
		s.external[entry.ExternalReference] = entry
	}

	return ApplyResult{Entry: entry, Balance: balanceAfter}, nil
}

func (s *memoryStore) ResolveWithdrawal(_ context.Context, externalRef, outcome string) (Entry, error) {
	if outcome != StatusCompleted && outcome != StatusFailed {
		return Entry{}, fmt.Errorf("invalid withdrawal outcome %q", outcome)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.external[externalRef]
	if !ok || entry.Type != TypeWithdrawal {
		return Entry{}, ErrEntryNotFound
	}
	if entry.Status != StatusPending {
		return entry, ErrDuplicateEvent
	}

	now := time.Now().UTC()
	entry.Status = outcome
	entry.CompletedAt = &now
	s.external[externalRef] = entry

	log := s.entries[entry.WalletID]
	for i := range log {
		if log[i].ID == entry.ID {
			log[i] = entry
			break
		}
	}
	return entry, nil
}

// SeedWallet is a test helper that installs a wallet with the given balance
// when using the in-memory store.
func SeedWallet(store Store, w Wallet, balance decimal.Decimal) {
	if mem, ok := store.(*memoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		w.Balance = balance
		if w.Currency == "" {
			w.Currency = "NGN"
		}
		w.IsActive = true
		mem.wallets[w.ID] = w
	}
}
