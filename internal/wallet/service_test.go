package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chopnow/chop_wallet/internal/ledger"
)

type stubAccountClient struct {
	customers int
	accounts  int
	fail      error
}

func (s *stubAccountClient) CreateCustomer(_ context.Context, email, _, _, _ string) (string, error) {
	s.customers++
	if s.fail != nil {
		return "", s.fail
	}
	return "CUS_" + email, nil
}

func (s *stubAccountClient) CreateDedicatedAccount(_ context.Context, customerCode string) (string, string, error) {
	s.accounts++
	if s.fail != nil {
		return "", "", s.fail
	}
	return "9900001111", "Wema Bank", nil
}

func TestEnsureAccountIdempotent(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemory()
	client := &stubAccountClient{}
	svc := NewService(store, client, "NGN")

	userID := uuid.NewString()
	profile := Profile{Email: "rider@example.com", FirstName: "Ada", LastName: "Obi"}

	first, err := svc.EnsureAccount(ctx, userID, profile)
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if !first.Provisioned() {
		t.Fatalf("wallet not provisioned: %+v", first)
	}
	if !first.Balance.Equal(decimal.Zero) {
		t.Fatalf("fresh wallet balance must be zero, got %s", first.Balance)
	}

	second, err := svc.EnsureAccount(ctx, userID, profile)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if second.CustomerCode != first.CustomerCode || second.AccountNumber != first.AccountNumber {
		t.Fatalf("descriptor changed on replay: %+v vs %+v", second, first)
	}
	if client.customers != 1 || client.accounts != 1 {
		t.Fatalf("processor called again on replay: customers=%d accounts=%d", client.customers, client.accounts)
	}
}

func TestEnsureAccountRequiresProfile(t *testing.T) {
	ctx := context.Background()
	svc := NewService(ledger.NewMemory(), &stubAccountClient{}, "NGN")

	_, err := svc.EnsureAccount(ctx, uuid.NewString(), Profile{})
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestEnsureAccountProcessorFailureLeavesWalletBare(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemory()
	client := &stubAccountClient{fail: errors.New("processor down")}
	svc := NewService(store, client, "NGN")

	userID := uuid.NewString()
	if _, err := svc.EnsureAccount(ctx, userID, Profile{Email: "a@b.c"}); err == nil {
		t.Fatal("expected error")
	}

	// the zero-balance wallet row exists but carries no descriptor, a retry
	// provisions it
	w, err := store.GetWalletByUser(ctx, userID)
	if err != nil {
		t.Fatalf("wallet row missing after failure: %v", err)
	}
	if w.Provisioned() {
		t.Fatalf("descriptor written despite failure: %+v", w)
	}

	client.fail = nil
	retried, err := svc.EnsureAccount(ctx, userID, Profile{Email: "a@b.c"})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !retried.Provisioned() {
		t.Fatalf("retry did not provision: %+v", retried)
	}
}

func TestEnsureAccountThenDepositRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemory()
	svc := NewService(store, &stubAccountClient{}, "NGN")

	w, err := svc.EnsureAccount(ctx, uuid.NewString(), Profile{Email: "vendor@example.com"})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	res, err := store.Apply(ctx, ledger.ApplyInput{
		WalletID:          w.ID,
		Type:              ledger.TypeDeposit,
		Amount:            decimal.NewFromInt(250),
		ExternalReference: "evt-1",
	})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !res.Entry.BalanceBefore.Equal(decimal.Zero) || !res.Entry.BalanceAfter.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("snapshots before=%s after=%s", res.Entry.BalanceBefore, res.Entry.BalanceAfter)
	}
	if res.Entry.Status != ledger.StatusCompleted {
		t.Fatalf("expected completed deposit, got %s", res.Entry.Status)
	}

	entries, _ := svc.Transactions(ctx, w.UserID, 10, 0)
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	final, _ := svc.GetByUser(ctx, w.UserID)
	if !final.Balance.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("expected balance 250, got %s", final.Balance)
	}
}
