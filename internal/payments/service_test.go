package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chopnow/chop_wallet/internal/ledger"
	"github.com/chopnow/chop_wallet/internal/logging"
)

func TestPayDebitsWalletOnce(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemory()
	w := ledger.Wallet{ID: uuid.NewString(), UserID: uuid.NewString(), Currency: "NGN"}
	ledger.SeedWallet(store, w, decimal.NewFromInt(2_000))
	svc := NewService(store, logging.Discard())

	input := PayInput{UserID: w.UserID, OrderID: "ord-981", Amount: decimal.NewFromInt(1_250)}

	first, err := svc.Pay(ctx, input)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if first.Replayed {
		t.Fatal("first payment marked as replay")
	}
	if !first.Balance.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("expected balance 750, got %s", first.Balance)
	}
	if first.Entry.Status != ledger.StatusCompleted {
		t.Fatalf("payment should settle synchronously, got %s", first.Entry.Status)
	}

	// client retry with the same order id
	replay, err := svc.Pay(ctx, input)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !replay.Replayed {
		t.Fatal("replay not detected")
	}
	if replay.Entry.ID != first.Entry.ID {
		t.Fatal("replay produced a second entry")
	}

	final, _ := store.GetWallet(ctx, w.ID)
	if !final.Balance.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("expected single debit, balance %s", final.Balance)
	}
}

func TestPayValidation(t *testing.T) {
	svc := NewService(ledger.NewMemory(), logging.Discard())
	ctx := context.Background()

	if _, err := svc.Pay(ctx, PayInput{UserID: uuid.NewString(), Amount: decimal.NewFromInt(10)}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for missing order, got %v", err)
	}
	if _, err := svc.Pay(ctx, PayInput{UserID: uuid.NewString(), OrderID: "ord-1", Amount: decimal.Zero}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for zero amount, got %v", err)
	}
	if _, err := svc.Pay(ctx, PayInput{UserID: uuid.NewString(), OrderID: "ord-1", Amount: decimal.RequireFromString("10.005")}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for sub-minor-unit amount, got %v", err)
	}
}

func TestPayInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemory()
	w := ledger.Wallet{ID: uuid.NewString(), UserID: uuid.NewString(), Currency: "NGN"}
	ledger.SeedWallet(store, w, decimal.NewFromInt(100))
	svc := NewService(store, logging.Discard())

	_, err := svc.Pay(ctx, PayInput{UserID: w.UserID, OrderID: "ord-2", Amount: decimal.NewFromInt(500)})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	entries, _ := store.ListEntries(ctx, w.ID, 10, 0)
	if len(entries) != 0 {
		t.Fatalf("entry written for rejected payment")
	}
}
