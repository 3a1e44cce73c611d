package deposit

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/chopnow/chop_wallet/internal/ledger"
	"github.com/chopnow/chop_wallet/internal/logging"
)

// lookupSpy wraps a store and counts wallet lookups so tests can prove a
// rejected webhook touches nothing.
type lookupSpy struct {
	ledger.Store
	lookups int
}

func (s *lookupSpy) GetWalletByCustomerCode(ctx context.Context, code string) (ledger.Wallet, error) {
	s.lookups++
	return s.Store.GetWalletByCustomerCode(ctx, code)
}

func setupWebhookApp(store ledger.Store) *fiber.App {
	logger := logging.Discard()
	handler := NewHandler(NewService(store, nil, logger), testSecret, logger)
	app := fiber.New()
	app.Post("/webhooks/paystack", handler.Webhook)
	return app
}

func TestWebhookValidSignature(t *testing.T) {
	store := ledger.NewMemory()
	w := seedProvisionedWallet(store, 0)
	app := setupWebhookApp(store)

	body := chargeBody("PSK_h1", w.CustomerCode, 30_000)
	req := httptest.NewRequest(fiber.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(SignatureHeader, Sign(body, testSecret))

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	final, _ := store.GetWallet(context.Background(), w.ID)
	if !final.Balance.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected credit of 300, got %s", final.Balance)
	}
}

func TestWebhookInvalidSignatureRejectedBeforeLookup(t *testing.T) {
	spy := &lookupSpy{Store: ledger.NewMemory()}
	w := seedProvisionedWallet(spy.Store, 0)
	app := setupWebhookApp(spy)

	body := chargeBody("PSK_h2", w.CustomerCode, 30_000)
	req := httptest.NewRequest(fiber.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(SignatureHeader, Sign(body, []byte("attacker secret")))

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if spy.lookups != 0 {
		t.Fatalf("wallet lookup performed on rejected request")
	}

	final, _ := spy.GetWallet(context.Background(), w.ID)
	if !final.Balance.IsZero() {
		t.Fatalf("balance moved on rejected request: %s", final.Balance)
	}
	entries, _ := spy.ListEntries(context.Background(), w.ID, 10, 0)
	if len(entries) != 0 {
		t.Fatalf("entry created on rejected request")
	}
}

func TestWebhookUnknownCustomerReturns404(t *testing.T) {
	app := setupWebhookApp(ledger.NewMemory())

	body := chargeBody("PSK_h3", "CUS_missing", 1_000)
	req := httptest.NewRequest(fiber.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(SignatureHeader, Sign(body, testSecret))

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
