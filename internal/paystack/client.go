package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/chopnow/chop_wallet/internal/config"
)

// Client talks to the Paystack REST API. All calls carry the configured
// timeout through the underlying http.Client; a timeout before confirmation
// surfaces as an error so callers fail closed.
type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

// NewClient builds a Paystack API client from the injected configuration.
func NewClient(cfg config.Paystack) *Client {
	return &Client{
		secretKey: cfg.SecretKey,
		baseURL:   cfg.BaseURL,
		http:      &http.Client{Timeout: cfg.Timeout},
	}
}

// APIError carries a failure reported by the Paystack API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paystack: %s (status %d)", e.Message, e.StatusCode)
}

// envelope is the response wrapper every Paystack endpoint uses.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// CreateCustomer registers a customer identity and returns its customer code.
func (c *Client) CreateCustomer(ctx context.Context, email, firstName, lastName, phone string) (string, error) {
	payload := map[string]string{
		"email":      email,
		"first_name": firstName,
		"last_name":  lastName,
		"phone":      phone,
	}
	var data struct {
		CustomerCode string `json:"customer_code"`
	}
	if err := c.post(ctx, "/customer", payload, &data); err != nil {
		return "", err
	}
	return data.CustomerCode, nil
}

// CreateDedicatedAccount provisions a dedicated virtual receiving account
// (NUBAN) routed to the given customer. Returns account number and bank name.
func (c *Client) CreateDedicatedAccount(ctx context.Context, customerCode string) (string, string, error) {
	payload := map[string]string{
		"customer":       customerCode,
		"preferred_bank": "wema-bank",
	}
	var data struct {
		AccountNumber string `json:"account_number"`
		Bank          struct {
			Name string `json:"name"`
		} `json:"bank"`
	}
	if err := c.post(ctx, "/dedicated_account", payload, &data); err != nil {
		return "", "", err
	}
	return data.AccountNumber, data.Bank.Name, nil
}

// CreateTransferRecipient registers a payout destination and returns its
// recipient code. Paystack deduplicates recipients per distinct destination.
func (c *Client) CreateTransferRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, error) {
	payload := map[string]string{
		"type":           "nuban",
		"name":           name,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       "NGN",
	}
	var data struct {
		RecipientCode string `json:"recipient_code"`
	}
	if err := c.post(ctx, "/transferrecipient", payload, &data); err != nil {
		return "", err
	}
	return data.RecipientCode, nil
}

// InitiateTransfer starts a payout of amountMinor (minor units) to the
// recipient, tagged with the caller-generated reference. Returns the transfer
// code handle.
func (c *Client) InitiateTransfer(ctx context.Context, reference string, amountMinor int64, recipientCode, reason string) (string, error) {
	payload := map[string]any{
		"source":    "balance",
		"amount":    amountMinor,
		"recipient": recipientCode,
		"reference": reference,
		"reason":    reason,
	}
	var data struct {
		TransferCode string `json:"transfer_code"`
		Status       string `json:"status"`
	}
	if err := c.post(ctx, "/transfer", payload, &data); err != nil {
		return "", err
	}
	return data.TransferCode, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("paystack request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("paystack response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: "malformed response"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Status {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &APIError{StatusCode: resp.StatusCode, Message: "malformed response data"}
		}
	}
	return nil
}
