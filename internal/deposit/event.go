package deposit

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// SignatureHeader is the processor's webhook signature header.
const SignatureHeader = "X-Paystack-Signature"

// Webhook event names this service reacts to. Everything else is
// acknowledged and ignored.
const (
	EventChargeSuccess    = "charge.success"
	EventTransferSuccess  = "transfer.success"
	EventTransferFailed   = "transfer.failed"
	EventTransferReversed = "transfer.reversed"
)

// channelDedicatedAccount marks charges that arrived through a dedicated
// receiving account; only those credit a wallet.
const channelDedicatedAccount = "dedicated_nuban"

// Event is the parsed webhook payload.
type Event struct {
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

// EventData carries the fields the reconciliation core needs. Amount is in
// minor units.
type EventData struct {
	Amount       int64    `json:"amount"`
	Reference    string   `json:"reference"`
	Channel      string   `json:"channel"`
	TransferCode string   `json:"transfer_code"`
	Customer     Customer `json:"customer"`
}

// Customer identifies the processor-side customer the event belongs to.
type Customer struct {
	CustomerCode string `json:"customer_code"`
	Email        string `json:"email"`
}

// VerifySignature recomputes the HMAC-SHA512 hex digest of the raw body under
// the shared secret and compares it against the request-provided signature in
// constant time.
func VerifySignature(body []byte, signature string, secret []byte) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign produces the hex HMAC-SHA512 digest of body. Exposed for tests that
// build authentic payloads.
func Sign(body, secret []byte) string {
	mac := hmac.New(sha512.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ParseEvent decodes a webhook body. It performs no I/O.
func ParseEvent(body []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return Event{}, fmt.Errorf("parse webhook payload: %w", err)
	}
	if evt.Event == "" {
		return Event{}, fmt.Errorf("webhook payload missing event name")
	}
	return evt, nil
}
