package commerce

import (
	"errors"
	"testing"
)

func TestParsePurchaseEvent_FlatShape(t *testing.T) {
	raw := []byte(`{
		"member": { "email": "A@B.com", "name": "Alice" },
		"offer": { "id": 7 },
		"transaction": { "id": "tx_100", "amount": 49.99 },
		"currency": "eur"
	}`)

	event, err := ParsePurchaseEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Email != "a@b.com" {
		t.Fatalf("expected lowercased email a@b.com, got %q", event.Email)
	}
	if event.SubjectName != "Alice" {
		t.Fatalf("expected subject name Alice, got %q", event.SubjectName)
	}
	if event.OfferID != 7 {
		t.Fatalf("expected offer id 7, got %d", event.OfferID)
	}
	if event.TransactionID != "tx_100" {
		t.Fatalf("expected transaction id tx_100, got %q", event.TransactionID)
	}
	if event.Amount != 49.99 {
		t.Fatalf("expected amount 49.99, got %f", event.Amount)
	}
	if event.Currency != "EUR" {
		t.Fatalf("expected uppercased currency EUR, got %q", event.Currency)
	}
}

func TestParsePurchaseEvent_NestedPayloadShape(t *testing.T) {
	raw := []byte(`{
		"event": "purchase.created",
		"payload": {
			"member_email": "carol@example.com",
			"member_name": "Carol",
			"offer_id": "42",
			"transaction_id": "tx_200",
			"amount": "19.50",
			"currency": "usd"
		}
	}`)

	event, err := ParsePurchaseEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Email != "carol@example.com" {
		t.Fatalf("unexpected email %q", event.Email)
	}
	if event.OfferID != 42 {
		t.Fatalf("expected string offer id to parse to 42, got %d", event.OfferID)
	}
	if event.TransactionID != "tx_200" {
		t.Fatalf("unexpected transaction id %q", event.TransactionID)
	}
	if event.Amount != 19.50 {
		t.Fatalf("expected string amount to parse to 19.50, got %f", event.Amount)
	}
}

func TestParsePurchaseEvent_MissingTransactionIsTolerated(t *testing.T) {
	raw := []byte(`{"member":{"email":"a@b.com"},"offer":{"id":7}}`)

	event, err := ParsePurchaseEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.TransactionID != "" {
		t.Fatalf("expected empty transaction id, got %q", event.TransactionID)
	}
	if event.Amount != 0 {
		t.Fatalf("expected zero amount, got %f", event.Amount)
	}
}

func TestParsePurchaseEvent_RequiredFields(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{name: "missing email", raw: `{"offer":{"id":7}}`, want: ErrInvalidEmail},
		{name: "malformed email", raw: `{"member":{"email":"not-an-email"},"offer":{"id":7}}`, want: ErrInvalidEmail},
		{name: "email wrong type", raw: `{"member":{"email":12},"offer":{"id":7}}`, want: ErrInvalidEmail},
		{name: "missing offer", raw: `{"member":{"email":"a@b.com"}}`, want: ErrInvalidOffer},
		{name: "non-positive offer", raw: `{"member":{"email":"a@b.com"},"offer":{"id":0}}`, want: ErrInvalidOffer},
		{name: "fractional offer", raw: `{"member":{"email":"a@b.com"},"offer":{"id":7.5}}`, want: ErrInvalidOffer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePurchaseEvent([]byte(tt.raw)); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParsePurchaseEvent_InvalidJSON(t *testing.T) {
	if _, err := ParsePurchaseEvent([]byte(`{not json`)); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}

func TestParsePurchaseEvent_PrefersFlatOverNested(t *testing.T) {
	raw := []byte(`{
		"member": { "email": "flat@example.com" },
		"payload": { "member_email": "nested@example.com", "offer_id": 9 }
	}`)

	event, err := ParsePurchaseEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Email != "flat@example.com" {
		t.Fatalf("expected the flat shape to win, got %q", event.Email)
	}
	if event.OfferID != 9 {
		t.Fatalf("expected fallback to nested offer id 9, got %d", event.OfferID)
	}
}

func TestParseCancellationEvent(t *testing.T) {
	raw := []byte(`{"member":{"email":" Dan@Example.com "},"offer":{"id":3},"reason":"refund"}`)

	event, err := ParseCancellationEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Email != "dan@example.com" {
		t.Fatalf("expected normalized email, got %q", event.Email)
	}
	if event.OfferID != 3 {
		t.Fatalf("expected offer id 3, got %d", event.OfferID)
	}
	if event.Reason != "refund" {
		t.Fatalf("expected reason refund, got %q", event.Reason)
	}
}

func TestParseCancellationEvent_OfferOptional(t *testing.T) {
	event, err := ParseCancellationEvent([]byte(`{"email":"dan@example.com"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.OfferID != 0 {
		t.Fatalf("expected zero offer id, got %d", event.OfferID)
	}
}

func TestParseCancellationEvent_MissingEmail(t *testing.T) {
	if _, err := ParseCancellationEvent([]byte(`{"offer":{"id":3}}`)); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}
