// Package commerce parses and verifies payment-event webhooks from the
// commerce platform. Providers deliver the same purchase in several
// equivalent envelope shapes; extraction treats every field's absence or
// malformation as independently recoverable.
package commerce

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidEmail means no usable email could be extracted.
	ErrInvalidEmail = errors.New("commerce: missing or malformed email")
	// ErrInvalidOffer means no positive numeric offer id could be extracted.
	ErrInvalidOffer = errors.New("commerce: missing or non-positive offer id")
)

var validate = validator.New()

// PurchaseEvent is the normalized shape of one payment webhook.
type PurchaseEvent struct {
	Email         string
	SubjectName   string
	OfferID       int64
	TransactionID string
	Amount        float64
	Currency      string
}

// CancellationEvent is the normalized shape of a subscription-ended webhook.
type CancellationEvent struct {
	Email   string
	OfferID int64
	Reason  string
}

// ParsePurchaseEvent extracts a purchase from either the flat shape
// (member.email, offer.id, transaction.id) or the nested payload shape
// (payload.member_email, payload.offer_id, ...). Email and offer id are
// required; everything else degrades to zero values.
func ParsePurchaseEvent(raw []byte) (*PurchaseEvent, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("commerce: invalid JSON: %w", err)
	}

	event := &PurchaseEvent{
		Email: firstString(doc,
			path("member", "email"),
			path("payload", "member_email"),
			path("email"),
			path("customer", "email"),
		),
		SubjectName: firstString(doc,
			path("member", "name"),
			path("payload", "member_name"),
			path("name"),
		),
		TransactionID: firstString(doc,
			path("transaction", "id"),
			path("payload", "transaction_id"),
			path("transaction_id"),
		),
		Currency: strings.ToUpper(firstString(doc,
			path("currency"),
			path("payload", "currency"),
		)),
	}

	event.OfferID = firstInt(doc,
		path("offer", "id"),
		path("payload", "offer_id"),
		path("offer_id"),
	)
	event.Amount = firstFloat(doc,
		path("amount"),
		path("payload", "amount"),
		path("transaction", "amount"),
	)

	event.Email = strings.ToLower(strings.TrimSpace(event.Email))
	if event.Email == "" || validate.Var(event.Email, "email") != nil {
		return nil, ErrInvalidEmail
	}
	if event.OfferID <= 0 {
		return nil, ErrInvalidOffer
	}
	return event, nil
}

// ParseCancellationEvent extracts a cancellation with the same envelope
// flexibility. Only the email is required; the offer id narrows which
// mentorship ends when present.
func ParseCancellationEvent(raw []byte) (*CancellationEvent, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("commerce: invalid JSON: %w", err)
	}

	event := &CancellationEvent{
		Email: strings.ToLower(strings.TrimSpace(firstString(doc,
			path("member", "email"),
			path("payload", "member_email"),
			path("email"),
		))),
		Reason: firstString(doc,
			path("reason"),
			path("payload", "reason"),
			path("event"),
		),
	}
	event.OfferID = firstInt(doc,
		path("offer", "id"),
		path("payload", "offer_id"),
		path("offer_id"),
	)

	if event.Email == "" || validate.Var(event.Email, "email") != nil {
		return nil, ErrInvalidEmail
	}
	return event, nil
}

func path(keys ...string) []string { return keys }

func lookup(doc map[string]interface{}, keys []string) (interface{}, bool) {
	current := interface{}(doc)
	for _, key := range keys {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func firstString(doc map[string]interface{}, paths ...[]string) string {
	for _, p := range paths {
		v, ok := lookup(doc, p)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstInt(doc map[string]interface{}, paths ...[]string) int64 {
	for _, p := range paths {
		v, ok := lookup(doc, p)
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			if n == float64(int64(n)) && n > 0 {
				return int64(n)
			}
		case string:
			if parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil && parsed > 0 {
				return parsed
			}
		}
	}
	return 0
}

func firstFloat(doc map[string]interface{}, paths ...[]string) float64 {
	for _, p := range paths {
		v, ok := lookup(doc, p)
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n
		case string:
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return parsed
			}
		}
	}
	return 0
}
