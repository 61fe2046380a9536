package commerce

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"foo":"bar"}`)
	secret := "top-secret"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	validSig := hex.EncodeToString(mac.Sum(nil))

	if !VerifyWebhookSignature(payload, validSig, secret) {
		t.Fatalf("expected sha256 signature to validate")
	}
	if !VerifyWebhookSignature(payload, "sha256="+validSig, secret) {
		t.Fatalf("expected algorithm-prefixed signature to validate")
	}

	macSHA1 := hmac.New(sha1.New, []byte(secret))
	macSHA1.Write(payload)
	validSHA1 := hex.EncodeToString(macSHA1.Sum(nil))
	if !VerifyWebhookSignature(payload, validSHA1, secret) {
		t.Fatalf("expected sha1 fallback signature to validate")
	}

	if VerifyWebhookSignature(payload, "deadbeef", secret) {
		t.Fatalf("expected invalid signature to fail")
	}
	if VerifyWebhookSignature(payload, validSig, "wrong-secret") {
		t.Fatalf("expected wrong secret to fail")
	}
	if VerifyWebhookSignature(payload, "not-hex!", secret) {
		t.Fatalf("expected undecodable signature to fail")
	}
	if VerifyWebhookSignature(payload, "", secret) {
		t.Fatalf("expected empty signature to fail")
	}
	if VerifyWebhookSignature(payload, validSig, "") {
		t.Fatalf("expected empty secret to fail")
	}
}

func TestVerifyWebhookSignature_TamperedPayload(t *testing.T) {
	payload := []byte(`{"amount":10}`)
	secret := "top-secret"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	sig := hex.EncodeToString(mac.Sum(nil))

	if VerifyWebhookSignature([]byte(`{"amount":9999}`), sig, secret) {
		t.Fatalf("expected signature over different payload to fail")
	}
}
