package commerce

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"
)

// VerifyWebhookSignature checks the provider's HMAC signature over the raw
// request body. SHA-256 is the documented algorithm; SHA-1 is accepted as a
// fallback for older provider configurations.
func VerifyWebhookSignature(payload []byte, signatureHeader, webhookSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}

	// Some providers prefix the hex digest with the algorithm name.
	if idx := strings.IndexByte(sig, '='); idx >= 0 {
		sig = sig[idx+1:]
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	if verifyHMAC(payload, decodedSig, []byte(secret), sha256.New) {
		return true
	}
	return verifyHMAC(payload, decodedSig, []byte(secret), sha1.New)
}

func verifyHMAC(payload, expectedSig, secret []byte, hashFunc func() hash.Hash) bool {
	mac := hmac.New(hashFunc, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expectedSig)
}
