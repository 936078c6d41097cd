package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log"

	"github.com/flexit/backend/internal/config"
)

// SignatureVerifier authenticates webhook deliveries. It is a pure
// function of the raw payload bytes, the provided signature and
// configuration; it performs no I/O.
type SignatureVerifier struct {
	secret     string
	skip       bool
	production bool
}

func NewSignatureVerifier(cfg *config.LemonSqueezyConfig) *SignatureVerifier {
	return &SignatureVerifier{
		secret:     cfg.WebhookSecret,
		skip:       cfg.SkipVerification,
		production: config.IsProduction(),
	}
}

// Verify checks the provider's HMAC-SHA256 hex signature over the exact
// raw request body. It fails closed: missing secret, missing signature or
// any mismatch returns false. The skip flag is a local-testing aid and is
// never honored in production.
func (v *SignatureVerifier) Verify(payload []byte, signature string) bool {
	if v.skip && !v.production {
		log.Printf("[WEBHOOK] Signature verification skipped (non-production)")
		return true
	}

	if v.secret == "" {
		log.Printf("[WEBHOOK] Webhook secret not configured")
		return false
	}

	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write(payload)
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	return hmac.Equal(expected, provided)
}
