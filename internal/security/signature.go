package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// GenerateWebhookSignature signs a completion payload with the configured
// webhook secret. Receivers get the hex digest in X-Snapvision-Signature.
func GenerateWebhookSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks a payload against its claimed signature.
func VerifyWebhookSignature(payload []byte, signature, secret string) bool {
	expected := GenerateWebhookSignature(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// GenerateRequestID produces an ID for request tracing headers.
func GenerateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("req_%s", hex.EncodeToString(b))
}
