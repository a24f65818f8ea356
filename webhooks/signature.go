package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

const (
	HeaderSignature = "X-TRM-Signature"
	HeaderTimestamp = "X-TRM-Timestamp"
	HeaderEvent     = "X-TRM-Event"

	SignatureVersion = "v1"
)

// Sign returns the lowercase hex HMAC-SHA256 of "<timestamp>.<body>".
func Sign(secret string, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader formats a signature the way TRM sends it: "v1=<hex>".
func SignatureHeader(secret string, timestamp string, body []byte) string {
	return SignatureVersion + "=" + Sign(secret, timestamp, body)
}

type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Verify checks signature against body and timestamp. The signature may be
// bare hex or "<version>=<hex>"; only the part after the first "=" is
// compared and the version itself is not checked.
func (v *Verifier) Verify(body []byte, signature string, timestamp string) error {
	if v == nil || v.secret == "" {
		return signatureError("webhooks: signature secret is required")
	}
	if !utf8.Valid(body) {
		return signatureError("webhooks: payload is not valid utf-8")
	}
	provided := signature
	if _, value, found := strings.Cut(signature, "="); found {
		provided = value
	}
	if provided == "" {
		return signatureError("webhooks: signature value is required")
	}
	expected := Sign(v.secret, timestamp, body)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
		return signatureError("webhooks: signature verification failed")
	}
	return nil
}

func (v *Verifier) VerifySignature(body []byte, signature string, timestamp string) bool {
	return v.Verify(body, signature, timestamp) == nil
}
