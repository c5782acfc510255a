// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// signaturePrefix is accepted, but not required, in front of the hex digest.
const signaturePrefix = "sha256="

// SignatureVerifier checks HMAC-SHA256 signatures of scheduling webhook bodies.
type SignatureVerifier struct {
	secret string
}

// NewSignatureVerifier creates a verifier for the shared webhook secret.
func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{
		secret: secret,
	}
}

// Verify reports whether signature is the hex encoded HMAC-SHA256 of the exact
// body bytes under the configured secret. An empty secret rejects everything.
func (v *SignatureVerifier) Verify(signature string, body []byte) bool {
	return Verify(signature, body, v.secret)
}

// Verify reports whether signature is the hex encoded HMAC-SHA256 of body under secret.
func Verify(signature string, body []byte, secret string) bool {
	if secret == "" {
		return false
	}

	signature = strings.TrimPrefix(strings.TrimSpace(signature), signaturePrefix)
	if signature == "" {
		return false
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	return hmac.Equal(provided, Sign(body, secret))
}

// Sign returns the raw HMAC-SHA256 of body under secret.
func Sign(body []byte, secret string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return h.Sum(nil)
}

// SignHex returns the lowercase hex HMAC-SHA256 of body, as sent in the signature header.
func SignHex(body []byte, secret string) string {
	return hex.EncodeToString(Sign(body, secret))
}
