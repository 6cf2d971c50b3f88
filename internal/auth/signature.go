// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

package auth

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // G505: the wire protocol mandates HMAC-SHA1 signatures
	"encoding/hex"
)

// Sign computes the lowercase hex HMAC-SHA1 digest of raw keyed by secret.
// Clients sign the exact argument bytes they transmit; servers must verify
// against those same bytes, never a re-serialization.
func Sign(raw []byte, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(raw)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature is the HMAC-SHA1 digest of raw
// under secret. The comparison is constant-time with respect to
// secret-dependent data.
func VerifySignature(raw []byte, signature, secret string) bool {
	expected := Sign(raw, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
