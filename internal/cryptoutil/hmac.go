// Copyright 2025 Certen Protocol
//
// HMAC-SHA256 signing/verification shared by the auth layer (C8, inbound
// service requests) and the callback dispatcher (C10, outbound event
// notifications). Both sign the same shape of message:
// concat(timestamp_ms_ascii, path, body).

package cryptoutil

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Sign computes base64(HMAC-SHA256(secret, timestampMs || path || body)).
func Sign(secret []byte, timestampMs string, path string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestampMs))
	mac.Write([]byte(path))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig is the correct base64 HMAC-SHA256 signature
// for the given message, using a constant-time comparison.
func Verify(secret []byte, timestampMs string, path string, body []byte, sig string) bool {
	expected := Sign(secret, timestampMs, path, body)
	return hmac.Equal([]byte(expected), []byte(sig))
}
