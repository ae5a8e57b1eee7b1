// Package dispatch signs and posts approved action batches to the runner
// over HTTP, and interprets the per-action results that come back.
package dispatch

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the dispatch signature: HMAC-SHA256(secret, ts+"."+body),
// hex-encoded. It is a pure function of its inputs — identical (ts, body,
// secret) always yields identical output — so tests can assert on it
// directly without standing up an HTTP server.
func Sign(ts, body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig (the hex digest, without the "sha256=" prefix)
// matches the expected signature for (ts, body, secret), using a
// constant-time comparison.
func Verify(ts, body, secret, sig string) bool {
	expected := Sign(ts, body, secret)
	return hmac.Equal([]byte(expected), []byte(sig))
}
