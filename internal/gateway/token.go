// Package gateway implements the proof-of-wait admission gateway: a
// stateless-verifiable queue token carried in a cookie, a header-derived
// client fingerprint, a sliding-window rate limit, a suspicion heuristic, and
// a temporary ban registry, orchestrated into a per-request admit/queue/block
// decision. The server keeps no session record for the token; the token's own
// keyed digest is the sole integrity control.
package gateway

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// tokenFieldCount is the wire form: six semantic fields plus the trailing mac.
const tokenFieldCount = 7

// Token is the queue state a client carries between requests.
// AllowAt and BanUntil are absolute unix seconds so verification needs no
// server-side session.
type Token struct {
	ID          string // random 128-bit hex
	AllowAt     int64  // unix seconds the wait elapses
	FailCount   int    // premature retries so far
	BanUntil    int64  // unix seconds the in-token ban lapses, 0 if none
	Fingerprint string // header-derived client identifier
	Nonce       string // random hex, refreshed on reissue
}

// Encode serializes the token as id|allowAt|failCount|banUntil|fingerprint|nonce|mac,
// where mac is an HMAC-SHA256 hex digest over the first six fields under key.
func (t Token) Encode(key []byte) string {
	payload := t.payload()
	return payload + "|" + signPayload(payload, key)
}

func (t Token) payload() string {
	return strings.Join([]string{
		t.ID,
		strconv.FormatInt(t.AllowAt, 10),
		strconv.Itoa(t.FailCount),
		strconv.FormatInt(t.BanUntil, 10),
		t.Fingerprint,
		t.Nonce,
	}, "|")
}

// DecodeToken parses and verifies a wire-form token against each candidate
// key in order. Any failure - wrong field count, non-numeric timestamps, or a
// digest that matches under none of the keys - is reported as ok=false, which
// callers must treat exactly like an absent token.
func DecodeToken(s string, keys ...[]byte) (Token, bool) {
	parts := strings.Split(s, "|")
	if len(parts) != tokenFieldCount {
		return Token{}, false
	}

	payload := strings.Join(parts[:tokenFieldCount-1], "|")
	mac := parts[tokenFieldCount-1]

	verified := false
	for _, key := range keys {
		if len(key) == 0 {
			continue
		}
		expected := signPayload(payload, key)
		// Constant-time comparison so digest mismatches leak no timing signal.
		if hmac.Equal([]byte(mac), []byte(expected)) {
			verified = true
			break
		}
	}
	if !verified {
		return Token{}, false
	}

	allowAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Token{}, false
	}
	failCount, err := strconv.Atoi(parts[2])
	if err != nil || failCount < 0 {
		return Token{}, false
	}
	banUntil, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return Token{}, false
	}

	return Token{
		ID:          parts[0],
		AllowAt:     allowAt,
		FailCount:   failCount,
		BanUntil:    banUntil,
		Fingerprint: parts[4],
		Nonce:       parts[5],
	}, true
}

func signPayload(payload string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// newTokenID returns a random 128-bit hex identifier.
func newTokenID() string {
	return randomHex(16)
}

// newNonce returns a random 64-bit hex nonce.
func newNonce() string {
	return randomHex(8)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	// crypto/rand.Read only fails when the platform RNG is broken; there is
	// no meaningful recovery at request time.
	if _, err := rand.Read(buf); err != nil {
		panic("gateway: random source unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf)
}
