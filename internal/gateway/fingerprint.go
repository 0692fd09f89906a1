package gateway

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

// fingerprintHeaders are the headers folded into the client fingerprint, in
// fixed order. Network-address identity is unusable behind an anonymity
// network, so these stand in for it. Headers that vary per request are
// excluded so the same client keeps the same fingerprint across navigation.
var fingerprintHeaders = []string{
	"User-Agent",
	"Accept-Language",
	"Accept-Encoding",
	"Accept",
}

// Fingerprint derives a stable hex identifier from the request headers.
// Missing headers contribute the empty string, so two requests with identical
// relevant headers always produce the identical fingerprint.
func Fingerprint(h http.Header) string {
	digest := sha256.New()
	for _, name := range fingerprintHeaders {
		digest.Write([]byte(h.Get(name)))
		// Delimit values so shifting bytes between adjacent headers cannot
		// produce the same digest.
		digest.Write([]byte{0})
	}
	return hex.EncodeToString(digest.Sum(nil))
}
