package gateway

import (
	"net/http"
	"strings"
)

// Suspicion tags. Any non-empty detection increments the fingerprint's
// suspicion counter; reaching the configured threshold triggers a ban.
const (
	TagMissingUserAgent = "missing_user_agent"
	TagAutomatedTool    = "automated_tool_signature"
	TagMissingAccept    = "missing_accept"
)

// A real browser user agent is never this short.
const minUserAgentLength = 10

// automatedSignatures is the fixed deny list matched case-insensitively
// against the user agent.
var automatedSignatures = []string{
	"bot", "crawler", "spider", "scraper", "curl", "wget", "python",
}

// DetectSuspicion flags header patterns typical of automated clients.
// Stateless: the caller owns the counting.
func DetectSuspicion(h http.Header) []string {
	var tags []string

	ua := h.Get("User-Agent")
	if len(ua) < minUserAgentLength {
		tags = append(tags, TagMissingUserAgent)
	}

	lowered := strings.ToLower(ua)
	for _, sig := range automatedSignatures {
		if strings.Contains(lowered, sig) {
			tags = append(tags, TagAutomatedTool)
			break
		}
	}

	if h.Get("Accept") == "" {
		tags = append(tags, TagMissingAccept)
	}

	return tags
}
