package gateway

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectSuspicion_CleanBrowser(t *testing.T) {
	tags := DetectSuspicion(browserHeaders())
	assert.Empty(t, tags)
}

func TestDetectSuspicion_MissingUserAgent(t *testing.T) {
	h := browserHeaders()
	h.Del("User-Agent")

	tags := DetectSuspicion(h)
	assert.Contains(t, tags, TagMissingUserAgent)
}

func TestDetectSuspicion_ShortUserAgent(t *testing.T) {
	h := browserHeaders()
	h.Set("User-Agent", "short")

	tags := DetectSuspicion(h)
	assert.Contains(t, tags, TagMissingUserAgent)
}

func TestDetectSuspicion_AutomatedSignatures(t *testing.T) {
	cases := []string{
		"curl/8.4.0 (x86_64-pc-linux-gnu)",
		"Wget/1.21.3 (linux-gnu)",
		"python-requests/2.31.0",
		"Mozilla/5.0 (compatible; Googlebot/2.1)",
		"MyCrawler/1.0 (+http://example.com)",
		"WebScraper Pro 2000 edition",
	}
	for _, ua := range cases {
		h := browserHeaders()
		h.Set("User-Agent", ua)
		tags := DetectSuspicion(h)
		assert.Contains(t, tags, TagAutomatedTool, "user agent %q", ua)
	}
}

func TestDetectSuspicion_SignatureMatchIsCaseInsensitive(t *testing.T) {
	h := browserHeaders()
	h.Set("User-Agent", "SUPERCURL/1.0 experimental client")

	tags := DetectSuspicion(h)
	assert.Contains(t, tags, TagAutomatedTool)
}

func TestDetectSuspicion_MissingAccept(t *testing.T) {
	h := browserHeaders()
	h.Del("Accept")

	tags := DetectSuspicion(h)
	assert.Equal(t, []string{TagMissingAccept}, tags)
}

func TestDetectSuspicion_MultipleTags(t *testing.T) {
	h := http.Header{}
	h.Set("User-Agent", "bot")

	tags := DetectSuspicion(h)
	assert.ElementsMatch(t, []string{TagMissingUserAgent, TagAutomatedTool, TagMissingAccept}, tags)
}
