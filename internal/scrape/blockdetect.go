package scrape

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
	BlockAuthWall   BlockType = "auth_wall"
)

var bodyMarkers = []struct {
	kind    BlockType
	markers []string
}{
	{BlockCloudflare, []string{"checking your browser", "cf-browser-verification"}},
	{BlockCaptcha, []string{"captcha"}},
}

// DetectBlock checks an HTTP response for anti-bot protection.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return true, BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))
	for _, bm := range bodyMarkers {
		for _, m := range bm.markers {
			if strings.Contains(lower, m) {
				return true, bm.kind
			}
		}
	}

	// JS-only shell: tiny body that only asks for javascript or redirects.
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}

// IsAuthWall reports whether a browser landed on a login or auth wall page
// instead of the requested content.
func IsAuthWall(currentURL string) bool {
	lower := strings.ToLower(currentURL)
	for _, k := range []string{"authwall", "login", "sign_in", "signin", "/auth", "checkpoint"} {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
