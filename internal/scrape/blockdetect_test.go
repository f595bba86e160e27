package scrape

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBlock(t *testing.T) {
	cfHeader := http.Header{}
	cfHeader.Set("cf-ray", "abc123")

	tests := []struct {
		name    string
		resp    *http.Response
		body    string
		blocked bool
		kind    BlockType
	}{
		{name: "nil response", resp: nil, body: "", blocked: false, kind: BlockNone},
		{name: "cloudflare 403", resp: &http.Response{StatusCode: 403, Header: cfHeader}, blocked: true, kind: BlockCloudflare},
		{name: "cloudflare body", resp: &http.Response{StatusCode: 200, Header: http.Header{}}, body: "Checking your browser before accessing", blocked: true, kind: BlockCloudflare},
		{name: "captcha", resp: &http.Response{StatusCode: 200, Header: http.Header{}}, body: "<div class=g-recaptcha>", blocked: true, kind: BlockCaptcha},
		{name: "js shell", resp: &http.Response{StatusCode: 200, Header: http.Header{}}, body: "<noscript>Enable JavaScript</noscript>", blocked: true, kind: BlockJSShell},
		{name: "meta refresh", resp: &http.Response{StatusCode: 200, Header: http.Header{}}, body: `<meta http-equiv="refresh" content="0;url=/x">`, blocked: true, kind: BlockJSShell},
		{name: "normal page", resp: &http.Response{StatusCode: 200, Header: http.Header{}}, body: "<html><body>Hello</body></html>", blocked: false, kind: BlockNone},
		{name: "plain 403", resp: &http.Response{StatusCode: 403, Header: http.Header{}}, body: "forbidden", blocked: false, kind: BlockNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocked, kind := DetectBlock(tt.resp, []byte(tt.body))
			assert.Equal(t, tt.blocked, blocked)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestIsAuthWall(t *testing.T) {
	assert.True(t, IsAuthWall("https://www.linkedin.com/authwall?trk=foo"))
	assert.True(t, IsAuthWall("https://www.linkedin.com/login?session_redirect=x"))
	assert.True(t, IsAuthWall("https://www.linkedin.com/checkpoint/challenge"))
	assert.False(t, IsAuthWall("https://www.linkedin.com/in/jean-dupont"))
}
