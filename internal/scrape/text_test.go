package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	html := `<html><head><title> Acme Conseil </title><style>body{}</style></head>
<body><nav>Menu Home</nav><h1>Acme</h1>
<p>Cabinet de conseil   en
 stratégie.</p><script>var x = 1;</script><footer>Mentions légales</footer></body></html>`

	title, text, err := ExtractText(html, 0)
	require.NoError(t, err)
	assert.Equal(t, "Acme Conseil", title)
	assert.Equal(t, "Acme Cabinet de conseil en stratégie.", text)
}

func TestExtractText_Limit(t *testing.T) {
	_, text, err := ExtractText("<body><p>éééééééééé</p></body>", 4)
	require.NoError(t, err)
	assert.Equal(t, "éééé", text)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "abc", Truncate("abc", 0))
	assert.Equal(t, "日本", Truncate("日本語", 2))
}
