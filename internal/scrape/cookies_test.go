package scrape

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCookies(t *testing.T) {
	data := `[
  {"name": "li_at", "value": "tok", "domain": ".linkedin.com", "path": "/", "httpOnly": true, "secure": true, "sameSite": "no_restriction", "expirationDate": 1893456000.5},
  {"name": "JSESSIONID", "value": "ajax:1", "domain": ".www.linkedin.com", "sameSite": "unspecified", "expires": 1893456000},
  {"name": "lang", "value": "fr", "domain": "linkedin.com", "sameSite": null},
  {"name": "", "value": "skipped"}
]`

	cookies, err := ParseCookies([]byte(data))
	require.NoError(t, err)
	require.Len(t, cookies, 3)

	li := cookies[0]
	assert.Equal(t, "li_at", li.Name)
	assert.True(t, li.HTTPOnly)
	assert.True(t, li.Secure)
	assert.Equal(t, network.CookieSameSiteNone, li.SameSite)
	require.NotNil(t, li.Expires)
	assert.Equal(t, int64(1893456000), li.Expires.Time().Unix())

	assert.Equal(t, network.CookieSameSiteLax, cookies[1].SameSite)
	assert.Equal(t, "/", cookies[1].Path)
	require.NotNil(t, cookies[1].Expires)
	assert.True(t, cookies[1].Expires.Time().Equal(time.Unix(1893456000, 0)))

	assert.Equal(t, network.CookieSameSiteLax, cookies[2].SameSite)
	assert.Nil(t, cookies[2].Expires)
}

func TestParseCookies_Invalid(t *testing.T) {
	_, err := ParseCookies([]byte(`{"not": "a list"}`))
	assert.Error(t, err)
}

func TestLoadCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"a","value":"b","domain":"apollo.io","sameSite":"strict"}]`), 0o600))

	cookies, err := LoadCookies(path)
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, network.CookieSameSiteStrict, cookies[0].SameSite)

	_, err = LoadCookies(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
