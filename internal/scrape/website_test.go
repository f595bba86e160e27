package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPScraper_Scrape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
		_, _ = w.Write([]byte(`<html><head><title>Acme</title></head><body><p>Nous accompagnons les PME.</p></body></html>`))
	}))
	defer srv.Close()

	page, err := NewHTTPScraper(MaxWebsiteText).Scrape(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Acme", page.Title)
	assert.Equal(t, "Nous accompagnons les PME.", page.Text)
	assert.Equal(t, "http", page.Source)
}

func TestHTTPScraper_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))
	}))
	defer srv.Close()

	_, err := NewHTTPScraper(MaxWebsiteText).Scrape(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestHTTPScraper_Blocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body>please solve the captcha</body></html>"))
	}))
	defer srv.Close()

	_, err := NewHTTPScraper(MaxWebsiteText).Scrape(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked (captcha)")
}
