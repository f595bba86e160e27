package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 30, cfg.Server.KeepaliveSecs)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 500, cfg.Pipeline.MaxLeads)
	assert.Equal(t, 50, cfg.Pipeline.HitThreshold)
	assert.InDelta(t, 2.0, cfg.Pipeline.RequestDelaySecs, 0.001)
	assert.Equal(t, "output", cfg.Pipeline.OutputDir)
	assert.False(t, cfg.Pipeline.ExportXLSX)
	assert.Equal(t, ScoringConfig{Email: 40, LinkedIn: 30, Phone: 20, Website: 10}, cfg.Scoring)
	assert.Equal(t, 50, cfg.Dropcontact.BatchSize)
	assert.Equal(t, 5, cfg.Dropcontact.PollIntervalSecs)
	assert.Equal(t, 60, cfg.Dropcontact.MaxPolls)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, int64(300), cfg.Anthropic.MaxTokens)
	assert.Equal(t, "apollo_cookies.json", cfg.Apollo.CookiesPath)
	assert.False(t, cfg.Apollo.Headless)
	assert.Equal(t, 120, cfg.Apollo.LoginWaitSecs)
	assert.Equal(t, "linkedin_cookies.json", cfg.LinkedIn.CookiesPath)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 168, cfg.Store.CacheTTLHours)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	require.NoError(t, cfg.Validate("serve"))
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
server:
  port: 9090
pipeline:
  workers: 2
  export_xlsx: true
scoring:
  email: 50
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Pipeline.Workers)
	assert.True(t, cfg.Pipeline.ExportXLSX)
	assert.Equal(t, 50, cfg.Scoring.Email)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 30, cfg.Scoring.LinkedIn)
	assert.Equal(t, 500, cfg.Pipeline.MaxLeads)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  level: debug\n"), 0o644))
	t.Setenv("LEADGEN_LOG_LEVEL", "warn")
	t.Setenv("LEADGEN_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadLegacyEnvNames(t *testing.T) {
	chdirTemp(t)

	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("GOOGLE_CX", "cx-1")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("HIT_THRESHOLD", "60")
	t.Setenv("REQUEST_DELAY", "0.5")
	t.Setenv("MAX_LEADS", "25")
	t.Setenv("APOLLO_HEADLESS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "g-key", cfg.Google.Key)
	assert.Equal(t, "cx-1", cfg.Google.CX)
	assert.Equal(t, "sk-ant", cfg.Anthropic.Key)
	assert.Equal(t, 60, cfg.Pipeline.HitThreshold)
	assert.InDelta(t, 0.5, cfg.Pipeline.RequestDelaySecs, 0.001)
	assert.Equal(t, 25, cfg.Pipeline.MaxLeads)
	assert.True(t, cfg.Apollo.Headless)
}

func TestLoadPrefixedWinsOverLegacy(t *testing.T) {
	chdirTemp(t)

	t.Setenv("GOOGLE_API_KEY", "legacy")
	t.Setenv("LEADGEN_GOOGLE_KEY", "prefixed")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Google.Key)
}

func TestLoadBadYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [\n"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestDurations(t *testing.T) {
	cfg := &Config{
		Server:      ServerConfig{KeepaliveSecs: 30},
		Pipeline:    PipelineConfig{RequestDelaySecs: 1.5},
		Dropcontact: DropcontactConfig{PollIntervalSecs: 5},
		Apollo:      ApolloConfig{LoginWaitSecs: 120},
		Store:       StoreConfig{CacheTTLHours: 2},
	}
	assert.Equal(t, "30s", cfg.Server.Keepalive().String())
	assert.Equal(t, "1.5s", cfg.Pipeline.RequestDelay().String())
	assert.Equal(t, "5s", cfg.Dropcontact.PollInterval().String())
	assert.Equal(t, "2m0s", cfg.Apollo.LoginWait().String())
	assert.Equal(t, "2h0m0s", cfg.Store.CacheTTL().String())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	return &Config{
		Server:      ServerConfig{Port: 8000, KeepaliveSecs: 30},
		Pipeline:    PipelineConfig{Workers: 4, MaxLeads: 500, HitThreshold: 50, RequestDelaySecs: 2},
		Scoring:     ScoringConfig{Email: 40, LinkedIn: 30, Phone: 20, Website: 10},
		Dropcontact: DropcontactConfig{BatchSize: 50, PollIntervalSecs: 5, MaxPolls: 60},
		Store:       StoreConfig{Driver: "sqlite"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mode: "serve", mutate: func(*Config) {}},
		{name: "bad port", mode: "serve", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "port ignored for run", mode: "run", mutate: func(c *Config) { c.Server.Port = 0 }},
		{name: "no workers", mutate: func(c *Config) { c.Pipeline.Workers = 0 }, wantErr: "pipeline.workers"},
		{name: "negative max leads", mutate: func(c *Config) { c.Pipeline.MaxLeads = -1 }, wantErr: "pipeline.max_leads"},
		{name: "negative weight", mutate: func(c *Config) { c.Scoring.Phone = -5 }, wantErr: "scoring.phone"},
		{name: "batch size", mutate: func(c *Config) { c.Dropcontact.BatchSize = 0 }, wantErr: "dropcontact.batch_size"},
		{name: "driver", mutate: func(c *Config) { c.Store.Driver = "postgres" }, wantErr: "store.driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHealth(t *testing.T) {
	dir := t.TempDir()
	apollo := filepath.Join(dir, "apollo_cookies.json")
	require.NoError(t, os.WriteFile(apollo, []byte("[]"), 0o644))

	cfg := validDefaults()
	cfg.Google.Key = "g"
	cfg.Apollo.CookiesPath = apollo
	cfg.LinkedIn.CookiesPath = filepath.Join(dir, "missing.json")

	h := cfg.Health()
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, []string{"GOOGLE_CX", "ANTHROPIC_API_KEY"}, h.MissingKeys)
	assert.Equal(t, []string{"SERPER_API_KEY", "DROPCONTACT_API_KEY"}, h.MissingOptionalKeys)
	assert.True(t, h.ApolloCookies)
	assert.False(t, h.LinkedInCookies)
	assert.Equal(t, 50, h.HitThreshold)
	assert.Equal(t, 500, h.MaxLeadsDefault)
}

func TestHealth_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Google = GoogleConfig{Key: "g", CX: "cx"}
	cfg.Anthropic.Key = "sk"
	cfg.Serper.Key = "s"
	cfg.Dropcontact.Key = "d"

	h := cfg.Health()
	assert.Empty(t, h.MissingKeys)
	assert.NotNil(t, h.MissingKeys)
	assert.Empty(t, h.MissingOptionalKeys)
}

func TestValidate_StableErrorOrder(t *testing.T) {
	cfg := validDefaults()
	cfg.Scoring = ScoringConfig{Email: -1, LinkedIn: -1, Phone: -1, Website: -1}

	want := "scoring.email must be >= 0; scoring.linkedin must be >= 0; " +
		"scoring.phone must be >= 0; scoring.website must be >= 0"
	for range 20 {
		err := cfg.Validate("run")
		require.Error(t, err)
		assert.Contains(t, err.Error(), want)
	}
}
