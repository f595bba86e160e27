package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	Scoring     ScoringConfig     `yaml:"scoring" mapstructure:"scoring"`
	Google      GoogleConfig      `yaml:"google" mapstructure:"google"`
	Serper      SerperConfig      `yaml:"serper" mapstructure:"serper"`
	Clearbit    ClearbitConfig    `yaml:"clearbit" mapstructure:"clearbit"`
	DuckDuckGo  DuckDuckGoConfig  `yaml:"duckduckgo" mapstructure:"duckduckgo"`
	Dropcontact DropcontactConfig `yaml:"dropcontact" mapstructure:"dropcontact"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Apollo      ApolloConfig      `yaml:"apollo" mapstructure:"apollo"`
	LinkedIn    LinkedInConfig    `yaml:"linkedin" mapstructure:"linkedin"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Resilience  ResilienceConfig  `yaml:"resilience" mapstructure:"resilience"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port          int      `yaml:"port" mapstructure:"port"`
	CORSOrigins   []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	KeepaliveSecs int      `yaml:"keepalive_secs" mapstructure:"keepalive_secs"`
}

// Keepalive returns the SSE ping interval.
func (c ServerConfig) Keepalive() time.Duration {
	return time.Duration(c.KeepaliveSecs) * time.Second
}

// PipelineConfig configures job execution.
type PipelineConfig struct {
	Workers          int     `yaml:"workers" mapstructure:"workers"`
	MaxLeads         int     `yaml:"max_leads" mapstructure:"max_leads"`
	HitThreshold     int     `yaml:"hit_threshold" mapstructure:"hit_threshold"`
	RequestDelaySecs float64 `yaml:"request_delay_secs" mapstructure:"request_delay_secs"`
	OutputDir        string  `yaml:"output_dir" mapstructure:"output_dir"`
	ExportXLSX       bool    `yaml:"export_xlsx" mapstructure:"export_xlsx"`
	StagesFile       string  `yaml:"stages_file" mapstructure:"stages_file"`
	WaterfallFile    string  `yaml:"waterfall_file" mapstructure:"waterfall_file"`
}

// RequestDelay returns the pause between consecutive search requests.
func (c PipelineConfig) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelaySecs * float64(time.Second))
}

// ScoringConfig holds the hit score weight of each contact channel.
type ScoringConfig struct {
	Email    int `yaml:"email" mapstructure:"email"`
	LinkedIn int `yaml:"linkedin" mapstructure:"linkedin"`
	Phone    int `yaml:"phone" mapstructure:"phone"`
	Website  int `yaml:"website" mapstructure:"website"`
}

// GoogleConfig holds Custom Search credentials.
type GoogleConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	CX      string `yaml:"cx" mapstructure:"cx"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SerperConfig holds Serper credentials.
type SerperConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ClearbitConfig configures the company autocomplete lookup.
type ClearbitConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// DuckDuckGoConfig configures the HTML search fallback.
type DuckDuckGoConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// DropcontactConfig configures batch email and phone enrichment.
type DropcontactConfig struct {
	Key              string `yaml:"key" mapstructure:"key"`
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	BatchSize        int    `yaml:"batch_size" mapstructure:"batch_size"`
	PollIntervalSecs int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	MaxPolls         int    `yaml:"max_polls" mapstructure:"max_polls"`
}

// PollInterval returns the wait between result polls.
func (c DropcontactConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

// AnthropicConfig holds Claude API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ApolloConfig configures the listing scraper.
type ApolloConfig struct {
	CookiesPath   string `yaml:"cookies_path" mapstructure:"cookies_path"`
	Headless      bool   `yaml:"headless" mapstructure:"headless"`
	LoginWaitSecs int    `yaml:"login_wait_secs" mapstructure:"login_wait_secs"`
}

// LoginWait returns how long to wait for a manual login.
func (c ApolloConfig) LoginWait() time.Duration {
	return time.Duration(c.LoginWaitSecs) * time.Second
}

// LinkedInConfig configures profile scraping.
type LinkedInConfig struct {
	CookiesPath string `yaml:"cookies_path" mapstructure:"cookies_path"`
}

// StoreConfig configures the lookup cache.
type StoreConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	Path          string `yaml:"path" mapstructure:"path"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// CacheTTL returns how long cached lookups stay valid.
func (c StoreConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// ResilienceConfig configures retries and circuit breakers for lookup APIs.
type ResilienceConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// legacyEnv maps config keys to the unprefixed variable names earlier
// deployments used. The prefixed name still wins when both are set.
var legacyEnv = map[string]string{
	"google.key":                  "GOOGLE_API_KEY",
	"google.cx":                   "GOOGLE_CX",
	"serper.key":                  "SERPER_API_KEY",
	"dropcontact.key":             "DROPCONTACT_API_KEY",
	"dropcontact.batch_size":      "DROPCONTACT_BATCH_SIZE",
	"anthropic.key":               "ANTHROPIC_API_KEY",
	"apollo.cookies_path":         "APOLLO_COOKIES_PATH",
	"apollo.headless":             "APOLLO_HEADLESS",
	"linkedin.cookies_path":       "LINKEDIN_COOKIES_PATH",
	"pipeline.request_delay_secs": "REQUEST_DELAY",
	"pipeline.hit_threshold":      "HIT_THRESHOLD",
	"pipeline.max_leads":          "MAX_LEADS",
}

const envPrefix = "LEADGEN"

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})
	v.SetDefault("server.keepalive_secs", 30)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.max_leads", 500)
	v.SetDefault("pipeline.hit_threshold", 50)
	v.SetDefault("pipeline.request_delay_secs", 2.0)
	v.SetDefault("pipeline.output_dir", "output")
	v.SetDefault("pipeline.export_xlsx", false)
	v.SetDefault("pipeline.stages_file", "")
	v.SetDefault("pipeline.waterfall_file", "")
	v.SetDefault("scoring.email", 40)
	v.SetDefault("scoring.linkedin", 30)
	v.SetDefault("scoring.phone", 20)
	v.SetDefault("scoring.website", 10)
	v.SetDefault("google.base_url", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("serper.base_url", "https://google.serper.dev")
	v.SetDefault("clearbit.base_url", "https://autocomplete.clearbit.com/v1")
	v.SetDefault("duckduckgo.base_url", "https://html.duckduckgo.com/html/")
	v.SetDefault("dropcontact.base_url", "https://api.dropcontact.com")
	v.SetDefault("dropcontact.batch_size", 50)
	v.SetDefault("dropcontact.poll_interval_secs", 5)
	v.SetDefault("dropcontact.max_polls", 60)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 300)
	v.SetDefault("apollo.cookies_path", "apollo_cookies.json")
	v.SetDefault("apollo.headless", false)
	v.SetDefault("apollo.login_wait_secs", 120)
	v.SetDefault("linkedin.cookies_path", "linkedin_cookies.json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "output/cache.db")
	v.SetDefault("store.cache_ttl_hours", 168)
	v.SetDefault("resilience.max_attempts", 3)
	v.SetDefault("resilience.initial_backoff_ms", 500)
	v.SetDefault("resilience.max_backoff_ms", 10000)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks settings that would otherwise fail at run time. mode
// "serve" also checks the listen port.
func (c *Config) Validate(mode string) error {
	var errs []string

	if mode == "serve" && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if c.Pipeline.Workers < 1 {
		errs = append(errs, "pipeline.workers must be >= 1")
	}
	if c.Pipeline.MaxLeads < 0 {
		errs = append(errs, "pipeline.max_leads must be >= 0")
	}
	if c.Pipeline.RequestDelaySecs < 0 {
		errs = append(errs, "pipeline.request_delay_secs must be >= 0")
	}
	for _, w := range []struct {
		name   string
		weight int
	}{
		{"scoring.email", c.Scoring.Email},
		{"scoring.linkedin", c.Scoring.LinkedIn},
		{"scoring.phone", c.Scoring.Phone},
		{"scoring.website", c.Scoring.Website},
	} {
		if w.weight < 0 {
			errs = append(errs, w.name+" must be >= 0")
		}
	}
	if c.Dropcontact.BatchSize < 1 {
		errs = append(errs, "dropcontact.batch_size must be >= 1")
	}
	if c.Dropcontact.MaxPolls < 1 {
		errs = append(errs, "dropcontact.max_polls must be >= 1")
	}
	if c.Server.KeepaliveSecs < 1 {
		errs = append(errs, "server.keepalive_secs must be >= 1")
	}
	switch c.Store.Driver {
	case "sqlite", "none":
	default:
		errs = append(errs, "store.driver must be sqlite or none")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
