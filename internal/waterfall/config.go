package waterfall

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Source names of the built-in providers.
const (
	SourceGoogleCSE  = "google_cse"
	SourceSerper     = "serper"
	SourceClearbit   = "clearbit"
	SourceDuckDuckGo = "duckduckgo"
)

// Config is the top-level waterfall configuration.
type Config struct {
	Fields map[string]FieldConfig `yaml:"fields"`
}

// FieldConfig configures the source chain for a specific field.
type FieldConfig struct {
	Sources []SourceConfig `yaml:"sources"`
}

// SourceConfig defines a source in a field's waterfall chain.
type SourceConfig struct {
	Name     string `yaml:"name"`
	Disabled bool   `yaml:"disabled"`
}

// DefaultConfig returns the built-in chains: profile links from Google
// Custom Search then Serper, websites from Clearbit then DuckDuckGo.
func DefaultConfig() *Config {
	return &Config{
		Fields: map[string]FieldConfig{
			model.FieldLinkedInURL: {Sources: []SourceConfig{
				{Name: SourceGoogleCSE},
				{Name: SourceSerper},
			}},
			model.FieldWebsite: {Sources: []SourceConfig{
				{Name: SourceClearbit},
				{Name: SourceDuckDuckGo},
			}},
		},
	}
}

// LoadConfig reads waterfall config from a YAML file. Fields the file does
// not mention keep their default chain.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "waterfall: read config %s", path)
	}

	// The YAML has a top-level "waterfall" key
	var wrapper struct {
		Waterfall Config `yaml:"waterfall"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "waterfall: parse config")
	}

	cfg := DefaultConfig()
	for key, fc := range wrapper.Waterfall.Fields {
		for _, src := range fc.Sources {
			if src.Name == "" {
				return nil, eris.Errorf("waterfall: field %s has a source without a name", key)
			}
		}
		cfg.Fields[key] = fc
	}
	return cfg, nil
}

// GetFieldConfig returns the config for a field. Unknown fields have no
// sources.
func (c *Config) GetFieldConfig(fieldKey string) FieldConfig {
	return c.Fields[fieldKey]
}

// SourceNames returns the enabled sources of a field in priority order.
func (c *Config) SourceNames(fieldKey string) []string {
	var names []string
	for _, src := range c.GetFieldConfig(fieldKey).Sources {
		if !src.Disabled {
			names = append(names, src.Name)
		}
	}
	return names
}
