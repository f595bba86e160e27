package config

import "os"

// Health summarizes which credentials and cookie files are available.
type Health struct {
	Status              string   `json:"status"`
	MissingKeys         []string `json:"missing_keys"`
	MissingOptionalKeys []string `json:"missing_optional_keys"`
	ApolloCookies       bool     `json:"apollo_cookies"`
	LinkedInCookies     bool     `json:"linkedin_cookies"`
	HitThreshold        int      `json:"hit_threshold"`
	MaxLeadsDefault     int      `json:"max_leads_default"`
}

// MissingKeys lists the required credentials that are unset, by their
// environment variable names.
func (c *Config) MissingKeys() []string {
	missing := []string{}
	if c.Google.Key == "" {
		missing = append(missing, "GOOGLE_API_KEY")
	}
	if c.Google.CX == "" {
		missing = append(missing, "GOOGLE_CX")
	}
	if c.Anthropic.Key == "" {
		missing = append(missing, "ANTHROPIC_API_KEY")
	}
	return missing
}

// MissingOptionalKeys lists unset credentials whose absence only degrades
// enrichment.
func (c *Config) MissingOptionalKeys() []string {
	missing := []string{}
	if c.Serper.Key == "" {
		missing = append(missing, "SERPER_API_KEY")
	}
	if c.Dropcontact.Key == "" {
		missing = append(missing, "DROPCONTACT_API_KEY")
	}
	return missing
}

// Health reports configuration health. It never fails.
func (c *Config) Health() Health {
	return Health{
		Status:              "ok",
		MissingKeys:         c.MissingKeys(),
		MissingOptionalKeys: c.MissingOptionalKeys(),
		ApolloCookies:       fileExists(c.Apollo.CookiesPath),
		LinkedInCookies:     fileExists(c.LinkedIn.CookiesPath),
		HitThreshold:        c.Pipeline.HitThreshold,
		MaxLeadsDefault:     c.Pipeline.MaxLeads,
	}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
