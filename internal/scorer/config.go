// Package scorer computes hit scores for enriched leads.
package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/config"
)

// DefaultScoringConfig returns the contact channel weights. They sum to 100.
func DefaultScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		Email:    40,
		LinkedIn: 30,
		Phone:    20,
		Website:  10,
	}
}

// MaxScore returns the score of a lead with every channel present.
func MaxScore(c config.ScoringConfig) int {
	return c.Email + c.LinkedIn + c.Phone + c.Website
}

// ValidateConfig checks that weights are non-negative and that the hit
// threshold is reachable.
func ValidateConfig(c config.ScoringConfig, threshold int) error {
	var errs []string

	weights := map[string]int{
		"email":    c.Email,
		"linkedin": c.LinkedIn,
		"phone":    c.Phone,
		"website":  c.Website,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s weight must be >= 0", name))
		}
	}

	if threshold < 0 {
		errs = append(errs, "hit threshold must be >= 0")
	}
	if top := MaxScore(c); threshold > top {
		errs = append(errs, fmt.Sprintf("hit threshold %d exceeds max score %d", threshold, top))
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
