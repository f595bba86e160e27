// Package progress derives structured progress events from the log output
// of pipeline stages.
package progress

import (
	"math"
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// weightTolerance absorbs float rounding when summing configured weights.
const weightTolerance = 1e-9

// Stage numbers of the default pipeline.
const (
	StageInput  = 1
	StageFetch  = 2
	StageEnrich = 3
	StageScore  = 4
	StageDeepen = 5
)

// Stage describes one pipeline phase for progress accounting.
type Stage struct {
	Index   int     `yaml:"index"`
	Name    string  `yaml:"name"`
	Weight  float64 `yaml:"weight"`
	Pattern string  `yaml:"pattern"`

	re *regexp.Regexp
}

// DefaultStages returns the five-stage layout of the lead pipeline. The
// first stage (input) has no detection pattern: jobs start there.
func DefaultStages() []Stage {
	return []Stage{
		{Index: StageInput, Name: "Input URL", Weight: 0.05},
		{Index: StageFetch, Name: "Scraping listing", Weight: 0.25,
			Pattern: `(?i)Step 2|Scraping Apollo|apollo|page \d+`},
		{Index: StageEnrich, Name: "Enrichment (search + Dropcontact)", Weight: 0.30,
			Pattern: `(?i)Step 3|Google enrichment|dropcontact|batch \d+`},
		{Index: StageScore, Name: "Hit scoring", Weight: 0.05,
			Pattern: `(?i)Step 4|hit score`},
		{Index: StageDeepen, Name: "AI enrichment", Weight: 0.35,
			Pattern: `(?i)Step 5|GPT|Claude|LinkedIn profile|Scraping hit lead`},
	}
}

// LoadStages reads a stage layout from a YAML file with a top-level
// "stages" list and validates it.
func LoadStages(path string) ([]Stage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "progress: read stages %s", path)
	}

	var wrapper struct {
		Stages []Stage `yaml:"stages"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "progress: parse stages")
	}

	if err := ValidateStages(wrapper.Stages); err != nil {
		return nil, err
	}
	return wrapper.Stages, nil
}

// ValidateStages checks that stages are numbered 1..N in order, that every
// pattern compiles, and that the weights sum to 1.0.
func ValidateStages(stages []Stage) error {
	if len(stages) == 0 {
		return eris.New("progress: no stages configured")
	}

	sum := 0.0
	for i, s := range stages {
		if s.Index != i+1 {
			return eris.Errorf("progress: stage %q has index %d, want %d", s.Name, s.Index, i+1)
		}
		if s.Weight < 0 {
			return eris.Errorf("progress: stage %d has negative weight", s.Index)
		}
		if s.Pattern != "" {
			if _, err := regexp.Compile(s.Pattern); err != nil {
				return eris.Wrapf(err, "progress: stage %d pattern", s.Index)
			}
		}
		sum += s.Weight
	}

	if math.Abs(sum-1.0) > weightTolerance {
		return eris.Errorf("progress: stage weights sum to %.6f, want 1.0", sum)
	}
	return nil
}

// compile returns a copy of stages with their patterns compiled. Callers
// must validate first.
func compile(stages []Stage) []Stage {
	out := make([]Stage, len(stages))
	copy(out, stages)
	for i := range out {
		if out[i].Pattern != "" {
			out[i].re = regexp.MustCompile(out[i].Pattern)
		}
	}
	return out
}
