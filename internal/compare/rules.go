package compare

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules tunes per-field comparison behavior. Zero values fall back to the
// defaults applied by LoadRules and DefaultRules.
type Rules struct {
	Title    TitleRules  `yaml:"title"`
	Skills   SkillsRules `yaml:"skills"`
	Disabled []string    `yaml:"disabled"`
}

// TitleRules configures the title diagnostic output.
type TitleRules struct {
	// MaxDiffPositions caps how many differing rune positions a title
	// mismatch message reports.
	MaxDiffPositions int `yaml:"max_diff_positions"`
}

// SkillsRules configures the presence-based skills comparison.
type SkillsRules struct {
	// MissingTolerance is the fraction of database skills allowed to be
	// absent from the index before the check fails. Tagging noise on the
	// index side is non-deterministic; product has not fixed a threshold,
	// so it stays configurable and defaults to zero.
	MissingTolerance float64 `yaml:"missing_tolerance"`
}

// DefaultRules returns the rules used when no rules file is configured.
func DefaultRules() Rules {
	return Rules{
		Title: TitleRules{MaxDiffPositions: 10},
	}
}

// LoadRules reads comparison rules from a YAML file.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, eris.Wrapf(err, "compare: read rules %s", path)
	}

	// The YAML has a top-level "comparison" key
	var wrapper struct {
		Comparison Rules `yaml:"comparison"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Rules{}, eris.Wrap(err, "compare: parse rules")
	}

	r := wrapper.Comparison
	if r.Title.MaxDiffPositions == 0 {
		r.Title.MaxDiffPositions = DefaultRules().Title.MaxDiffPositions
	}
	return r, nil
}

// Enabled reports whether the check for a field name should run.
func (r Rules) Enabled(field string) bool {
	for _, d := range r.Disabled {
		if d == field {
			return false
		}
	}
	return true
}
