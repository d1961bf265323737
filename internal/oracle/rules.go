package oracle

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/TarqGaur/Perfect-Package-Downloader/internal/types"
)

// Rule is a static remediation: a known-bad package combination and
// the commands that fix it. Rules are the Tier-1 fallback when the
// oracle is unreachable, and the first thing tried even when it isn't.
type Rule struct {
	Name         string   `yaml:"name"`
	Match        []string `yaml:"match"` // all substrings must appear in the request
	Description  string   `yaml:"description"`
	Commands     []string `yaml:"commands"`
	Undo         []string `yaml:"undo,omitempty"`
	Verification string   `yaml:"verification,omitempty"`
}

// Matches reports whether every match term appears in some requested
// package spec (case-insensitive).
func (r *Rule) Matches(packages []string) bool {
	if len(r.Match) == 0 {
		return false
	}
	joined := strings.ToLower(strings.Join(packages, " "))
	for _, term := range r.Match {
		if !strings.Contains(joined, strings.ToLower(term)) {
			return false
		}
	}
	return true
}

// DefaultRules returns the built-in known-incompatibility table
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:         "tensorflow-numpy-pin",
			Match:        []string{"tensorflow==2.10", "numpy==1.24"},
			Description:  "tensorflow 2.10 requires numpy<1.24; pin numpy below 1.24",
			Commands:     []string{`pip install "numpy<1.24"`},
			Verification: "pip check",
		},
		{
			Name:         "numpy2-pandas-pin",
			Match:        []string{"numpy==2", "pandas==1"},
			Description:  "pandas 1.x wheels are built against numpy 1.x; pin numpy below 2",
			Commands:     []string{`pip install "numpy<2"`},
			Verification: "pip check",
		},
		{
			Name:         "tensorflow-protobuf-pin",
			Match:        []string{"tensorflow==2.9", "protobuf==4"},
			Description:  "tensorflow 2.9 is incompatible with protobuf 4; pin protobuf below 3.20",
			Commands:     []string{`pip install "protobuf<3.20"`},
			Verification: "pip check",
		},
	}
}

// LoadRules reads user-supplied rules from a YAML file and appends
// them after the built-in table.
func LoadRules(path string) ([]Rule, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read rules file: %w", err)
	}

	var user []Rule
	if err := yaml.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("cannot parse rules file: %w", err)
	}
	return append(rules, user...), nil
}

// StaticSolutions converts every matching rule into a Tier-1 solution
func StaticSolutions(rules []Rule, packages []string) []types.Solution {
	var solutions []types.Solution
	for _, rule := range rules {
		if !rule.Matches(packages) {
			continue
		}
		solutions = append(solutions, types.Solution{
			Description:      rule.Description,
			Commands:         rule.Commands,
			UndoCommands:     rule.Undo,
			Tier:             types.TierStatic,
			Confidence:       types.ConfidenceHigh,
			VerificationStep: rule.Verification,
			SourceReference:  "static-rule:" + rule.Name,
		})
	}
	return solutions
}
