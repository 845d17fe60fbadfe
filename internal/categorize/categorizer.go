// Package categorize assigns category labels to statement lines using an
// ordered list of substring rules.
package categorize

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var embeddedRules []byte

// DefaultLabel is returned when no rule matches.
const DefaultLabel = "Other"

// Classifier labels a transaction from its description and type text.
type Classifier interface {
	Classify(description, txType string) string
}

// Predicate reports whether a rule applies. Both arguments are lower-cased.
type Predicate func(description, txType string) bool

// Rule pairs a predicate with the label it assigns.
type Rule struct {
	Label string
	Match Predicate
}

// RuleSet is an ordered Classifier; the first matching rule wins.
type RuleSet struct {
	rules    []Rule
	fallback string
}

// NewRuleSet builds a RuleSet from rules in evaluation order.
func NewRuleSet(rules []Rule) *RuleSet {
	copied := make([]Rule, len(rules))
	copy(copied, rules)
	return &RuleSet{rules: copied, fallback: DefaultLabel}
}

// Classify implements Classifier.
func (s *RuleSet) Classify(description, txType string) string {
	desc := strings.ToLower(description)
	kind := strings.ToLower(txType)
	for _, r := range s.rules {
		if r.Match(desc, kind) {
			return r.Label
		}
	}
	return s.fallback
}

// Labels returns the rule labels in evaluation order followed by the default.
func (s *RuleSet) Labels() []string {
	labels := make([]string, 0, len(s.rules)+1)
	for _, r := range s.rules {
		labels = append(labels, r.Label)
	}
	return append(labels, s.fallback)
}

// DescriptionContains matches when the description holds any of terms.
func DescriptionContains(terms ...string) Predicate {
	lowered := lowerAll(terms)
	return func(description, _ string) bool {
		return containsAny(description, lowered)
	}
}

// TypeContains matches when the transaction type holds any of terms.
func TypeContains(terms ...string) Predicate {
	lowered := lowerAll(terms)
	return func(_, txType string) bool {
		return containsAny(txType, lowered)
	}
}

func lowerAll(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = strings.ToLower(t)
	}
	return out
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// ruleFile is the YAML layout of a rules file.
type ruleFile struct {
	Rules []struct {
		Label    string   `yaml:"label"`
		Field    string   `yaml:"field"`
		Contains []string `yaml:"contains"`
	} `yaml:"rules"`
}

// Parse builds a RuleSet from YAML rules. Field is "description" or "type".
func Parse(data []byte) (*RuleSet, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML rules: %w", err)
	}

	rules := make([]Rule, 0, len(file.Rules))
	for i, r := range file.Rules {
		if strings.TrimSpace(r.Label) == "" {
			return nil, fmt.Errorf("rule %d: label cannot be empty", i)
		}

		terms := make([]string, 0, len(r.Contains))
		for _, term := range r.Contains {
			if strings.TrimSpace(term) != "" {
				terms = append(terms, term)
			}
		}
		if len(terms) == 0 {
			return nil, fmt.Errorf("rule %d (%s): contains needs at least one term", i, r.Label)
		}

		var match Predicate
		switch strings.ToLower(r.Field) {
		case "", "description":
			match = DescriptionContains(terms...)
		case "type":
			match = TypeContains(terms...)
		default:
			return nil, fmt.Errorf("rule %d (%s): unknown field %q", i, r.Label, r.Field)
		}

		rules = append(rules, Rule{Label: r.Label, Match: match})
	}

	return NewRuleSet(rules), nil
}

// Default returns the built-in rule set.
func Default() *RuleSet {
	set, err := Parse(embeddedRules)
	if err != nil {
		panic(fmt.Sprintf("embedded rules are invalid: %v", err))
	}
	return set
}

// LoadFromFile reads a YAML rules file.
func LoadFromFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	set, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules from %q: %w", path, err)
	}
	return set, nil
}

// Load returns the rules at path, or the built-in set when path is empty.
func Load(path string) (*RuleSet, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFromFile(path)
}
