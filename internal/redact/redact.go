package redact

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// Rule is one pattern-to-placeholder substitution. Rules are applied in
// order; earlier rules claim text spans first.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// Redactor scrubs personally identifiable information from message text
// before it reaches the model, the moderators, or the interaction log.
type Redactor struct {
	rules []Rule
}

var (
	emailPattern  = regexp.MustCompile(`\b[\w.-]+@[\w.-]+\.\w{2,}\b`)
	numberPattern = regexp.MustCompile(`\b\d{6,}\b`)
)

// New returns a Redactor with the built-in email and long-number rules.
func New() *Redactor {
	return &Redactor{
		rules: []Rule{
			{Name: "email", Pattern: emailPattern, Replacement: "[REDACTED_EMAIL]"},
			{Name: "number", Pattern: numberPattern, Replacement: "[REDACTED_NUMBER]"},
		},
	}
}

// ruleFile is the YAML shape of an extra-rules file.
type ruleFile struct {
	Rules []struct {
		Name        string `yaml:"name"`
		Pattern     string `yaml:"pattern"`
		Replacement string `yaml:"replacement"`
	} `yaml:"rules"`
}

// LoadRules appends rules from a YAML file. Extra rules run after the
// built-in ones, so built-ins keep priority on overlapping spans.
func (r *Redactor) LoadRules(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read redaction rules %s: %w", path, err)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return fmt.Errorf("cannot parse redaction rules %s: %w", path, err)
	}
	for _, raw := range rf.Rules {
		if raw.Name == "" || raw.Pattern == "" || raw.Replacement == "" {
			return fmt.Errorf("redaction rule in %s missing name, pattern, or replacement", path)
		}
		re, err := regexp.Compile(raw.Pattern)
		if err != nil {
			return fmt.Errorf("redaction rule %q: %w", raw.Name, err)
		}
		r.rules = append(r.rules, Rule{Name: raw.Name, Pattern: re, Replacement: raw.Replacement})
	}
	return nil
}

type span struct {
	start, end  int
	replacement string
}

// Redact replaces every matched span with its rule's placeholder. Spans are
// claimed left to right in rule order, so no two replacements overlap.
// Placeholders contain neither digits nor "@", which makes the operation
// idempotent: redacting already-redacted text changes nothing.
func (r *Redactor) Redact(text string) string {
	var claimed []span
	for _, rule := range r.rules {
		for _, m := range rule.Pattern.FindAllStringIndex(text, -1) {
			if overlaps(claimed, m[0], m[1]) {
				continue
			}
			claimed = append(claimed, span{start: m[0], end: m[1], replacement: rule.Replacement})
		}
	}
	if len(claimed) == 0 {
		return text
	}
	sort.Slice(claimed, func(i, j int) bool { return claimed[i].start < claimed[j].start })

	var out []byte
	prev := 0
	for _, s := range claimed {
		out = append(out, text[prev:s.start]...)
		out = append(out, s.replacement...)
		prev = s.end
	}
	out = append(out, text[prev:]...)
	return string(out)
}

func overlaps(claimed []span, start, end int) bool {
	for _, s := range claimed {
		if start < s.end && end > s.start {
			return true
		}
	}
	return false
}
