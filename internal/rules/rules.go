// Package rules implements the blocklist decision engine. Evaluation is pure:
// no I/O, deterministic for a fixed snapshot, safe to call from tests in
// parallel as long as each caller owns its IgnoredPatterns.
package rules

import (
	"regexp"
	"strings"

	"hn_cleanser/internal/model"
)

// Snapshot is a read-only view of the three blocklists for one cleanse pass.
type Snapshot struct {
	Titles []model.TitleRule
	Sites  []model.SiteRule
	Users  []model.UserRule
}

// Verdict is the outcome of evaluating one story against a Snapshot.
type Verdict struct {
	Cleanse    bool
	CleansedBy string
}

// IgnoredPatterns remembers regex rule patterns that failed to compile so
// they are attempted exactly once per process lifetime.
type IgnoredPatterns struct {
	set map[string]struct{}
}

// NewIgnoredPatterns creates an empty quarantine set.
func NewIgnoredPatterns() *IgnoredPatterns {
	return &IgnoredPatterns{set: make(map[string]struct{})}
}

// Has reports whether the pattern was previously quarantined.
func (p *IgnoredPatterns) Has(pattern string) bool {
	_, ok := p.set[pattern]
	return ok
}

// Add quarantines a pattern.
func (p *IgnoredPatterns) Add(pattern string) {
	p.set[pattern] = struct{}{}
}

// Len returns the number of quarantined patterns.
func (p *IgnoredPatterns) Len() int {
	return len(p.set)
}

// Evaluate decides whether a story should be cleansed. Title rules are
// checked first in stored order, then site rules, then user rules; the first
// match wins. A regex rule that fails to compile is quarantined in ignored
// and skipped, never aborting the evaluation.
//
// Advertisements are deliberately not handled here: hiding ads is the
// caller's policy, keeping the evaluator independent of ad detection.
func Evaluate(title, user, source string, snap Snapshot, ignored *IgnoredPatterns) Verdict {
	for _, rule := range snap.Titles {
		if titleMatches(title, rule, ignored) {
			return Verdict{Cleanse: true, CleansedBy: model.CleansedByTitles}
		}
	}

	for _, rule := range snap.Sites {
		if rule.Site == source {
			return Verdict{Cleanse: true, CleansedBy: model.CleansedBySites}
		}
	}

	for _, rule := range snap.Users {
		if rule.User == user {
			return Verdict{Cleanse: true, CleansedBy: model.CleansedByUsers}
		}
	}

	return Verdict{}
}

func titleMatches(title string, rule model.TitleRule, ignored *IgnoredPatterns) bool {
	switch rule.Kind {
	case model.TitleRuleText:
		return strings.Contains(strings.ToUpper(title), strings.ToUpper(rule.Value))
	case model.TitleRuleKeyword:
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(rule.Value) + `\b`)
		if err != nil {
			return false
		}
		return re.MatchString(title)
	case model.TitleRuleRegex:
		if ignored.Has(rule.Value) {
			return false
		}
		re, err := regexp.Compile(rule.Value)
		if err != nil {
			ignored.Add(rule.Value)
			return false
		}
		return re.MatchString(title)
	}
	return false
}

// ValidateRegex checks whether a pattern is a valid regular expression.
// Used by operator tooling before a regex rule is stored.
func ValidateRegex(pattern string) error {
	_, err := regexp.Compile(pattern)
	return err
}
