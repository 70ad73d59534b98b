package rules

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"hn_cleanser/internal/model"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		user   string
		source string
		snap   Snapshot
		want   Verdict
	}{
		{
			name:  "empty snapshot passes everything",
			title: "anything", user: "anyone", source: "anywhere.com",
			snap: Snapshot{},
			want: Verdict{},
		},
		{
			name:  "text rule matches substring case-insensitively",
			title: "Company Announces Layoffs", user: "alice", source: "example.com",
			snap: Snapshot{Titles: []model.TitleRule{{Kind: model.TitleRuleText, Value: "layoffs"}}},
			want: Verdict{Cleanse: true, CleansedBy: model.CleansedByTitles},
		},
		{
			name:  "text rule does not match absent substring",
			title: "Company Announces Growth", user: "alice", source: "example.com",
			snap: Snapshot{Titles: []model.TitleRule{{Kind: model.TitleRuleText, Value: "layoffs"}}},
			want: Verdict{},
		},
		{
			name:  "keyword rule matches whole word",
			title: "AI takes over jobs", user: "bob", source: "techdaily.com",
			snap: Snapshot{Titles: []model.TitleRule{{Kind: model.TitleRuleKeyword, Value: "AI"}}},
			want: Verdict{Cleanse: true, CleansedBy: model.CleansedByTitles},
		},
		{
			name:  "keyword rule does not match inside a longer word",
			title: "Aidan's new startup", user: "bob", source: "techdaily.com",
			snap: Snapshot{Titles: []model.TitleRule{{Kind: model.TitleRuleKeyword, Value: "AI"}}},
			want: Verdict{},
		},
		{
			name:  "keyword rule is case-insensitive",
			title: "ai will eat the world", user: "bob", source: "techdaily.com",
			snap: Snapshot{Titles: []model.TitleRule{{Kind: model.TitleRuleKeyword, Value: "AI"}}},
			want: Verdict{Cleanse: true, CleansedBy: model.CleansedByTitles},
		},
		{
			name:  "regex rule matches verbatim pattern",
			title: "Bitcoin hits $100k again", user: "carol", source: "coindesk.com",
			snap: Snapshot{Titles: []model.TitleRule{{Kind: model.TitleRuleRegex, Value: `\$\d+k`}}},
			want: Verdict{Cleanse: true, CleansedBy: model.CleansedByTitles},
		},
		{
			name:  "regex rule is case-sensitive",
			title: "bitcoin news", user: "carol", source: "coindesk.com",
			snap: Snapshot{Titles: []model.TitleRule{{Kind: model.TitleRuleRegex, Value: "Bitcoin"}}},
			want: Verdict{},
		},
		{
			name:  "site rule matches source exactly",
			title: "Show HN: My weekend project", user: "dave", source: "github.com",
			snap: Snapshot{Sites: []model.SiteRule{{Site: "github.com"}}},
			want: Verdict{Cleanse: true, CleansedBy: model.CleansedBySites},
		},
		{
			name:  "site rule is case-sensitive",
			title: "Show HN: My weekend project", user: "dave", source: "GitHub.com",
			snap: Snapshot{Sites: []model.SiteRule{{Site: "github.com"}}},
			want: Verdict{},
		},
		{
			name:  "user rule matches author exactly",
			title: "Whatever", user: "troll42", source: "example.com",
			snap: Snapshot{Users: []model.UserRule{{User: "troll42"}}},
			want: Verdict{Cleanse: true, CleansedBy: model.CleansedByUsers},
		},
		{
			name:  "title rules take precedence over site rules",
			title: "Company Announces Layoffs", user: "alice", source: "example.com",
			snap: Snapshot{
				Titles: []model.TitleRule{{Kind: model.TitleRuleText, Value: "layoffs"}},
				Sites:  []model.SiteRule{{Site: "example.com"}},
			},
			want: Verdict{Cleanse: true, CleansedBy: model.CleansedByTitles},
		},
		{
			name:  "site rules take precedence over user rules",
			title: "Harmless title", user: "troll42", source: "example.com",
			snap: Snapshot{
				Sites: []model.SiteRule{{Site: "example.com"}},
				Users: []model.UserRule{{User: "troll42"}},
			},
			want: Verdict{Cleanse: true, CleansedBy: model.CleansedBySites},
		},
		{
			name:  "title rules checked in stored order",
			title: "Layoffs and AI", user: "alice", source: "example.com",
			snap: Snapshot{Titles: []model.TitleRule{
				{Kind: model.TitleRuleKeyword, Value: "AI"},
				{Kind: model.TitleRuleText, Value: "layoffs"},
			}},
			want: Verdict{Cleanse: true, CleansedBy: model.CleansedByTitles},
		},
		{
			name:  "malformed regex does not block later rules",
			title: "Company Announces Layoffs", user: "alice", source: "example.com",
			snap: Snapshot{Titles: []model.TitleRule{
				{Kind: model.TitleRuleRegex, Value: "(unbalanced"},
				{Kind: model.TitleRuleText, Value: "layoffs"},
			}},
			want: Verdict{Cleanse: true, CleansedBy: model.CleansedByTitles},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ignored := NewIgnoredPatterns()
			got := Evaluate(tt.title, tt.user, tt.source, tt.snap, ignored)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Evaluate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	snap := Snapshot{
		Titles: []model.TitleRule{
			{Kind: model.TitleRuleText, Value: "layoffs"},
			{Kind: model.TitleRuleRegex, Value: "(bad"},
		},
		Sites: []model.SiteRule{{Site: "example.com"}},
		Users: []model.UserRule{{User: "troll42"}},
	}
	ignored := NewIgnoredPatterns()

	first := Evaluate("Company Announces Layoffs", "alice", "example.com", snap, ignored)
	second := Evaluate("Company Announces Layoffs", "alice", "example.com", snap, ignored)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated evaluation differs (-first +second):\n%s", diff)
	}
}

func TestMalformedRegexIsQuarantinedOnce(t *testing.T) {
	snap := Snapshot{Titles: []model.TitleRule{{Kind: model.TitleRuleRegex, Value: "(unbalanced"}}}
	ignored := NewIgnoredPatterns()

	got := Evaluate("anything", "anyone", "anywhere.com", snap, ignored)
	if diff := cmp.Diff(Verdict{}, got); diff != "" {
		t.Errorf("verdict mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(1, ignored.Len()); diff != "" {
		t.Errorf("ignored set size mismatch (-want +got):\n%s", diff)
	}
	if !ignored.Has("(unbalanced") {
		t.Error("expected pattern to be quarantined after first failure")
	}

	// Second evaluation with the same snapshot skips the pattern without
	// recompiling it.
	got = Evaluate("anything", "anyone", "anywhere.com", snap, ignored)
	if diff := cmp.Diff(Verdict{}, got); diff != "" {
		t.Errorf("verdict mismatch on second call (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(1, ignored.Len()); diff != "" {
		t.Errorf("ignored set grew on second call (-want +got):\n%s", diff)
	}
}

func TestValidateRegex(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		wantErr bool
	}{
		{name: "valid simple", pattern: "hello", wantErr: false},
		{name: "valid alternation", pattern: "crypto|blockchain|web3", wantErr: false},
		{name: "invalid unclosed group", pattern: "(unbalanced", wantErr: true},
		{name: "invalid bad repetition", pattern: "*bad", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegex(tt.pattern)
			gotErr := err != nil
			if diff := cmp.Diff(tt.wantErr, gotErr); diff != "" {
				t.Errorf("ValidateRegex() error mismatch (-want +got):\n%s\nerr: %v", diff, err)
			}
		})
	}
}
