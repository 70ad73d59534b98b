// Package model defines the domain types used across the application.
package model

// Sentinel values used when a story row is missing the corresponding element.
const (
	UntitledTitle   = "Untitled"
	MissingLink     = "#"
	SelfPostSource  = "self"
	AnonymousAuthor = "anonymous"
)

// Story represents one front-page entry extracted from a scan, not yet judged.
type Story struct {
	ID       string
	Title    string
	Link     string
	Source   string
	User     string
	IsAd     bool
	HideHref string
}

// TitleRuleKind defines how a title rule's value is matched against a title.
type TitleRuleKind string

// Supported title rule kinds.
const (
	TitleRuleText    TitleRuleKind = "text"
	TitleRuleKeyword TitleRuleKind = "keyword"
	TitleRuleRegex   TitleRuleKind = "regex"
)

// TitleRule blacklists stories whose title matches its value.
type TitleRule struct {
	ID    string        `json:"id,omitempty"`
	Kind  TitleRuleKind `json:"type"`
	Value string        `json:"value"`
}

// SiteRule blacklists stories from an exact source site.
type SiteRule struct {
	ID   string `json:"id,omitempty"`
	Site string `json:"site"`
}

// UserRule blacklists stories submitted by an exact user.
type UserRule struct {
	ID   string `json:"id,omitempty"`
	User string `json:"user"`
}

// Category names recorded in a cleansed item's CleansedBy field.
const (
	CleansedByTitles        = "blacklistedTitles"
	CleansedBySites         = "blacklistedSites"
	CleansedByUsers         = "blacklistedUsers"
	CleansedByAdvertisement = "advertisement"
)

// CleansedItem is the persisted record of one hidden story. The story's
// site-assigned ID is the natural key; re-persisting the same ID is a no-op.
type CleansedItem struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	User       string `json:"user"`
	Source     string `json:"source"`
	CleansedBy string `json:"cleansedBy"`
	Link       string `json:"link"`
	HideTime   int64  `json:"hideTime"`
	Confirmed  bool   `json:"confirmed"`
}

// ReportLog marks one successful report send. The newest record decides when
// the next report is due.
type ReportLog struct {
	ID       string `json:"id,omitempty"`
	SentTime int64  `json:"sentTime"`
}
