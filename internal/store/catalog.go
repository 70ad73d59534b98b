package store

import (
	"context"
	"encoding/json"
	"fmt"

	"hn_cleanser/internal/config"
	"hn_cleanser/internal/model"
)

// Catalog exposes the typed per-collection operations the cleanser and the
// report mailman consume, on top of the generic document store.
type Catalog struct {
	store *Store
	cols  config.Collections
}

// NewCatalog creates a Catalog over the given store and collection names.
func NewCatalog(s *Store, cols config.Collections) *Catalog {
	return &Catalog{store: s, cols: cols}
}

// FindBlacklistedTitles returns all title rules in stored order.
func (c *Catalog) FindBlacklistedTitles(ctx context.Context) ([]model.TitleRule, error) {
	docs, err := c.store.FindAll(ctx, c.cols.BlacklistedTitles)
	if err != nil {
		return nil, fmt.Errorf("find blacklisted titles: %w", err)
	}
	rules := make([]model.TitleRule, 0, len(docs))
	for _, d := range docs {
		var r model.TitleRule
		if err := json.Unmarshal(d.Body, &r); err != nil {
			return nil, fmt.Errorf("unmarshal title rule %s: %w", d.ID, err)
		}
		r.ID = d.ID
		rules = append(rules, r)
	}
	return rules, nil
}

// FindBlacklistedSites returns all site rules in stored order.
func (c *Catalog) FindBlacklistedSites(ctx context.Context) ([]model.SiteRule, error) {
	docs, err := c.store.FindAll(ctx, c.cols.BlacklistedSites)
	if err != nil {
		return nil, fmt.Errorf("find blacklisted sites: %w", err)
	}
	rules := make([]model.SiteRule, 0, len(docs))
	for _, d := range docs {
		var r model.SiteRule
		if err := json.Unmarshal(d.Body, &r); err != nil {
			return nil, fmt.Errorf("unmarshal site rule %s: %w", d.ID, err)
		}
		r.ID = d.ID
		rules = append(rules, r)
	}
	return rules, nil
}

// FindBlacklistedUsers returns all user rules in stored order.
func (c *Catalog) FindBlacklistedUsers(ctx context.Context) ([]model.UserRule, error) {
	docs, err := c.store.FindAll(ctx, c.cols.BlacklistedUsers)
	if err != nil {
		return nil, fmt.Errorf("find blacklisted users: %w", err)
	}
	rules := make([]model.UserRule, 0, len(docs))
	for _, d := range docs {
		var r model.UserRule
		if err := json.Unmarshal(d.Body, &r); err != nil {
			return nil, fmt.Errorf("unmarshal user rule %s: %w", d.ID, err)
		}
		r.ID = d.ID
		rules = append(rules, r)
	}
	return rules, nil
}

// AddTitleRule stores a new title rule and returns its generated id.
func (c *Catalog) AddTitleRule(ctx context.Context, r model.TitleRule) (string, error) {
	id, err := c.store.Insert(ctx, c.cols.BlacklistedTitles, r)
	if err != nil {
		return "", fmt.Errorf("add title rule: %w", err)
	}
	return id, nil
}

// AddSiteRule stores a new site rule and returns its generated id.
func (c *Catalog) AddSiteRule(ctx context.Context, r model.SiteRule) (string, error) {
	id, err := c.store.Insert(ctx, c.cols.BlacklistedSites, r)
	if err != nil {
		return "", fmt.Errorf("add site rule: %w", err)
	}
	return id, nil
}

// AddUserRule stores a new user rule and returns its generated id.
func (c *Catalog) AddUserRule(ctx context.Context, r model.UserRule) (string, error) {
	id, err := c.store.Insert(ctx, c.cols.BlacklistedUsers, r)
	if err != nil {
		return "", fmt.Errorf("add user rule: %w", err)
	}
	return id, nil
}

// SaveCleansedItem upserts the record keyed by the story's external id.
// Re-saving the same id replaces the record instead of duplicating it.
func (c *Catalog) SaveCleansedItem(ctx context.Context, item model.CleansedItem) error {
	return c.store.Upsert(ctx, c.cols.CleansedItems, item.ID, item)
}

// RetractCleansedItem removes a record whose remote hide never went through.
func (c *Catalog) RetractCleansedItem(ctx context.Context, id string) error {
	return c.store.DeleteByID(ctx, c.cols.CleansedItems, id)
}

// CountCleansedItems returns the all-time number of cleansed stories.
func (c *Catalog) CountCleansedItems(ctx context.Context) (int64, error) {
	return c.store.Count(ctx, c.cols.CleansedItems)
}

// FindCleansedSince returns records hidden at or after the given epoch
// millisecond timestamp, newest first.
func (c *Catalog) FindCleansedSince(ctx context.Context, sinceMillis int64) ([]model.CleansedItem, error) {
	docs, err := c.store.Find(ctx, c.cols.CleansedItems, Query{
		GTEField:  "hideTime",
		GTE:       sinceMillis,
		SortField: "hideTime",
		SortDesc:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("find cleansed items: %w", err)
	}
	items := make([]model.CleansedItem, 0, len(docs))
	for _, d := range docs {
		var item model.CleansedItem
		if err := json.Unmarshal(d.Body, &item); err != nil {
			return nil, fmt.Errorf("unmarshal cleansed item %s: %w", d.ID, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// FindReportLogs returns report-send records, newest first.
func (c *Catalog) FindReportLogs(ctx context.Context) ([]model.ReportLog, error) {
	docs, err := c.store.Find(ctx, c.cols.ReportsLog, Query{
		SortField: "sentTime",
		SortDesc:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("find report logs: %w", err)
	}
	logs := make([]model.ReportLog, 0, len(docs))
	for _, d := range docs {
		var rl model.ReportLog
		if err := json.Unmarshal(d.Body, &rl); err != nil {
			return nil, fmt.Errorf("unmarshal report log %s: %w", d.ID, err)
		}
		rl.ID = d.ID
		logs = append(logs, rl)
	}
	return logs, nil
}

// InsertReportLog records that a report was sent at the given epoch
// millisecond timestamp.
func (c *Catalog) InsertReportLog(ctx context.Context, sentMillis int64) error {
	_, err := c.store.Insert(ctx, c.cols.ReportsLog, model.ReportLog{SentTime: sentMillis})
	if err != nil {
		return fmt.Errorf("insert report log: %w", err)
	}
	return nil
}
