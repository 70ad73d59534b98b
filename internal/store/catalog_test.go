package store

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"hn_cleanser/internal/config"
	"hn_cleanser/internal/model"
)

func testCollections() config.Collections {
	return config.Collections{
		BlacklistedTitles: "blacklistedTitles",
		BlacklistedSites:  "blacklistedSites",
		BlacklistedUsers:  "blacklistedUsers",
		CleansedItems:     "cleansedItems",
		ReportsLog:        "weeklyReportsLog",
	}
}

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	return NewCatalog(newTestStore(t), testCollections())
}

func TestCatalogTitleRulesKeepStoredOrder(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)

	want := []model.TitleRule{
		{Kind: model.TitleRuleText, Value: "layoffs"},
		{Kind: model.TitleRuleKeyword, Value: "AI"},
		{Kind: model.TitleRuleRegex, Value: `^Show HN:`},
	}
	for _, r := range want {
		if _, err := c.AddTitleRule(ctx, r); err != nil {
			t.Fatalf("add rule: %v", err)
		}
	}

	got, err := c.FindBlacklistedTitles(ctx)
	if err != nil {
		t.Fatalf("find titles: %v", err)
	}
	ignoreID := cmpopts.IgnoreFields(model.TitleRule{}, "ID")
	if diff := cmp.Diff(want, got, ignoreID); diff != "" {
		t.Errorf("title rules mismatch (-want +got):\n%s", diff)
	}
	for _, r := range got {
		if r.ID == "" {
			t.Error("rule id should be populated from the document key")
		}
	}
}

func TestCatalogSiteAndUserRules(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)

	if _, err := c.AddSiteRule(ctx, model.SiteRule{Site: "example.com"}); err != nil {
		t.Fatalf("add site: %v", err)
	}
	if _, err := c.AddUserRule(ctx, model.UserRule{User: "troll42"}); err != nil {
		t.Fatalf("add user: %v", err)
	}

	sites, err := c.FindBlacklistedSites(ctx)
	if err != nil {
		t.Fatalf("find sites: %v", err)
	}
	if len(sites) != 1 || sites[0].Site != "example.com" {
		t.Errorf("unexpected site rules: %+v", sites)
	}

	users, err := c.FindBlacklistedUsers(ctx)
	if err != nil {
		t.Fatalf("find users: %v", err)
	}
	if len(users) != 1 || users[0].User != "troll42" {
		t.Errorf("unexpected user rules: %+v", users)
	}
}

func TestSaveCleansedItemTwiceKeepsOneRecord(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)

	item := model.CleansedItem{
		ID:         "story123",
		Title:      "Company Announces Layoffs",
		User:       "alice",
		Source:     "example.com",
		CleansedBy: model.CleansedByTitles,
		Link:       "https://example.com/layoffs",
		HideTime:   1_700_000_000_000,
	}
	if err := c.SaveCleansedItem(ctx, item); err != nil {
		t.Fatalf("save: %v", err)
	}
	item.Confirmed = true
	if err := c.SaveCleansedItem(ctx, item); err != nil {
		t.Fatalf("save confirmed: %v", err)
	}

	count, err := c.CountCleansedItems(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("want 1 record, got %d", count)
	}

	items, err := c.FindCleansedSince(ctx, 0)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if diff := cmp.Diff([]model.CleansedItem{item}, items); diff != "" {
		t.Errorf("stored item mismatch (-want +got):\n%s", diff)
	}
}

func TestRetractCleansedItem(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)

	item := model.CleansedItem{ID: "story9", Title: "t", CleansedBy: model.CleansedByUsers}
	if err := c.SaveCleansedItem(ctx, item); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := c.RetractCleansedItem(ctx, "story9"); err != nil {
		t.Fatalf("retract: %v", err)
	}
	count, err := c.CountCleansedItems(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("want 0 records after retract, got %d", count)
	}

	// Retracting an id that was never saved must not fail.
	if err := c.RetractCleansedItem(ctx, "never-saved"); err != nil {
		t.Errorf("retract missing: %v", err)
	}
}

func TestFindCleansedSinceFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)

	for _, item := range []model.CleansedItem{
		{ID: "s1", Title: "oldest", HideTime: 1000},
		{ID: "s2", Title: "newest", HideTime: 3000},
		{ID: "s3", Title: "middle", HideTime: 2000},
	} {
		if err := c.SaveCleansedItem(ctx, item); err != nil {
			t.Fatalf("save %s: %v", item.ID, err)
		}
	}

	items, err := c.FindCleansedSince(ctx, 2000)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	var titles []string
	for _, it := range items {
		titles = append(titles, it.Title)
	}
	if diff := cmp.Diff([]string{"newest", "middle"}, titles); diff != "" {
		t.Errorf("since filter mismatch (-want +got):\n%s", diff)
	}
}

func TestReportLogsNewestFirst(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)

	for _, ts := range []int64{1000, 3000, 2000} {
		if err := c.InsertReportLog(ctx, ts); err != nil {
			t.Fatalf("insert log: %v", err)
		}
	}

	logs, err := c.FindReportLogs(ctx)
	if err != nil {
		t.Fatalf("find logs: %v", err)
	}
	var times []int64
	for _, l := range logs {
		times = append(times, l.SentTime)
	}
	if diff := cmp.Diff([]int64{3000, 2000, 1000}, times); diff != "" {
		t.Errorf("log order mismatch (-want +got):\n%s", diff)
	}
}
