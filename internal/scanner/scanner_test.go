package scanner

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"hn_cleanser/internal/model"
)

func loadFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/front_page.html")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(data)
}

func TestScanFrontPage(t *testing.T) {
	stories, err := Scan(loadFixture(t))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	want := []model.Story{
		{
			ID:       "40000001",
			Title:    "Company Announces Layoffs",
			Link:     "https://example.com/layoffs",
			Source:   "example.com",
			User:     "alice",
			HideHref: "hide?id=40000001&auth=aaa111token&goto=news",
		},
		{
			ID:       "40000002",
			Title:    "AI takes over jobs",
			Link:     "https://techdaily.com/ai-jobs",
			Source:   "techdaily.com",
			User:     "bob",
			HideHref: "hide?id=40000002&auth=bbb222token&goto=news",
		},
		{
			ID:       "40000003",
			Title:    "Ask HN: How do you test scrapers?",
			Link:     "item?id=40000003",
			Source:   "self",
			User:     "carol",
			HideHref: "hide?id=40000003&auth=ccc333token&goto=news",
		},
		{
			ID:       "40000004",
			Title:    "SponsorCo (YC W26) is hiring founding engineers",
			Link:     "https://sponsorco.example/jobs",
			Source:   "sponsorco.example",
			User:     "anonymous",
			IsAd:     true,
			HideHref: "hide?id=40000004&auth=ddd444token&goto=news",
		},
		{
			ID:       "40000005",
			Title:    "Show HN: My weekend project",
			Link:     "https://github.com/dave/weekend",
			Source:   "github.com",
			User:     "dave",
			HideHref: "hide?id=40000005&auth=eee555token&goto=news",
		},
	}

	if diff := cmp.Diff(want, stories); diff != "" {
		t.Errorf("stories mismatch (-want +got):\n%s", diff)
	}
}

func TestScanDropsDanglingItemRow(t *testing.T) {
	// Story 40000006 in the fixture has no metadata row following it.
	stories, err := Scan(loadFixture(t))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	for _, st := range stories {
		if st.ID == "40000006" {
			t.Errorf("dangling story %s should have been dropped", st.ID)
		}
	}
}

func TestScanConsecutiveItemRows(t *testing.T) {
	page := `<table>
		<tr class="athing" id="1"><td class="title"><span class="titleline"><a href="https://a.example/one">First</a></span></td></tr>
		<tr class="athing" id="2"><td class="title"><span class="titleline"><a href="https://a.example/two">Second</a></span></td></tr>
		<tr><td class="subtext"><a href="user?id=eve" class="hnuser">eve</a> | <a href="hide?id=2&auth=tok&goto=news">hide</a></td></tr>
	</table>`

	stories, err := Scan(page)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	want := []model.Story{
		{
			ID:       "2",
			Title:    "Second",
			Link:     "https://a.example/two",
			Source:   "self",
			User:     "eve",
			HideHref: "hide?id=2&auth=tok&goto=news",
		},
	}
	if diff := cmp.Diff(want, stories); diff != "" {
		t.Errorf("stories mismatch (-want +got):\n%s", diff)
	}
}

func TestScanMissingTitleUsesSentinels(t *testing.T) {
	page := `<table>
		<tr class="athing" id="9"><td class="title"></td></tr>
		<tr><td class="subtext"><a href="user?id=mallory" class="hnuser">mallory</a></td></tr>
	</table>`

	stories, err := Scan(page)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(stories) != 1 {
		t.Fatalf("want 1 story, got %d", len(stories))
	}

	got := stories[0]
	if diff := cmp.Diff(model.UntitledTitle, got.Title); diff != "" {
		t.Errorf("title mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(model.MissingLink, got.Link); diff != "" {
		t.Errorf("link mismatch (-want +got):\n%s", diff)
	}
	if got.HideHref != "" {
		t.Errorf("expected empty hide href, got %q", got.HideHref)
	}
}

func TestScanGarbageInputYieldsNoStories(t *testing.T) {
	stories, err := Scan("this is not a front page")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(stories) != 0 {
		t.Errorf("want no stories, got %d", len(stories))
	}
}
